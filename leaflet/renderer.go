// Package leaflet renders pipeline results as a standalone Leaflet HTML map.
package leaflet

import (
	"bytes"
	"context"
	"fmt"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"go.uber.org/zap"

	"github.com/andreiashu/filmmap"
)

const (
	// DefaultOutput is the file written when no output path is configured.
	DefaultOutput = "film_map.html"
	// DefaultZoom matches a city-scale view around the reference point.
	DefaultZoom = 10

	DefaultTileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = "&copy; OpenStreetMap contributors"
)

// nudge is the marker offset in degrees (~11m of latitude).
const nudge = 0.0001

// Markers whose positions share a precision-9 geohash (~5m cell) would be
// drawn on top of each other.
const geohashPrecision = 9

// Labeler names the place at a coordinate, or returns "".
type Labeler interface {
	Label(c filmmap.Coordinate) string
}

// Config contains configuration options for a Renderer.
type Config struct {
	Output      string      // HTML file path (default: DefaultOutput)
	Zoom        int         // Initial zoom level (default: DefaultZoom)
	TileURL     string      // Tile layer URL template
	Attribution string      // Tile layer attribution (HTML)
	Labeler     Labeler     // Names the reference marker; optional
	Logger      *zap.Logger // Defaults to a no-op logger
}

// Option is a functional option for configuring a Renderer.
type Option func(*Config)

// WithOutput sets the HTML file path.
func WithOutput(path string) Option {
	return func(c *Config) {
		if path != "" {
			c.Output = path
		}
	}
}

// WithZoom sets the initial zoom level.
func WithZoom(z int) Option {
	return func(c *Config) {
		c.Zoom = z
	}
}

// WithTiles sets the tile layer URL template and its attribution.
func WithTiles(url, attribution string) Option {
	return func(c *Config) {
		c.TileURL = url
		c.Attribution = attribution
	}
}

// WithLabeler sets the reference marker labeler.
func WithLabeler(l Labeler) Option {
	return func(c *Config) {
		c.Labeler = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// Renderer writes filmmap.MapData to an HTML file. It implements
// filmmap.Renderer.
type Renderer struct {
	config *Config
}

// New returns a Renderer.
func New(opts ...Option) *Renderer {
	cfg := &Config{
		Output:      DefaultOutput,
		Zoom:        DefaultZoom,
		TileURL:     DefaultTileURL,
		Attribution: DefaultAttribution,
		Logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Renderer{config: cfg}
}

// Output returns the path Render writes to.
func (r *Renderer) Output() string { return r.config.Output }

// Render draws data and replaces the output file atomically.
func (r *Renderer) Render(ctx context.Context, data filmmap.MapData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, r.page(data)); err != nil {
		return fmt.Errorf("executing map template: %w", err)
	}
	if err := writeFileAtomic(r.config.Output, buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", r.config.Output, err)
	}

	r.config.Logger.Info("map written",
		zap.String("path", r.config.Output),
		zap.Int("ranked", len(data.Ranked)),
		zap.Int("regional", len(data.Regional)),
	)
	return nil
}

// Page is the template model, serialized into the page script as JSON.
type Page struct {
	Title       string  `json:"title"`
	Zoom        int     `json:"zoom"`
	TileURL     string  `json:"tiles"`
	Attribution string  `json:"attribution"`
	Reference   Marker  `json:"reference"`
	Layers      []Layer `json:"layers"`
}

// Layer is a toggleable group of markers.
type Layer struct {
	Name    string   `json:"name"`
	Markers []Marker `json:"markers"`
}

// Marker is a pin with a plain-text popup.
type Marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Popup string  `json:"popup"`
}

func (r *Renderer) page(data filmmap.MapData) Page {
	ref := Marker{Lat: data.Reference.Lat, Lon: data.Reference.Lon, Popup: data.Reference.String()}
	if r.config.Labeler != nil {
		if label := r.config.Labeler.Label(data.Reference); label != "" {
			ref.Popup = label
		}
	}

	region := data.RegionName
	if region == "" {
		region = filmmap.DefaultRegionName
	}

	return Page{
		Title:       fmt.Sprintf("%s films near %s", data.Year, ref.Popup),
		Zoom:        r.config.Zoom,
		TileURL:     r.config.TileURL,
		Attribution: r.config.Attribution,
		Reference:   ref,
		Layers: []Layer{
			{Name: data.Year + " Films", Markers: rankedMarkers(data.Ranked)},
			{Name: region + " Films", Markers: regionalMarkers(data.Regional)},
		},
	}
}

// rankedMarkers moves each repeat of an already used position north by one
// nudge per earlier occurrence.
func rankedMarkers(records []filmmap.FilmRecord) []Marker {
	markers := make([]Marker, 0, len(records))
	seen := make(map[string]int, len(records))
	for _, rec := range records {
		c := rec.Coordinate
		cell := geohash.EncodeWithPrecision(c.Lat, c.Lon, geohashPrecision)
		n := seen[cell]
		seen[cell] = n + 1
		markers = append(markers, Marker{
			Lat:   c.Lat + float64(n)*nudge,
			Lon:   c.Lon,
			Popup: rec.Title,
		})
	}
	return markers
}

// regionalMarkers fans the i-th marker out by (-1)^i * i * nudge on both axes;
// regional records usually share a handful of positions.
func regionalMarkers(records []filmmap.RegionRecord) []Marker {
	markers := make([]Marker, 0, len(records))
	for i, rec := range records {
		off := float64(i) * nudge
		if i%2 == 1 {
			off = -off
		}
		markers = append(markers, Marker{
			Lat:   rec.Coordinate.Lat + off,
			Lon:   rec.Coordinate.Lon + off,
			Popup: rec.Title,
		})
	}
	return markers
}

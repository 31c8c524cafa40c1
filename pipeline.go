package filmmap

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// MapData is everything a Renderer needs to draw the map.
type MapData struct {
	Reference  Coordinate
	Year       string
	RegionName string
	Ranked     []FilmRecord
	Regional   []RegionRecord
}

// Renderer turns pipeline output into a map artifact.
type Renderer interface {
	Render(ctx context.Context, data MapData) error
}

// Result is the output of a pipeline run.
type Result struct {
	Reference Coordinate
	Year      string
	Ranked    []FilmRecord
	Regional  []RegionRecord
}

// Config contains the pipeline settings.
type Config struct {
	Limit         int         // Max ranked records (default DefaultLimit)
	RegionTargets []string    // Substrings selecting the region of interest
	RegionName    string      // Label of the region layer
	Logger        *zap.Logger // Defaults to a no-op logger
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Config)

// WithLimit sets the number of ranked records kept.
func WithLimit(n int) Option {
	return func(c *Config) {
		c.Limit = n
	}
}

// WithRegion sets the region of interest and its label.
func WithRegion(name string, targets ...string) Option {
	return func(c *Config) {
		if name != "" {
			c.RegionName = name
		}
		if len(targets) > 0 {
			c.RegionTargets = targets
		}
	}
}

// WithLogger sets the logger shared by the pipeline stages.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		Limit:         DefaultLimit,
		RegionTargets: DefaultRegionTargets,
		RegionName:    DefaultRegionName,
		Logger:        zap.NewNop(),
	}
}

// Pipeline ranks the films of a year around a reference point and collects
// the region of interest, then hands both to a Renderer.
type Pipeline struct {
	ranker   *Ranker
	region   *RegionFilter
	renderer Renderer
	config   *Config
}

// New creates a Pipeline geocoding with g and drawing with renderer.
// renderer may be nil when only Run is used.
func New(g Geocoder, renderer Renderer, opts ...Option) *Pipeline {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	resolver := NewResolver(g, WithResolverLogger(cfg.Logger.Named("resolver")))
	return &Pipeline{
		ranker:   NewRanker(resolver, cfg.Limit, cfg.Logger.Named("ranker")),
		region:   NewRegionFilter(resolver, cfg.Logger.Named("region")),
		renderer: renderer,
		config:   cfg,
	}
}

// Run ranks and filters lines. The two stages share no mutable state.
func (p *Pipeline) Run(ctx context.Context, lines []string, year string, reference Coordinate) (Result, error) {
	if !reference.Valid() {
		return Result{}, fmt.Errorf("reference point %v: %w", reference, ErrInvalidCoordinate)
	}

	ranked, err := p.ranker.Rank(ctx, lines, year, reference)
	if err != nil {
		return Result{}, fmt.Errorf("ranking films: %w", err)
	}
	regional, err := p.region.Filter(ctx, lines, ContainsAny(p.config.RegionTargets...))
	if err != nil {
		return Result{}, fmt.Errorf("filtering region: %w", err)
	}

	p.config.Logger.Info("pipeline finished",
		zap.String("year", year),
		zap.Int("lines", len(lines)),
		zap.Int("ranked", len(ranked)),
		zap.Int("regional", len(regional)))

	return Result{
		Reference: reference,
		Year:      year,
		Ranked:    ranked,
		Regional:  regional,
	}, nil
}

// Execute reads the dataset at path, runs the pipeline and renders the map.
// An unreadable dataset is returned as ErrDatasetUnreadable.
func (p *Pipeline) Execute(ctx context.Context, path, year string, reference Coordinate) (Result, error) {
	lines, err := LoadDataset(path)
	if err != nil {
		return Result{}, err
	}

	res, err := p.Run(ctx, lines, year, reference)
	if err != nil {
		return Result{}, err
	}

	if p.renderer == nil {
		return res, nil
	}
	err = p.renderer.Render(ctx, MapData{
		Reference:  res.Reference,
		Year:       res.Year,
		RegionName: p.config.RegionName,
		Ranked:     res.Ranked,
		Regional:   res.Regional,
	})
	if err != nil {
		return res, fmt.Errorf("rendering map: %w", err)
	}
	return res, nil
}

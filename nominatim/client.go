// Package nominatim geocodes place names through an OpenStreetMap Nominatim
// server.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/andreiashu/filmmap"
)

// Defaults follow the public server's usage policy: an identifying User-Agent
// and at most one request per second.
const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "filmmap/1.0"
	DefaultTimeout   = 10 * time.Second
	DefaultRate      = 1.0
)

// maxErrorBody bounds how much of a failed response ends up in the error.
const maxErrorBody = 512

// Place is one entry of a Nominatim search response.
type Place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Config contains configuration options for a Client.
type Config struct {
	BaseURL    string        // Server root (default: DefaultBaseURL)
	UserAgent  string        // Sent on every request (default: DefaultUserAgent)
	Timeout    time.Duration // Per-request timeout (default: DefaultTimeout)
	Rate       float64       // Requests per second, <= 0 disables pacing
	HTTPClient *http.Client  // Overrides the client built from Timeout
	Logger     *zap.Logger   // Defaults to a no-op logger
}

// Option is a functional option for configuring a Client.
type Option func(*Config)

// WithBaseURL points the client at another Nominatim instance.
func WithBaseURL(u string) Option {
	return func(c *Config) {
		c.BaseURL = u
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithRate sets the request rate in requests per second.
func WithRate(perSecond float64) Option {
	return func(c *Config) {
		c.Rate = perSecond
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = hc
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

// Client is a filmmap.Geocoder backed by Nominatim's /search endpoint.
// Requests are paced by a token bucket shared by all callers.
type Client struct {
	base       *url.URL
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New builds a Client. It fails only when the base URL does not parse.
func New(opts ...Option) (*Client, error) {
	cfg := &Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
		Rate:      DefaultRate,
		Logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}

	return &Client{
		base:       base,
		userAgent:  cfg.UserAgent,
		httpClient: hc,
		limiter:    limiter,
		logger:     cfg.Logger,
	}, nil
}

// Lookup implements filmmap.Geocoder using the first search hit.
func (c *Client) Lookup(ctx context.Context, query string) (filmmap.Coordinate, error) {
	places, err := c.Search(ctx, query, 1)
	if err != nil {
		return filmmap.Coordinate{}, err
	}
	if len(places) == 0 {
		return filmmap.Coordinate{}, fmt.Errorf("%w: %q", filmmap.ErrNotFound, query)
	}
	return places[0].Coordinate()
}

// Search returns up to limit matches for query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(query, limit), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("nominatim search",
		zap.String("query", query),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("nominatim returned status %d: %s", resp.StatusCode, body)
	}

	var places []Place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decoding nominatim response: %w", err)
	}
	return places, nil
}

func (c *Client) searchURL(query string, limit int) string {
	u := *c.base
	u.Path = joinPath(u.Path, "search")
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()
	return u.String()
}

func joinPath(base, elem string) string {
	if base == "" || base[len(base)-1] != '/' {
		base += "/"
	}
	return base + elem
}

// Coordinate parses the place's string-encoded latitude and longitude.
func (p Place) Coordinate() (filmmap.Coordinate, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return filmmap.Coordinate{}, fmt.Errorf("parsing latitude %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return filmmap.Coordinate{}, fmt.Errorf("parsing longitude %q: %w", p.Lon, err)
	}
	return filmmap.NewCoordinate(lat, lon)
}

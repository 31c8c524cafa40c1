package filmmap

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// componentSeparator separates the parts of a location string, most specific
// first: "Stage 5, Universal Studios, Universal City, California, USA".
const componentSeparator = ", "

// Geocoder resolves a free-text place name to a coordinate.
// Implementations return ErrNotFound when the query has no result.
type Geocoder interface {
	Lookup(ctx context.Context, query string) (Coordinate, error)
}

// GeocoderFunc adapts a plain function to the Geocoder interface.
type GeocoderFunc func(ctx context.Context, query string) (Coordinate, error)

// Lookup calls f(ctx, query).
func (f GeocoderFunc) Lookup(ctx context.Context, query string) (Coordinate, error) {
	return f(ctx, query)
}

// Resolution is a successfully geocoded location.
type Resolution struct {
	// Query is the candidate text the geocoder accepted.
	Query      string
	Coordinate Coordinate
}

// Candidates returns the sequence of lookup strings tried for a location,
// from the full text down to its broadest component.
//
// While more than two components remain the leading (most specific) one is
// dropped. With exactly two left, the last component is tried on its own.
// The result never has more entries than the text has components.
func Candidates(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	out := []string{text}
	parts := strings.Split(text, componentSeparator)
	for len(parts) > 2 {
		parts = parts[1:]
		out = appendCandidate(out, strings.Join(parts, componentSeparator))
	}
	if len(parts) == 2 {
		out = appendCandidate(out, parts[1])
	}
	return out
}

func appendCandidate(out []string, c string) []string {
	c = strings.TrimSpace(c)
	if c == "" || c == out[len(out)-1] {
		return out
	}
	return append(out, c)
}

// Resolver geocodes location strings with progressive narrowing.
type Resolver struct {
	geocoder Geocoder
	logger   *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger used for per-candidate diagnostics.
func WithResolverLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver returns a Resolver backed by g.
func NewResolver(g Geocoder, opts ...ResolverOption) *Resolver {
	r := &Resolver{geocoder: g, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve tries each of Candidates(text) in order and returns the first hit.
// Lookup failures of any kind count as a miss; when every candidate misses
// the returned error wraps ErrUnresolvableLocation.
func (r *Resolver) Resolve(ctx context.Context, text string) (Resolution, error) {
	for _, q := range Candidates(text) {
		c, err := r.geocoder.Lookup(ctx, q)
		if err != nil {
			r.logger.Debug("geocode miss", zap.String("query", q), zap.Error(err))
			continue
		}
		if !c.Valid() {
			r.logger.Debug("geocode returned invalid coordinate",
				zap.String("query", q), zap.Float64("lat", c.Lat), zap.Float64("lon", c.Lon))
			continue
		}
		return Resolution{Query: q, Coordinate: c}, nil
	}
	return Resolution{}, fmt.Errorf("%w: %q", ErrUnresolvableLocation, text)
}

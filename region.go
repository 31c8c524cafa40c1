package filmmap

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// DefaultRegionName labels the region of interest on the rendered map.
const DefaultRegionName = "Chornobyl"

// DefaultRegionTargets are the location substrings that select a line into
// the region of interest.
var DefaultRegionTargets = []string{"Chernobyl, Ukraine", "Pripyat, Ukraine"}

// RegionRecord is a filming location inside the region of interest.
type RegionRecord struct {
	Title      string
	Location   string
	Coordinate Coordinate
}

// Predicate selects dataset lines.
type Predicate func(line string) bool

// ContainsAny matches lines containing at least one of targets.
// Empty targets never match.
func ContainsAny(targets ...string) Predicate {
	ts := make([]string, 0, len(targets))
	for _, t := range targets {
		if t != "" {
			ts = append(ts, t)
		}
	}
	return func(line string) bool {
		for _, t := range ts {
			if strings.Contains(line, t) {
				return true
			}
		}
		return false
	}
}

// RegionFilter collects every resolvable line matching a predicate.
type RegionFilter struct {
	resolver *Resolver
	logger   *zap.Logger
}

// NewRegionFilter returns a RegionFilter resolving locations with r.
func NewRegionFilter(r *Resolver, logger *zap.Logger) *RegionFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegionFilter{resolver: r, logger: logger}
}

// Filter returns the matching records in input order. Skip rules are the
// same as Ranker.Rank; there is no distance, sorting or truncation.
func (f *RegionFilter) Filter(ctx context.Context, lines []string, match Predicate) ([]RegionRecord, error) {
	records := []RegionRecord{}
	for i, line := range lines {
		if !match(line) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e, res, err := resolveLine(ctx, f.resolver, line)
		if err != nil {
			logSkip(f.logger, i, line, err)
			continue
		}

		records = append(records, RegionRecord{
			Title:      e.Title,
			Location:   res.Query,
			Coordinate: res.Coordinate,
		})
	}
	return records, nil
}

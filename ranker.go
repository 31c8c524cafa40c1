package filmmap

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// DefaultLimit is the number of closest filming locations kept by a Ranker.
const DefaultLimit = 10

// FilmRecord is a ranked filming location.
type FilmRecord struct {
	Title      string
	Location   string
	DistanceKm float64
	Coordinate Coordinate
}

// YearPredicate matches lines carrying a release-year annotation such as
// "(2006)" or "(2006/I)": an opening parenthesis followed by the year.
func YearPredicate(year string) func(string) bool {
	token := "(" + year
	return func(line string) bool {
		return strings.Contains(line, token)
	}
}

// Ranker selects the filming locations of a year closest to a reference point.
type Ranker struct {
	resolver *Resolver
	limit    int
	logger   *zap.Logger
}

// NewRanker returns a Ranker keeping at most limit records. A non-positive
// limit means DefaultLimit.
func NewRanker(r *Resolver, limit int, logger *zap.Logger) *Ranker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{resolver: r, limit: limit, logger: logger}
}

// Rank returns the records of year ordered by ascending distance from
// reference, ties kept in input order, truncated to the ranker's limit.
// Malformed lines and unresolvable locations are skipped; the only error is
// a cancelled context.
func (rk *Ranker) Rank(ctx context.Context, lines []string, year string, reference Coordinate) ([]FilmRecord, error) {
	match := YearPredicate(year)

	films := []FilmRecord{}
	for i, line := range lines {
		if !match(line) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e, res, err := resolveLine(ctx, rk.resolver, line)
		if err != nil {
			logSkip(rk.logger, i, line, err)
			continue
		}

		films = append(films, FilmRecord{
			Title:      e.Title,
			Location:   res.Query,
			DistanceKm: Haversine(reference, res.Coordinate),
			Coordinate: res.Coordinate,
		})
	}

	sort.SliceStable(films, func(i, j int) bool {
		return films[i].DistanceKm < films[j].DistanceKm
	})
	if len(films) > rk.limit {
		films = films[:rk.limit]
	}
	return films, nil
}

// resolveLine parses a line and geocodes its location.
func resolveLine(ctx context.Context, r *Resolver, line string) (Entry, Resolution, error) {
	e, err := ParseLine(line)
	if err != nil {
		return Entry{}, Resolution{}, err
	}
	res, err := r.Resolve(ctx, e.Location)
	if err != nil {
		return e, Resolution{}, err
	}
	return e, res, nil
}

func logSkip(l *zap.Logger, idx int, line string, err error) {
	reason := "unresolvable"
	if errors.Is(err, ErrMalformedLine) {
		reason = "malformed"
	}
	l.Debug("skipping line",
		zap.Int("line", idx+1),
		zap.String("reason", reason),
		zap.String("text", line),
		zap.Error(err))
}

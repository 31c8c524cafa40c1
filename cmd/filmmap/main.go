// Command filmmap draws the filming locations of a year's films closest to a
// reference point, plus every film shot in a region of interest, on an HTML
// map.
//
// Usage:
//
//	filmmap <year> <latitude> <longitude> <dataset>
//
// Settings come from FILMMAP_* environment variables, optionally loaded from
// a .env file in the working directory.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/andreiashu/filmmap"
	"github.com/andreiashu/filmmap/gazetteer"
	"github.com/andreiashu/filmmap/internal/config"
	"github.com/andreiashu/filmmap/leaflet"
	"github.com/andreiashu/filmmap/nominatim"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const usage = "usage: filmmap <year> <latitude> <longitude> <dataset>"

func main() {
	_ = godotenv.Load() // Load .env file if present

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFailure)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFailure)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, os.Args[1:], logger, os.Stdout, os.Stderr)
	stop()
	_ = logger.Sync()
	os.Exit(code)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// request is a validated command line.
type request struct {
	year      string
	reference filmmap.Coordinate
	dataset   string
}

func parseArgs(args []string) (request, error) {
	if len(args) != 4 {
		return request{}, fmt.Errorf("expected 4 arguments, got %d", len(args))
	}
	lat, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return request{}, fmt.Errorf("latitude %q is not a number", args[1])
	}
	lon, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return request{}, fmt.Errorf("longitude %q is not a number", args[2])
	}
	ref, err := filmmap.NewCoordinate(lat, lon)
	if err != nil {
		return request{}, err
	}
	if args[0] == "" || args[3] == "" {
		return request{}, fmt.Errorf("year and dataset must not be empty")
	}
	return request{year: args[0], reference: ref, dataset: args[3]}, nil
}

func run(ctx context.Context, cfg config.Config, args []string, logger *zap.Logger, stdout, stderr io.Writer) int {
	req, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n%s\n", err, usage)
		return exitUsage
	}

	geocoder, labeler, err := newGeocoder(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	renderOpts := []leaflet.Option{
		leaflet.WithOutput(cfg.Map.Output),
		leaflet.WithLogger(logger.Named("leaflet")),
	}
	if labeler != nil {
		renderOpts = append(renderOpts, leaflet.WithLabeler(labeler))
	}
	renderer := leaflet.New(renderOpts...)

	p := filmmap.New(geocoder, renderer,
		filmmap.WithLimit(cfg.Map.Limit),
		filmmap.WithRegion(cfg.Map.RegionName, cfg.Map.RegionTargets...),
		filmmap.WithLogger(logger),
	)

	res, err := p.Execute(ctx, req.dataset, req.year, req.reference)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	fmt.Fprintf(stdout, "Map written to %s: %d closest %s films, %d %s films.\n",
		renderer.Output(), len(res.Ranked), req.year, len(res.Regional), cfg.Map.RegionName)
	return exitOK
}

// newGeocoder builds the configured backend. The gazetteer doubles as the
// labeler of the reference marker.
func newGeocoder(cfg config.Config, logger *zap.Logger) (filmmap.Geocoder, leaflet.Labeler, error) {
	switch cfg.Geocoder {
	case config.GeocoderGazetteer:
		g, err := gazetteer.New(
			gazetteer.WithDataDir(cfg.Gazetteer.DataDir),
			gazetteer.WithCacheDir(cfg.Gazetteer.CacheDir),
			gazetteer.WithFuzzyDistance(cfg.Gazetteer.FuzzyDistance),
			gazetteer.WithLogger(logger.Named("gazetteer")),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("loading gazetteer: %w", err)
		}
		return g, g, nil
	default:
		c, err := nominatim.New(
			nominatim.WithBaseURL(cfg.Nominatim.BaseURL),
			nominatim.WithUserAgent(cfg.Nominatim.UserAgent),
			nominatim.WithRate(cfg.Nominatim.Rate),
			nominatim.WithTimeout(cfg.Nominatim.Timeout),
			nominatim.WithLogger(logger.Named("nominatim")),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("creating nominatim client: %w", err)
		}
		return c, nil, nil
	}
}

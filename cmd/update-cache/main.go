// Command update-cache regenerates the gazetteer cache from raw Geonames data.
//
// Usage:
//
//	go run ./cmd/update-cache
//
// This reads from FILMMAP_DATA_DIR (default ./geobed-data/) and writes to
// FILMMAP_CACHE_DIR (default ./geobed-cache/) as a zstd-compressed gob dump,
// removing any older plain or bzip2 dump.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/andreiashu/filmmap/gazetteer"
	"github.com/andreiashu/filmmap/internal/config"
)

func main() {
	_ = godotenv.Load() // Load .env file if present

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	fmt.Println("Regenerating gazetteer cache from raw data...")

	g, err := gazetteer.RegenerateCache(
		gazetteer.WithDataDir(cfg.Gazetteer.DataDir),
		gazetteer.WithCacheDir(cfg.Gazetteer.CacheDir),
		gazetteer.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Cache regenerated successfully: %d cities, %d countries.\n", g.Cities(), g.Countries())
}

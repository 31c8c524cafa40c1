// Package config reads the filmmap command configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andreiashu/filmmap"
	"github.com/andreiashu/filmmap/leaflet"
	"github.com/andreiashu/filmmap/nominatim"
)

// Geocoder backends.
const (
	GeocoderNominatim = "nominatim"
	GeocoderGazetteer = "gazetteer"
)

// Config holds the filmmap command configuration
type Config struct {
	Geocoder  string
	Debug     bool
	Nominatim NominatimConfig
	Gazetteer GazetteerConfig
	Map       MapConfig
}

// NominatimConfig holds the Nominatim client settings
type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	Rate      float64
	Timeout   time.Duration
}

// GazetteerConfig holds the offline gazetteer settings
type GazetteerConfig struct {
	DataDir       string
	CacheDir      string
	FuzzyDistance int
}

// MapConfig holds the ranking and rendering settings
type MapConfig struct {
	Output        string
	Limit         int
	RegionName    string
	RegionTargets []string
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Geocoder: strings.ToLower(getEnv("FILMMAP_GEOCODER", GeocoderNominatim)),
		Debug:    getEnvAsBool("FILMMAP_DEBUG", false),
		Nominatim: NominatimConfig{
			BaseURL:   getEnv("FILMMAP_NOMINATIM_URL", nominatim.DefaultBaseURL),
			UserAgent: getEnv("FILMMAP_USER_AGENT", nominatim.DefaultUserAgent),
			Rate:      getEnvAsFloat("FILMMAP_NOMINATIM_RATE", nominatim.DefaultRate),
			Timeout:   getEnvAsDuration("FILMMAP_TIMEOUT", nominatim.DefaultTimeout),
		},
		Gazetteer: GazetteerConfig{
			DataDir:       getEnv("FILMMAP_DATA_DIR", "./geobed-data"),
			CacheDir:      getEnv("FILMMAP_CACHE_DIR", "./geobed-cache"),
			FuzzyDistance: getEnvAsInt("FILMMAP_FUZZY_DISTANCE", 0),
		},
		Map: MapConfig{
			Output:     getEnv("FILMMAP_OUTPUT", leaflet.DefaultOutput),
			Limit:      getEnvAsInt("FILMMAP_LIMIT", filmmap.DefaultLimit),
			RegionName: getEnv("FILMMAP_REGION_NAME", filmmap.DefaultRegionName),
			// Targets contain commas themselves ("Chernobyl, Ukraine").
			RegionTargets: getEnvAsSlice("FILMMAP_REGION_TARGETS", ";", filmmap.DefaultRegionTargets),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	switch config.Geocoder {
	case GeocoderNominatim, GeocoderGazetteer:
	default:
		return fmt.Errorf("unknown geocoder %q (want %q or %q)", config.Geocoder, GeocoderNominatim, GeocoderGazetteer)
	}
	if config.Map.Limit <= 0 {
		return fmt.Errorf("FILMMAP_LIMIT must be positive, got %d", config.Map.Limit)
	}
	if config.Nominatim.Timeout <= 0 {
		return fmt.Errorf("FILMMAP_TIMEOUT must be positive, got %s", config.Nominatim.Timeout)
	}
	if config.Gazetteer.FuzzyDistance < 0 {
		return fmt.Errorf("FILMMAP_FUZZY_DISTANCE must not be negative, got %d", config.Gazetteer.FuzzyDistance)
	}
	if len(config.Map.RegionTargets) == 0 {
		return fmt.Errorf("FILMMAP_REGION_TARGETS names no targets")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key, sep string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, sep) {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

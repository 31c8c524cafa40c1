// Package gazetteer is an offline geocoder over the Geonames cities1000,
// countryInfo and admin1 dumps.
package gazetteer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/golang/geo/s2"
	"go.uber.org/zap"

	"github.com/andreiashu/filmmap"
)

// s2CellLevel sets the granularity of the reverse geocoding index.
// Level 10 cells are roughly 10km x 10km at the equator.
const s2CellLevel = 10

// maxReverseDistance is ~100km in radians on the unit sphere.
const maxReverseDistance = 0.0157

// maxFuzzyDistance caps FuzzyDistance; every fuzzy query scans the whole
// name index.
const maxFuzzyDistance = 3

// maxQueryLen limits input length (in runes) before Levenshtein matching.
const maxQueryLen = 256

// countryAliases maps names used in film location lists to ISO codes.
var countryAliases = map[string]string{
	"usa":              "US",
	"u.s.a.":           "US",
	"united states":    "US",
	"uk":               "GB",
	"england":          "GB",
	"scotland":         "GB",
	"wales":            "GB",
	"northern ireland": "GB",
	"west germany":     "DE",
	"east germany":     "DE",
	"soviet union":     "RU",
	"russia":           "RU",
	"south korea":      "KR",
	"czech republic":   "CZ",
	"czechoslovakia":   "CZ",
	"yugoslavia":       "RS",
	"burma":            "MM",
	"ivory coast":      "CI",
}

// City is a populated place.
type City struct {
	Name       string   // Primary name
	AltNames   []string // Alternate names
	Country    string   // ISO 3166-1 alpha-2 code (e.g., "US", "FR")
	Region     string   // Admin1 code (e.g., "TX", "11")
	Latitude   float32  // Latitude in degrees
	Longitude  float32  // Longitude in degrees
	Population int32    // Population count
}

// Coordinate returns the city location.
func (c City) Coordinate() filmmap.Coordinate {
	return filmmap.Coordinate{Lat: float64(c.Latitude), Lon: float64(c.Longitude)}
}

// CountryInfo contains the Geonames metadata used for matching.
type CountryInfo struct {
	ISO        string
	ISO3       string
	Country    string
	Capital    string
	Population int32
	Continent  string
}

// Config contains configuration options for a Gazetteer.
type Config struct {
	DataDir       string      // Directory for raw dumps (default: "./geobed-data")
	CacheDir      string      // Directory for the gob cache (default: "./geobed-cache")
	FuzzyDistance int         // Edit distance used by Lookup (0 = exact names only)
	Logger        *zap.Logger // Defaults to a no-op logger
}

// Option is a functional option for configuring a Gazetteer.
type Option func(*Config)

// WithDataDir sets the directory for raw data files.
func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.DataDir = dir
	}
}

// WithCacheDir sets the directory for cache files.
func WithCacheDir(dir string) Option {
	return func(c *Config) {
		c.CacheDir = dir
	}
}

// WithFuzzyDistance enables typo tolerance in Lookup.
func WithFuzzyDistance(d int) Option {
	return func(c *Config) {
		c.FuzzyDistance = d
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

func defaultConfig() *Config {
	return &Config{
		DataDir:  "./geobed-data",
		CacheDir: "./geobed-cache",
		Logger:   zap.NewNop(),
	}
}

// GeocodeOptions configures a single Geocode call.
type GeocodeOptions struct {
	FuzzyDistance int // Max edit distance for typo tolerance (0 = disabled, 1-2 recommended)
}

// Gazetteer resolves place names and coordinates against an in-memory copy
// of the Geonames dumps. Safe for concurrent use after construction.
type Gazetteer struct {
	cities    []City
	countries []CountryInfo
	divisions divisionTable

	nameIndex  map[string][]int    // lowercase name -> city indices
	cellIndex  map[s2.CellID][]int // s2 cell -> city indices
	countryIdx map[string]int      // lowercase ISO/ISO3/name/alias -> countries index
	largest    map[string]int      // "CC" or "CC.CODE" -> most populous city index

	config *Config
}

var (
	defaultGazetteer     *Gazetteer
	defaultGazetteerErr  error
	defaultGazetteerOnce sync.Once
)

// Default returns a shared Gazetteer built with the default configuration on
// first use.
func Default() (*Gazetteer, error) {
	defaultGazetteerOnce.Do(func() {
		defaultGazetteer, defaultGazetteerErr = New()
	})
	return defaultGazetteer, defaultGazetteerErr
}

// New loads the gazetteer from the cache directory, falling back to the raw
// dumps in the data directory (downloading any that are missing) and
// refreshing the cache.
//
//	g, err := gazetteer.New(gazetteer.WithDataDir("/var/lib/filmmap"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	city := g.Geocode("Austin, Texas, USA")
func New(opts ...Option) (*Gazetteer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	ds, err := loadCache(cfg.CacheDir)
	if err != nil {
		cfg.Logger.Info("gazetteer cache unavailable, loading raw data", zap.Error(err))

		if err := download(cfg.DataDir, cfg.Logger); err != nil {
			return nil, fmt.Errorf("failed to download data sets: %w", err)
		}
		if ds, err = loadRaw(cfg.DataDir); err != nil {
			return nil, fmt.Errorf("failed to load data sets: %w", err)
		}
		if err := storeCache(cfg.CacheDir, ds); err != nil {
			cfg.Logger.Warn("failed to store gazetteer cache", zap.Error(err))
		}
	}

	return build(ds, cfg), nil
}

// RegenerateCache rebuilds the cache from the raw dumps, which must already
// exist in the data directory.
func RegenerateCache(opts ...Option) (*Gazetteer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	ds, err := loadRaw(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load data sets: %w", err)
	}
	if err := storeCache(cfg.CacheDir, ds); err != nil {
		return nil, fmt.Errorf("failed to store cache: %w", err)
	}
	return build(ds, cfg), nil
}

// build sorts the cities and derives every index.
func build(ds *dataset, cfg *Config) *Gazetteer {
	g := &Gazetteer{
		cities:    ds.Cities,
		countries: ds.Countries,
		divisions: newDivisionTable(ds.Divisions),
		config:    cfg,
	}

	sort.SliceStable(g.cities, func(i, j int) bool {
		return toLower(g.cities[i].Name) < toLower(g.cities[j].Name)
	})

	g.nameIndex = make(map[string][]int)
	g.cellIndex = make(map[s2.CellID][]int)
	g.largest = make(map[string]int)
	for i, c := range g.cities {
		g.indexName(c.Name, i)
		for _, alt := range c.AltNames {
			g.indexName(alt, i)
		}

		cell := cellOf(c)
		g.cellIndex[cell] = append(g.cellIndex[cell], i)

		g.trackLargest(c.Country, i)
		if c.Region != "" {
			g.trackLargest(c.Country+"."+c.Region, i)
		}
	}

	g.countryIdx = make(map[string]int, len(g.countries)*3+len(countryAliases))
	for i, co := range g.countries {
		for _, k := range []string{co.ISO, co.ISO3, co.Country} {
			if k != "" {
				g.countryIdx[toLower(k)] = i
			}
		}
	}
	for alias, iso := range countryAliases {
		if i, ok := g.countryIdx[toLower(iso)]; ok {
			g.countryIdx[alias] = i
		}
	}
	return g
}

func (g *Gazetteer) indexName(name string, i int) {
	key := toLower(name)
	if key == "" {
		return
	}
	idx := g.nameIndex[key]
	if len(idx) > 0 && idx[len(idx)-1] == i {
		return
	}
	g.nameIndex[key] = append(idx, i)
}

func (g *Gazetteer) trackLargest(key string, i int) {
	if cur, ok := g.largest[key]; !ok || g.cities[i].Population > g.cities[cur].Population {
		g.largest[key] = i
	}
}

// Cities returns the number of loaded cities.
func (g *Gazetteer) Cities() int { return len(g.cities) }

// Countries returns the number of loaded countries.
func (g *Gazetteer) Countries() int { return len(g.countries) }

// Lookup implements filmmap.Geocoder.
func (g *Gazetteer) Lookup(ctx context.Context, query string) (filmmap.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return filmmap.Coordinate{}, err
	}
	c := g.Geocode(query, GeocodeOptions{FuzzyDistance: g.config.FuzzyDistance})
	if c.Name == "" {
		return filmmap.Coordinate{}, fmt.Errorf("%w: %q", filmmap.ErrNotFound, query)
	}
	return c.Coordinate(), nil
}

// Geocode converts a comma-separated place description ("Paris, Texas, USA")
// to a city. The first component names the place; the others qualify it by
// region or country. A zero City means no match.
//
// A place that names a country resolves to the country's capital, and a place
// that names an admin division of a qualified country resolves to the
// division's most populous city.
func (g *Gazetteer) Geocode(query string, opts ...GeocodeOptions) City {
	query = strings.TrimSpace(query)
	if runes := []rune(query); len(runes) > maxQueryLen {
		query = string(runes[:maxQueryLen])
	}

	options := GeocodeOptions{}
	if len(opts) > 0 {
		options = opts[0]
	}
	if options.FuzzyDistance > maxFuzzyDistance {
		options.FuzzyDistance = maxFuzzyDistance
	}

	parts := splitQuery(query)
	if len(parts) == 0 {
		return City{}
	}
	place, qualifiers := parts[0], parts[1:]
	countries := g.qualifiedCountries(qualifiers)

	if len(qualifiers) == 0 {
		if c, ok := g.countryCity(place); ok {
			return c
		}
	}
	if len(countries) > 0 {
		if c, ok := g.divisionCity(place, countries); ok {
			return c
		}
	}
	if c, ok := g.bestCity(place, qualifiers, countries, options); ok {
		return c
	}
	if c, ok := g.divisionCity(place, countries); ok {
		return c
	}
	if c, ok := g.countryCity(place); ok && countryAllowed(c.Country, countries) {
		return c
	}
	return City{}
}

func splitQuery(q string) []string {
	var parts []string
	for _, p := range strings.Split(q, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// qualifiedCountries returns the ISO codes named by qualifiers. Two-letter
// qualifiers are left out: "CA" is as likely California as Canada.
func (g *Gazetteer) qualifiedCountries(qualifiers []string) []string {
	var out []string
	for _, q := range qualifiers {
		if len(q) <= 2 {
			continue
		}
		if i, ok := g.countryIdx[toLower(q)]; ok {
			out = append(out, g.countries[i].ISO)
		}
	}
	return out
}

func countryAllowed(iso string, countries []string) bool {
	if len(countries) == 0 {
		return true
	}
	for _, c := range countries {
		if c == iso {
			return true
		}
	}
	return false
}

// countryCity resolves a country name to its capital, or to its most
// populous city when the capital is not in the dataset.
func (g *Gazetteer) countryCity(place string) (City, bool) {
	i, ok := g.countryIdx[toLower(place)]
	if !ok {
		return City{}, false
	}
	co := g.countries[i]

	best := -1
	for _, idx := range g.nameIndex[toLower(co.Capital)] {
		if g.cities[idx].Country != co.ISO {
			continue
		}
		if best < 0 || g.cities[idx].Population > g.cities[best].Population {
			best = idx
		}
	}
	if best < 0 {
		if best, ok = g.largest[co.ISO]; !ok {
			return City{}, false
		}
	}
	return g.cities[best], true
}

// divisionCity resolves an admin division name to its most populous city.
func (g *Gazetteer) divisionCity(place string, countries []string) (City, bool) {
	best := -1
	for _, key := range g.divisions.lookup(place) {
		d := g.divisions.byKey[key]
		if !countryAllowed(d.Country, countries) {
			continue
		}
		idx, ok := g.largest[key]
		if !ok {
			continue
		}
		if best < 0 || g.cities[idx].Population > g.cities[best].Population {
			best = idx
		}
	}
	if best < 0 {
		return City{}, false
	}
	return g.cities[best], true
}

// bestCity scores every city named place (or within the fuzzy distance of it)
// against the qualifiers. Ties go to the larger population, then the lower index.
func (g *Gazetteer) bestCity(place string, qualifiers, countries []string, opts GeocodeOptions) (City, bool) {
	candidates := make(map[int]int)
	for _, idx := range g.nameIndex[toLower(place)] {
		candidates[idx] = 0
	}
	if opts.FuzzyDistance > 0 && len([]rune(place)) > 2 {
		for key, indices := range g.nameIndex {
			if fuzzyMatch(place, key, opts.FuzzyDistance) {
				for _, idx := range indices {
					candidates[idx] = 0
				}
			}
		}
	}

	best, bestScore := -1, -1
	for idx := range candidates {
		c := g.cities[idx]
		if !countryAllowed(c.Country, countries) {
			continue
		}

		score := g.score(c, place, qualifiers, opts)
		switch {
		case best < 0, score > bestScore:
		case score == bestScore && c.Population > g.cities[best].Population:
		case score == bestScore && c.Population == g.cities[best].Population && idx < best:
		default:
			continue
		}
		best, bestScore = idx, score
	}
	if best < 0 {
		return City{}, false
	}
	return g.cities[best], true
}

func (g *Gazetteer) score(c City, place string, qualifiers []string, opts GeocodeOptions) int {
	score := 0
	switch {
	case strings.EqualFold(place, c.Name):
		score += 7
	case hasAltName(c, place):
		score += 5
	case opts.FuzzyDistance > 0:
		score += 3
	}

	for _, q := range qualifiers {
		if g.divisions.matches(c.Country, c.Region, q) {
			score += 5
		}
		if i, ok := g.countryIdx[toLower(q)]; ok && g.countries[i].ISO == c.Country {
			score += 4
		}
	}
	if c.Population >= 1000 {
		score++
	}
	return score
}

func hasAltName(c City, name string) bool {
	for _, alt := range c.AltNames {
		if strings.EqualFold(alt, name) {
			return true
		}
	}
	return false
}

// fuzzyMatch reports whether the edit distance between the lowercase forms of
// query and candidate is at most maxDist.
func fuzzyMatch(query, candidate string, maxDist int) bool {
	if maxDist == 0 {
		return strings.EqualFold(query, candidate)
	}
	return levenshtein.ComputeDistance(toLower(query), toLower(candidate)) <= maxDist
}

// ReverseGeocode returns the city nearest to lat/lng within ~100km, or a zero
// City.
func (g *Gazetteer) ReverseGeocode(lat, lng float64) City {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return City{}
	}

	query := s2.LatLngFromDegrees(lat, lng)
	cell := s2.CellIDFromLatLng(query).Parent(s2CellLevel)

	best, bestDist := -1, math.Inf(1)
	for _, c := range cellWithNeighbors(cell) {
		for _, idx := range g.cellIndex[c] {
			city := g.cities[idx]
			d := float64(query.Distance(s2.LatLngFromDegrees(float64(city.Latitude), float64(city.Longitude))))
			if best >= 0 && !closer(d, city, bestDist, g.cities[best]) {
				continue
			}
			best, bestDist = idx, d
		}
	}
	if best < 0 || bestDist > maxReverseDistance {
		return City{}
	}
	return g.cities[best]
}

// closer orders reverse geocoding candidates by distance, then population
// (descending), then name.
func closer(d float64, c City, bestDist float64, best City) bool {
	if d != bestDist {
		return d < bestDist
	}
	if c.Population != best.Population {
		return c.Population > best.Population
	}
	return c.Name < best.Name
}

// cellOf returns the index cell containing c.
func cellOf(c City) s2.CellID {
	ll := s2.LatLngFromDegrees(float64(c.Latitude), float64(c.Longitude))
	return s2.CellIDFromLatLng(ll).Parent(s2CellLevel)
}

// cellWithNeighbors returns cell, its 4 edge neighbours and the 4 corner cells.
func cellWithNeighbors(cell s2.CellID) []s2.CellID {
	cells := make([]s2.CellID, 0, 9)
	cells = append(cells, cell)
	seen := map[s2.CellID]bool{cell: true}

	edges := cell.EdgeNeighbors()
	for _, e := range edges {
		if !seen[e] {
			seen[e] = true
			cells = append(cells, e)
		}
	}
	for _, e := range edges {
		for _, corner := range e.EdgeNeighbors() {
			if !seen[corner] {
				seen[corner] = true
				cells = append(cells, corner)
			}
		}
	}
	return cells
}

// Label describes the place nearest to c as "City, Region, Country", or
// returns "" when nothing is within range.
func (g *Gazetteer) Label(c filmmap.Coordinate) string {
	city := g.ReverseGeocode(c.Lat, c.Lon)
	if city.Name == "" {
		return ""
	}

	parts := []string{city.Name}
	if region := g.divisions.name(city.Country, city.Region); region != "" && region != city.Name {
		parts = append(parts, region)
	}
	country := city.Country
	if i, ok := g.countryIdx[toLower(city.Country)]; ok {
		country = g.countries[i].Country
	}
	if country != "" {
		parts = append(parts, country)
	}
	return strings.Join(parts, ", ")
}

// toLower is Unicode-aware; Geonames names are UTF-8 ("Zürich", "東京").
func toLower(s string) string {
	return strings.ToLower(s)
}

package gazetteer

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DataSourceID identifies a raw Geonames dump.
type DataSourceID string

const (
	DataSourceCities    DataSourceID = "geonamesCities1000"
	DataSourceCountries DataSourceID = "geonamesCountryInfo"
	DataSourceAdmin1    DataSourceID = "geonamesAdmin1Codes"
)

// DataSource is a raw dump and where it is downloaded from.
type DataSource struct {
	URL  string       // Download URL
	File string       // File name inside the data directory
	ID   DataSourceID // Identifier for processing logic
}

var dataSources = []DataSource{
	{URL: "https://download.geonames.org/export/dump/cities1000.zip", File: "cities1000.zip", ID: DataSourceCities},
	{URL: "https://download.geonames.org/export/dump/countryInfo.txt", File: "countryInfo.txt", ID: DataSourceCountries},
	{URL: "https://download.geonames.org/export/dump/admin1CodesASCII.txt", File: "admin1CodesASCII.txt", ID: DataSourceAdmin1},
}

// Geonames column counts.
const (
	cityFieldCount    = 19
	countryFieldCount = 19
)

// downloadMu serializes downloads so concurrent New calls cannot corrupt files.
var downloadMu sync.Mutex

var httpClient = &http.Client{
	Timeout: 30 * time.Second,
}

// download fetches every missing raw dump into dataDir.
func download(dataDir string, logger *zap.Logger) error {
	downloadMu.Lock()
	defer downloadMu.Unlock()

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	for _, src := range dataSources {
		path := filepath.Join(dataDir, src.File)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		logger.Info("downloading geonames dump", zap.String("source", string(src.ID)), zap.String("url", src.URL))
		if err := downloadFile(src.URL, path); err != nil {
			return fmt.Errorf("downloading %s: %w", src.ID, err)
		}
	}
	return nil
}

func downloadFile(url, path string) (err error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP GET %s: status %d", url, resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	defer func() {
		err = multierr.Append(err, out.Close())
		if err != nil {
			os.Remove(path) // partial file
		}
	}()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	return nil
}

// dataset is everything parsed from the raw dumps or the cache.
type dataset struct {
	Cities    []City
	Countries []CountryInfo
	Divisions []AdminDivision
}

// loadRaw parses the raw dumps found in dataDir.
func loadRaw(dataDir string) (*dataset, error) {
	ds := &dataset{}
	for _, src := range dataSources {
		path := filepath.Join(dataDir, src.File)
		var err error
		switch src.ID {
		case DataSourceCities:
			ds.Cities, err = loadCitiesZip(path)
		case DataSourceCountries:
			err = withFile(path, func(r io.Reader) (err error) {
				ds.Countries, err = parseCountries(r)
				return err
			})
		case DataSourceAdmin1:
			err = withFile(path, func(r io.Reader) (err error) {
				ds.Divisions, err = parseAdminDivisions(r)
				return err
			})
		}
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", src.ID, err)
		}
	}
	return ds, nil
}

func withFile(path string, fn func(io.Reader) error) error {
	fi, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fi.Close()
	return fn(fi)
}

// loadCitiesZip reads every entry of a Geonames cities zip. Entries are only
// streamed into memory, never extracted to disk.
func loadCitiesZip(path string) ([]City, error) {
	rz, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening zip file: %w", err)
	}
	defer rz.Close()

	var cities []City
	for _, f := range rz.File {
		cs, err := readZipEntry(f)
		if err != nil {
			return nil, err
		}
		cities = append(cities, cs...)
	}
	return cities, nil
}

func readZipEntry(f *zip.File) ([]City, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s in zip: %w", f.Name, err)
	}
	defer rc.Close()
	return parseCities(rc)
}

// parseCities reads the Geonames "geoname" table (19 tab-separated columns).
// Rows with unparseable coordinates are skipped rather than placed at (0,0).
func parseCities(r io.Reader) ([]City, error) {
	var cities []City

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), "\t", cityFieldCount)
		if len(fields) != cityFieldCount {
			continue
		}

		lat, errLat := strconv.ParseFloat(fields[4], 32)
		lng, errLng := strconv.ParseFloat(fields[5], 32)
		if errLat != nil || errLng != nil {
			continue
		}
		pop, _ := strconv.Atoi(fields[14])

		c := City{
			Name:       strings.TrimSpace(fields[1]),
			AltNames:   splitAltNames(fields[3]),
			Country:    fields[8],
			Region:     fields[10],
			Latitude:   float32(lat),
			Longitude:  float32(lng),
			Population: int32(pop),
		}
		if c.Name != "" {
			cities = append(cities, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading cities: %w", err)
	}
	return cities, nil
}

func splitAltNames(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, raw := range strings.Split(s, ",") {
		if alt := strings.TrimSpace(raw); alt != "" {
			out = append(out, alt)
		}
	}
	return out
}

// parseCountries reads countryInfo.txt; comment lines start with '#'.
func parseCountries(r io.Reader) ([]CountryInfo, error) {
	var out []CountryInfo

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		t := scanner.Text()
		if len(t) == 0 || t[0] == '#' {
			continue
		}

		fields := strings.SplitN(t, "\t", countryFieldCount)
		if len(fields) != countryFieldCount || fields[0] == "" {
			continue
		}

		pop, _ := strconv.Atoi(fields[7])
		out = append(out, CountryInfo{
			ISO:        fields[0],
			ISO3:       fields[1],
			Country:    fields[4],
			Capital:    fields[5],
			Population: int32(pop),
			Continent:  fields[8],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading countries: %w", err)
	}
	return out, nil
}

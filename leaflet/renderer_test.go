package leaflet

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/andreiashu/filmmap"
)

var (
	lyon       = filmmap.Coordinate{Lat: 45.7640, Lon: 4.8357}
	losAngeles = filmmap.Coordinate{Lat: 34.0522, Lon: -118.2437}
	chernobyl  = filmmap.Coordinate{Lat: 51.2763, Lon: 30.2219}
)

type staticLabeler string

func (l staticLabeler) Label(filmmap.Coordinate) string { return string(l) }

func sampleData() filmmap.MapData {
	return filmmap.MapData{
		Reference:  lyon,
		Year:       "2006",
		RegionName: "Chornobyl",
		Ranked: []filmmap.FilmRecord{
			{Title: `"Café Noir" (2006)`, Location: "Lyon, France", Coordinate: lyon},
			{Title: "#1 Single (2006)", Location: "Los Angeles, California, USA", Coordinate: losAngeles},
			{Title: "Second Take (2006)", Location: "Los Angeles, California, USA", Coordinate: losAngeles},
			{Title: "Third Take (2006)", Location: "Los Angeles, California, USA", Coordinate: losAngeles},
		},
		Regional: []filmmap.RegionRecord{
			{Title: "Zone (2006)", Location: "Chernobyl, Ukraine", Coordinate: chernobyl},
			{Title: "Extreme (2009)", Location: "Chernobyl, Ukraine", Coordinate: chernobyl},
			{Title: "Stalker (1979)", Location: "Chernobyl, Ukraine", Coordinate: chernobyl},
		},
	}
}

func TestRankedMarkersNudgesRepeats(t *testing.T) {
	markers := rankedMarkers(sampleData().Ranked)
	require.Len(t, markers, 4)

	assert.Equal(t, lyon.Lat, markers[0].Lat)
	assert.Equal(t, losAngeles.Lat, markers[1].Lat)
	assert.InDelta(t, losAngeles.Lat+nudge, markers[2].Lat, 1e-12)
	assert.InDelta(t, losAngeles.Lat+2*nudge, markers[3].Lat, 1e-12)
	for _, m := range markers[1:] {
		assert.Equal(t, losAngeles.Lon, m.Lon)
	}
	assert.Equal(t, "Second Take (2006)", markers[2].Popup)
}

func TestRankedMarkersDistinctPositions(t *testing.T) {
	records := []filmmap.FilmRecord{
		{Title: "a", Coordinate: lyon},
		{Title: "b", Coordinate: filmmap.Coordinate{Lat: lyon.Lat + 0.01, Lon: lyon.Lon}},
	}
	markers := rankedMarkers(records)
	assert.Equal(t, lyon.Lat, markers[0].Lat)
	assert.Equal(t, lyon.Lat+0.01, markers[1].Lat)
}

func TestRegionalMarkersSpread(t *testing.T) {
	markers := regionalMarkers(sampleData().Regional)
	require.Len(t, markers, 3)

	offsets := []float64{0, -nudge, 2 * nudge}
	for i, m := range markers {
		assert.InDelta(t, chernobyl.Lat+offsets[i], m.Lat, 1e-12, "marker %d", i)
		assert.InDelta(t, chernobyl.Lon+offsets[i], m.Lon, 1e-12, "marker %d", i)
	}
}

func TestPage(t *testing.T) {
	r := New(WithLabeler(staticLabeler("Lyon, Auvergne-Rhône-Alpes, France")))
	p := r.page(sampleData())

	assert.Equal(t, DefaultZoom, p.Zoom)
	assert.Equal(t, "Lyon, Auvergne-Rhône-Alpes, France", p.Reference.Popup)
	assert.Equal(t, lyon.Lat, p.Reference.Lat)
	require.Len(t, p.Layers, 2)
	assert.Equal(t, "2006 Films", p.Layers[0].Name)
	assert.Len(t, p.Layers[0].Markers, 4)
	assert.Equal(t, "Chornobyl Films", p.Layers[1].Name)
	assert.Len(t, p.Layers[1].Markers, 3)
}

func TestPageFallbacks(t *testing.T) {
	data := filmmap.MapData{Reference: lyon, Year: "1999"}

	p := New(WithLabeler(staticLabeler(""))).page(data)
	assert.Equal(t, lyon.String(), p.Reference.Popup)
	assert.Equal(t, filmmap.DefaultRegionName+" Films", p.Layers[1].Name)
	assert.NotNil(t, p.Layers[0].Markers)
	assert.Empty(t, p.Layers[0].Markers)
}

func TestRender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	out := filepath.Join(t.TempDir(), "maps", "film_map.html")
	r := New(WithOutput(out), WithZoom(8), WithLogger(zap.New(core)))
	assert.Equal(t, out, r.Output())

	require.NoError(t, r.Render(context.Background(), sampleData()))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	html := string(b)
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "2006 Films")
	assert.Contains(t, html, "Chornobyl Films")
	assert.Contains(t, html, "Zone (2006)")
	assert.Contains(t, html, "L.control.layers")
	assert.Contains(t, html, `"zoom":8`)
	assert.NotContains(t, html, "<script>alert")

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")

	require.Equal(t, 1, logs.FilterMessage("map written").Len())
	assert.Equal(t, int64(4), logs.All()[0].ContextMap()["ranked"])
}

func TestRenderEscapesTitles(t *testing.T) {
	out := filepath.Join(t.TempDir(), "map.html")
	data := filmmap.MapData{
		Reference: lyon,
		Year:      "2006",
		Ranked: []filmmap.FilmRecord{
			{Title: "</script><script>alert(1)</script>", Coordinate: lyon},
		},
	}
	require.NoError(t, New(WithOutput(out)).Render(context.Background(), data))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "<script>alert(1)")
}

func TestRenderReplacesExistingFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "film_map.html")
	require.NoError(t, os.WriteFile(out, []byte("old"), 0644))

	require.NoError(t, New(WithOutput(out)).Render(context.Background(), sampleData()))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotEqual(t, "old", string(b))
}

func TestRenderCanceled(t *testing.T) {
	out := filepath.Join(t.TempDir(), "film_map.html")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(WithOutput(out)).Render(ctx, sampleData())
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, out)
}

func TestRenderUnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the output file makes the final rename fail.
	out := filepath.Join(dir, "film_map.html")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "child"), 0755))

	err := New(WithOutput(out)).Render(context.Background(), sampleData())
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is removed on failure")
}

func TestNewDefaults(t *testing.T) {
	r := New(WithOutput(""))
	assert.Equal(t, DefaultOutput, r.Output())
	assert.Equal(t, DefaultTileURL, r.config.TileURL)

	r = New(WithTiles("https://tiles.example/{z}/{x}/{y}.png", "example"))
	assert.Equal(t, "example", r.config.Attribution)
}

var _ filmmap.Renderer = (*Renderer)(nil)

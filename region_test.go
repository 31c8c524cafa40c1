package filmmap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsAny(t *testing.T) {
	match := ContainsAny(DefaultRegionTargets...)

	assert.True(t, match("\"Extreme\" (2009) {Tours}\tChernobyl, Ukraine"))
	assert.True(t, match("\"Zone\" (2006)\tPripyat, Ukraine"))
	assert.False(t, match("\"10\" (2009)\tKuala Lumpur, Malaysia"))
	assert.False(t, match("Chernobyl (2019)\tKyiv, Ukraine"))

	none := ContainsAny()
	assert.False(t, none("anything"))
	empty := ContainsAny("")
	assert.False(t, empty("anything"))
}

func TestRegionFilter(t *testing.T) {
	lines := []string{
		"\"Extreme\" (2009) {Tours}\tChernobyl, Ukraine",
		"\"10\" (2009)\tKuala Lumpur, Malaysia\t(on location)",
		"\"Zone\" (2006)\tPripyat, Ukraine",
		"\"Extreme\" (2009) {Tours}\tChernobyl, Ukraine",
	}
	f := NewRegionFilter(NewResolver(newFakeGeocoder()), nil)

	got, err := f.Filter(context.Background(), lines, ContainsAny(DefaultRegionTargets...))
	require.NoError(t, err)
	assert.Equal(t, []RegionRecord{
		{Title: "\"Extreme\" (2009) {Tours}", Location: "Chernobyl, Ukraine", Coordinate: chernobyl},
		{Title: "\"Zone\" (2006)", Location: "Pripyat, Ukraine", Coordinate: Coordinate{Lat: 51.4045, Lon: 30.0542}},
		{Title: "\"Extreme\" (2009) {Tours}", Location: "Chernobyl, Ukraine", Coordinate: chernobyl},
	}, got)
}

func TestRegionFilterSkips(t *testing.T) {
	g := newFakeGeocoder()
	lines := []string{
		// one field only
		"\"Extreme\" (2009) Chernobyl, Ukraine",
		// matches the target but the location itself never resolves
		"\"Hidden\" (2010)\tRed Forest, Chernobyl, Ukraine, Nowhere",
	}
	f := NewRegionFilter(NewResolver(g), nil)

	got, err := f.Filter(context.Background(), lines, ContainsAny(DefaultRegionTargets...))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotContains(t, g.calls, "\"Extreme\" (2009) Chernobyl, Ukraine")
}

func TestRegionFilterCustomPredicate(t *testing.T) {
	lines := []string{
		"A (2001)\tParis, France",
		"B (2002)\tLyon, Rhône, France",
		"C (2003)\tChernobyl, Ukraine",
	}
	f := NewRegionFilter(NewResolver(newFakeGeocoder()), nil)

	got, err := f.Filter(context.Background(), lines, ContainsAny(", France"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A (2001)", got[0].Title)
	assert.Equal(t, "B (2002)", got[1].Title)
}

package gazetteer

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAdminDivisions(t *testing.T) {
	fh, err := os.Open("testdata/admin1CodesASCII.txt")
	require.NoError(t, err)
	defer fh.Close()

	divs, err := parseAdminDivisions(fh)
	require.NoError(t, err)
	require.Len(t, divs, 14)

	assert.Equal(t, AdminDivision{Country: "US", Code: "NY", Name: "New York", ASCIIName: "New York"}, divs[0])
}

func TestParseAdminDivisionsSkipsMalformed(t *testing.T) {
	input := "# comment\n\nnodot\tName\n.XX\tName\nUS.\tName\nUS.TX\tTexas\n"
	divs, err := parseAdminDivisions(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, divs, 1)
	assert.Equal(t, "TX", divs[0].Code)
	assert.Equal(t, "", divs[0].ASCIIName)
}

func TestDivisionTable(t *testing.T) {
	table := newDivisionTable([]AdminDivision{
		{Country: "US", Code: "TX", Name: "Texas", ASCIIName: "Texas"},
		{Country: "FR", Code: "11", Name: "Île-de-France", ASCIIName: "Ile-de-France"},
		{Country: "CA", Code: "08", Name: "Ontario", ASCIIName: "Ontario"},
	})

	assert.Equal(t, "Texas", table.name("US", "TX"))
	assert.Equal(t, "", table.name("US", "ZZ"))

	tests := []struct {
		country, code, q string
		want             bool
	}{
		{"US", "TX", "tx", true},
		{"US", "TX", "texas", true},
		{"FR", "11", "Île-de-France", true},
		{"FR", "11", "ile-de-france", true},
		{"FR", "11", "Paris", false},
		{"US", "", "", false},
		{"US", "CA", "California", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, table.matches(tt.country, tt.code, tt.q), "%s.%s %q", tt.country, tt.code, tt.q)
	}

	assert.Equal(t, []string{"CA.08"}, table.lookup("ONTARIO"))
	assert.Equal(t, []string{"FR.11"}, table.lookup("ile-de-france"))
	assert.Nil(t, table.lookup("Atlantis"))
}

package gazetteer

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"
)

// AdminDivision is a first-level administrative division (state, province,
// oblast...).
type AdminDivision struct {
	Country   string // ISO 3166-1 alpha-2 code (e.g., "US")
	Code      string // Admin1 code (e.g., "TX", "08")
	Name      string // Display name (e.g., "Texas", "Île-de-France")
	ASCIIName string // ASCII name (e.g., "Ile-de-France")
}

// key returns the "CC.CODE" form used by Geonames.
func (d AdminDivision) key() string {
	return d.Country + "." + d.Code
}

// parseAdminDivisions reads admin1CodesASCII.txt.
// Format: CC.CODE<tab>Name<tab>AsciiName<tab>GeonameId
func parseAdminDivisions(r io.Reader) ([]AdminDivision, error) {
	var out []AdminDivision

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		country, code, ok := strings.Cut(fields[0], ".")
		if !ok || country == "" || code == "" {
			continue
		}

		d := AdminDivision{
			Country: country,
			Code:    code,
			Name:    strings.TrimSpace(fields[1]),
		}
		if len(fields) > 2 {
			d.ASCIIName = strings.TrimSpace(fields[2])
		}
		out = append(out, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading admin divisions: %w", err)
	}
	return out, nil
}

// divisionTable indexes admin divisions by country/code and by name.
type divisionTable struct {
	byKey  map[string]AdminDivision // "CC.CODE" -> division
	byName map[string][]string      // lowercase name -> "CC.CODE" keys
}

func newDivisionTable(divs []AdminDivision) divisionTable {
	t := divisionTable{
		byKey:  make(map[string]AdminDivision, len(divs)),
		byName: make(map[string][]string),
	}
	for _, d := range divs {
		k := d.key()
		t.byKey[k] = d
		for _, n := range []string{d.Name, d.ASCIIName} {
			n = toLower(n)
			if n == "" || slices.Contains(t.byName[n], k) {
				continue
			}
			t.byName[n] = append(t.byName[n], k)
		}
	}
	return t
}

// name returns the division name for a country and admin1 code, or "".
func (t divisionTable) name(country, code string) string {
	return t.byKey[country+"."+code].Name
}

// matches reports whether q names or codes the division (country, code).
func (t divisionTable) matches(country, code, q string) bool {
	if code == "" {
		return false
	}
	if strings.EqualFold(q, code) {
		return true
	}
	d, ok := t.byKey[country+"."+code]
	if !ok {
		return false
	}
	return strings.EqualFold(q, d.Name) || (d.ASCIIName != "" && strings.EqualFold(q, d.ASCIIName))
}

// lookup returns the "CC.CODE" keys of divisions named n.
func (t divisionTable) lookup(n string) []string {
	return t.byName[toLower(n)]
}

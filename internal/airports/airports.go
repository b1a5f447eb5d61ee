// Package airports resolves airport references (IATA codes, names, city
// phrases) against an embedded dataset, for distance and compensation
// calculations.
package airports

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
	"gopkg.in/yaml.v3"
)

//go:embed data/airports.yaml
var rawDataset []byte

// Airport is one dataset entry.
type Airport struct {
	IATA    string  `yaml:"iata" json:"iata"`
	Name    string  `yaml:"name" json:"name"`
	City    string  `yaml:"city" json:"city"`
	Country string  `yaml:"country" json:"country"` // ISO 3166-1 alpha-2
	Lat     float64 `yaml:"lat" json:"lat"`
	Lon     float64 `yaml:"lon" json:"lon"`
}

// Index is the loaded dataset with lookup tables. Safe for concurrent use
// after Load; it is never mutated.
type Index struct {
	all    []Airport
	byIATA map[string]Airport
}

// Load parses the embedded dataset.
func Load() (*Index, error) {
	var entries []Airport
	dec := yaml.NewDecoder(strings.NewReader(string(rawDataset)))
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("airports: parse dataset: %w", err)
	}

	ix := &Index{
		all:    entries,
		byIATA: make(map[string]Airport, len(entries)),
	}
	for _, a := range entries {
		code := strings.ToUpper(a.IATA)
		if len(code) != 3 {
			return nil, fmt.Errorf("airports: invalid IATA code %q for %q", a.IATA, a.Name)
		}
		if _, dup := ix.byIATA[code]; dup {
			return nil, fmt.Errorf("airports: duplicate IATA code %q", code)
		}
		ix.byIATA[code] = a
	}
	return ix, nil
}

// Lookup returns the airport for an IATA code.
func (ix *Index) Lookup(iata string) (Airport, bool) {
	a, ok := ix.byIATA[strings.ToUpper(strings.TrimSpace(iata))]
	return a, ok
}

// All returns every dataset entry.
func (ix *Index) All() []Airport {
	out := make([]Airport, len(ix.all))
	copy(out, ix.all)
	return out
}

// europeanCountries is the whitelist used for the client-facing airport
// list; the dataset also carries a few intercontinental hubs for long-haul
// distance estimates.
var europeanCountries = map[string]bool{
	"AT": true, "BE": true, "CH": true, "CZ": true, "DE": true,
	"DK": true, "ES": true, "FI": true, "FR": true, "GB": true,
	"GR": true, "HU": true, "IE": true, "IS": true, "IT": true,
	"NL": true, "NO": true, "PL": true, "PT": true, "RO": true,
	"SE": true, "TR": true,
}

// European returns the entries in European countries, dataset order.
func (ix *Index) European() []Airport {
	var out []Airport
	for _, a := range ix.all {
		if europeanCountries[a.Country] {
			out = append(out, a)
		}
	}
	return out
}

const fuzzyThreshold = 0.90

// Resolve matches a free-text airport reference: an exact IATA code, a
// case-insensitive name/city substring in either direction, then a
// Jaro-Winkler pass for misspelled or mistranscribed names. A trailing
// "airport" word from the extractors is ignored.
func (ix *Index) Resolve(token string) (Airport, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Airport{}, false
	}

	if len(token) == 3 {
		if a, ok := ix.Lookup(token); ok {
			return a, true
		}
	}

	needle := strings.ToLower(token)
	needle = strings.TrimSuffix(needle, " airport")
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return Airport{}, false
	}

	for _, a := range ix.all {
		name := strings.ToLower(a.Name)
		city := strings.ToLower(a.City)
		if name == needle || city == needle ||
			strings.Contains(name, needle) || strings.Contains(needle, name) {
			return a, true
		}
	}

	best := Airport{}
	bestScore := 0.0
	for _, a := range ix.all {
		score := matchr.JaroWinkler(needle, strings.ToLower(a.Name), false)
		if s := matchr.JaroWinkler(needle, strings.ToLower(a.City), false); s > score {
			score = s
		}
		if score > bestScore {
			best, bestScore = a, score
		}
	}
	if bestScore >= fuzzyThreshold {
		return best, true
	}
	return Airport{}, false
}

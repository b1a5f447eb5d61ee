package airports_test

import (
	"testing"

	"github.com/geniusjr001/claimsvoice/internal/airports"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	ix, err := airports.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ix.All()) < 40 {
		t.Errorf("dataset has %d entries, expected at least 40", len(ix.All()))
	}
	if len(ix.European()) >= len(ix.All()) {
		t.Error("European() did not filter out intercontinental hubs")
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	ix, err := airports.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a, ok := ix.Lookup("lhr")
	if !ok || a.Name != "London Heathrow" {
		t.Errorf("Lookup(lhr) = %+v, %v", a, ok)
	}
	if _, ok := ix.Lookup("XXX"); ok {
		t.Error("Lookup accepted an unknown code")
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	ix, err := airports.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		token string
		want  string // IATA, empty for no match
	}{
		{"LHR", "LHR"},
		{"London Heathrow Airport", "LHR"},
		{"amsterdam schiphol", "AMS"},
		{"Heathrow", "LHR"},
		{"Amsterdam Schipol Airport", "AMS"}, // misspelled, fuzzy pass
		{"Atlantis", ""},
		{"", ""},
	}
	for _, tt := range tests {
		a, ok := ix.Resolve(tt.token)
		if tt.want == "" {
			if ok {
				t.Errorf("Resolve(%q) matched %s, want no match", tt.token, a.IATA)
			}
			continue
		}
		if !ok || a.IATA != tt.want {
			t.Errorf("Resolve(%q) = %s, %v; want %s", tt.token, a.IATA, ok, tt.want)
		}
	}
}

package numword_test

import (
	"testing"

	"github.com/geniusjr001/claimsvoice/internal/convo/numword"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"one", 1, true},
		{"twelve", 12, true},
		{"twenty three", 23, true},
		{"twenty-three", 23, true},
		{"third", 3, true},
		{"twenty third", 23, true},
		{"one hundred", 100, true},
		{"two hundred and five", 205, true},
		{"two thousand twenty five", 2025, true},
		{"two thousand", 2000, true},
		{"15", 15, true},
		{"", 0, false},
		{"banana", 0, false},
		{"twenty bananas", 0, false},
	}
	for _, tt := range tests {
		got, ok := numword.Parse(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Parse(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseYear(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"2025", 2025, true},
		{"twenty twenty five", 2025, true},
		{"twenty nineteen", 2019, true},
		{"nineteen ninety nine", 1999, true},
		{"two thousand twenty five", 2025, true},
		{"two thousand and seven", 2007, true},
		{"1850", 0, false},
		{"soon", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := numword.ParseYear(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseYear(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

package convo_test

import (
	"testing"
	"time"

	"github.com/geniusjr001/claimsvoice/internal/convo"
)

func TestExtractDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"I flew on 2024-03-15 from London", "2024-03-15", true},
		{"15 march 2024", "2024-03-15", true},
		{"the 15th of march", "2026-03-15", true},
		{"march 15, 2024", "2024-03-15", true},
		{"july 15th", "2026-07-15", true},
		{"15/3/2024", "2024-03-15", true},
		{"15-3-24", "2024-03-15", true},
		{"on the twenty third of july twenty twenty five", "2025-07-23", true},
		{"23 july twenty twenty five", "2025-07-23", true},
		{"31 february 2024", "", false},
		{"no date here", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := convo.ExtractDate(tt.in, now)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ExtractDate(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

package convo_test

import (
	"testing"

	"github.com/geniusjr001/claimsvoice/internal/convo"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"my my name is jane", "my name is jane"},
		{"My my name", "My name"},
		{"b a", "ba"},
		{"b a 1 2 3", "ba123"},
		{"flight b a 1 2 3 today", "flight ba123 today"},
		{"5 6 5 7", "5657"},
		{"  spaced   out\ttext ", "spaced out text"},
		{"", ""},
		{"single", "single"},
	}
	for _, tt := range tests {
		if got := convo.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

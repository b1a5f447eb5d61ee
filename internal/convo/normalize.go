package convo

import (
	"strings"
	"unicode"
)

// Normalize cleans a noisy transcript before field extraction. Speech
// engines emit spelled-out call signs and digit strings as separate tokens
// ("b a 1 2 3", "5 6 5 7") and stutter whole words; extraction expects them
// re-joined.
//
// Steps, in order: collapse immediately repeated words (case-insensitive),
// merge runs of single letters (optionally followed by digit tokens) into
// one token, merge runs of single digits, squeeze whitespace.
func Normalize(raw string) string {
	tokens := strings.Fields(raw)
	tokens = collapseRepeats(tokens)
	tokens = mergeSpelled(tokens)
	return strings.Join(tokens, " ")
}

func collapseRepeats(tokens []string) []string {
	out := tokens[:0]
	for _, tok := range tokens {
		if len(out) > 0 && strings.EqualFold(out[len(out)-1], tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// mergeSpelled joins spelled-out letter and digit runs. A run of two or more
// single-letter tokens becomes one token; digit tokens directly after a
// letter run are appended to it ("b a 1 2 3" -> "ba123"). A run of two or
// more single-digit tokens is joined on its own ("5 6 5 7" -> "5657").
func mergeSpelled(tokens []string) []string {
	var out []string
	for i := 0; i < len(tokens); {
		if isSingleLetter(tokens[i]) && i+1 < len(tokens) && isSingleLetter(tokens[i+1]) {
			var b strings.Builder
			for i < len(tokens) && isSingleLetter(tokens[i]) {
				b.WriteString(tokens[i])
				i++
			}
			for i < len(tokens) && isDigits(tokens[i]) {
				b.WriteString(tokens[i])
				i++
			}
			out = append(out, b.String())
			continue
		}
		if isSingleDigit(tokens[i]) && i+1 < len(tokens) && isSingleDigit(tokens[i+1]) {
			var b strings.Builder
			for i < len(tokens) && isSingleDigit(tokens[i]) {
				b.WriteString(tokens[i])
				i++
			}
			out = append(out, b.String())
			continue
		}
		out = append(out, tokens[i])
		i++
	}
	return out
}

func isSingleLetter(s string) bool {
	return len(s) == 1 && unicode.IsLetter(rune(s[0]))
}

func isSingleDigit(s string) bool {
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

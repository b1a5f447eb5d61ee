// Package numword converts spoken English number phrases to integers.
//
// Speech-to-text engines frequently render numbers as words ("twenty third
// of july twenty twenty five"), so the date and delay extractors need a
// small word-to-number parser rather than strconv alone.
package numword

import (
	"strconv"
	"strings"
)

var units = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19,
}

var tens = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// ordinals covers the day-of-month forms speech engines produce.
var ordinals = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
	"eleventh": 11, "twelfth": 12, "thirteenth": 13, "fourteenth": 14,
	"fifteenth": 15, "sixteenth": 16, "seventeenth": 17, "eighteenth": 18,
	"nineteenth": 19, "twentieth": 20, "thirtieth": 30,
}

// Parse converts a number phrase such as "twenty three", "two thousand
// twenty five" or "23" to an integer. Hyphens and commas are treated as
// separators. It returns false when any token is not a recognized number
// word or numeral.
func Parse(phrase string) (int, bool) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	phrase = strings.NewReplacer("-", " ", ",", " ").Replace(phrase)
	tokens := strings.Fields(phrase)
	if len(tokens) == 0 {
		return 0, false
	}

	total, current := 0, 0
	seen := false
	for _, tok := range tokens {
		switch {
		case tok == "and":
			continue
		case tok == "hundred":
			if current == 0 {
				current = 1
			}
			current *= 100
			seen = true
		case tok == "thousand":
			if current == 0 {
				current = 1
			}
			total += current * 1000
			current = 0
			seen = true
		default:
			if v, ok := units[tok]; ok {
				current += v
				seen = true
				continue
			}
			if v, ok := tens[tok]; ok {
				current += v
				seen = true
				continue
			}
			if v, ok := ordinals[tok]; ok {
				current += v
				seen = true
				continue
			}
			if v, err := strconv.Atoi(tok); err == nil {
				current += v
				seen = true
				continue
			}
			return 0, false
		}
	}
	if !seen {
		return 0, false
	}
	return total + current, true
}

// ParseYear converts a spoken year to its numeric form. It understands the
// "twenty twenty five" convention (pairs of two-digit numbers), full phrases
// like "two thousand twenty five", and plain numerals. Results outside
// 1900-2999 are rejected.
func ParseYear(phrase string) (int, bool) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return 0, false
	}

	if y, err := strconv.Atoi(phrase); err == nil {
		return validYear(y)
	}

	// "twenty twenty five" style: leading "twenty"/"nineteen" names the
	// century, the remainder the two-digit year.
	for prefix, century := range map[string]int{"twenty": 2000, "nineteen": 1900} {
		rest, ok := strings.CutPrefix(phrase, prefix+" ")
		if !ok {
			continue
		}
		if v, ok := Parse(rest); ok && v < 100 {
			return validYear(century + v)
		}
	}

	if v, ok := Parse(phrase); ok {
		return validYear(v)
	}
	return 0, false
}

func validYear(y int) (int, bool) {
	if y < 1900 || y > 2999 {
		return 0, false
	}
	return y, true
}

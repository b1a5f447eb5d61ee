package convo

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/geniusjr001/claimsvoice/internal/convo/numword"
)

var monthNames = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may": 5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sept": 9, "sep": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

var (
	ordinalSuffix = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)\b`)
	isoDate       = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dayMonth      = regexp.MustCompile(`\b(\d{1,2})\s+(?:of\s+)?([a-z]+)`)
	monthDay      = regexp.MustCompile(`\b([a-z]+)\s+(\d{1,2})\b`)
	slashDate     = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`)
	wordedDate    = regexp.MustCompile(`\bon\s+((?:[a-z]+[\s-])*?[a-z]+)\s+of\s+([a-z]+)((?:\s+[a-z]+){0,4})`)
	leadingYear   = regexp.MustCompile(`^[\s,]*(\d{4})\b`)
	wordTokenRe   = regexp.MustCompile(`^[a-z]+(?:-[a-z]+)?$`)
)

// ExtractDate parses a flight date out of free text and returns it in
// strict ISO form (YYYY-MM-DD). It tries, in order: ISO as-is, numeric day
// + month name, month name + numeric day, D/M/Y numerics, and the fully
// spoken "on the twenty third of july twenty twenty five" form. Day and
// year components may be number words. A missing year defaults to the
// current year; impossible calendar dates yield no match.
func ExtractDate(text string, now time.Time) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	t = ordinalSuffix.ReplaceAllString(t, "$1")

	if m := isoDate.FindStringSubmatch(t); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if iso, ok := buildISO(y, mo, d); ok {
			return iso, true
		}
	}

	for _, m := range dayMonth.FindAllStringSubmatchIndex(t, -1) {
		day, _ := strconv.Atoi(t[m[2]:m[3]])
		month, ok := monthNames[t[m[4]:m[5]]]
		if !ok {
			continue
		}
		year := yearFromTail(t[m[1]:], now)
		if iso, ok := buildISO(year, month, day); ok {
			return iso, true
		}
	}

	for _, m := range monthDay.FindAllStringSubmatchIndex(t, -1) {
		month, ok := monthNames[t[m[2]:m[3]]]
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(t[m[4]:m[5]])
		year := yearFromTail(t[m[1]:], now)
		if iso, ok := buildISO(year, month, day); ok {
			return iso, true
		}
	}

	if m := slashDate.FindStringSubmatch(t); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if y < 100 {
			y += 2000
		}
		if iso, ok := buildISO(y, mo, d); ok {
			return iso, true
		}
	}

	for _, m := range wordedDate.FindAllStringSubmatch(t, -1) {
		day, ok := numword.Parse(strings.TrimPrefix(m[1], "the "))
		if !ok {
			continue
		}
		month, ok := monthNames[m[2]]
		if !ok {
			continue
		}
		year := yearFromWords(m[3], now)
		if iso, ok := buildISO(year, month, day); ok {
			return iso, true
		}
	}

	return "", false
}

// yearFromTail inspects the text following a matched day+month for a year:
// a 4-digit numeral first, then up to four spoken number words. Anything
// else means the year was omitted and the current year applies.
func yearFromTail(tail string, now time.Time) int {
	if m := leadingYear.FindStringSubmatch(tail); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil && y >= 1900 && y <= 2999 {
			return y
		}
	}
	tail = strings.TrimLeft(tail, " ,")
	var words []string
	for _, w := range strings.Fields(tail) {
		if !wordTokenRe.MatchString(w) || len(words) == 4 {
			break
		}
		words = append(words, w)
	}
	for n := len(words); n >= 1; n-- {
		if y, ok := numword.ParseYear(strings.Join(words[:n], " ")); ok {
			return y
		}
	}
	return now.Year()
}

func yearFromWords(s string, now time.Time) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.Year()
	}
	words := strings.Fields(s)
	for n := len(words); n >= 1; n-- {
		if y, ok := numword.ParseYear(strings.Join(words[:n], " ")); ok {
			return y
		}
	}
	return now.Year()
}

// buildISO validates the calendar date by checking that time.Date does not
// normalize it away (February 31st becomes March 2nd, which is a reject).
func buildISO(year, month, day int) (string, bool) {
	if year < 1900 || year > 2999 || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

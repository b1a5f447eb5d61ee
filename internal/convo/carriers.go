package convo

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// carrierAliases maps lowercase match keys to canonical carrier names. Keys
// include short forms speech engines actually produce ("klm", "wizz").
var carrierAliases = map[string]string{
	"british airways":  "British Airways",
	"lufthansa":        "Lufthansa",
	"air france":       "Air France",
	"klm":              "KLM",
	"emirates":         "Emirates",
	"qatar":            "Qatar Airways",
	"etihad":           "Etihad Airways",
	"turkish airlines": "Turkish Airlines",
	"virgin":           "Virgin Atlantic",
	"ryanair":          "Ryanair",
	"easyjet":          "EasyJet",
	"wizz":             "Wizz Air",
	"aer lingus":       "Aer Lingus",
	"iberia":           "Iberia",
	"tap air":          "TAP Air Portugal",
	"tap portugal":     "TAP Air Portugal",
	"swiss":            "Swiss",
	"austrian":         "Austrian Airlines",
	"brussels airlines": "Brussels Airlines",
	"finnair":          "Finnair",
	"lot polish":       "LOT Polish Airlines",
	"norwegian":        "Norwegian",
	"vueling":          "Vueling",
	"eurowings":        "Eurowings",
	"condor":           "Condor",
	"tui":              "TUI Airways",
	"jet2":             "Jet2",
	"pegasus":          "Pegasus Airlines",
	"aegean":           "Aegean Airlines",
	"ita airways":      "ITA Airways",
	"air europa":       "Air Europa",
	"icelandair":       "Icelandair",
	"american airlines": "American Airlines",
	"delta":            "Delta Air Lines",
	"united":           "United Airlines",
	"air canada":       "Air Canada",
}

// matchKnownCarrier scans the alias table for a case-insensitive,
// word-bounded occurrence. Plain substring matching would let "tui" hit
// inside "intuition".
func matchKnownCarrier(text string) (string, bool) {
	lower := strings.ToLower(text)
	for key, canonical := range carrierAliases {
		if containsWord(lower, key) {
			return canonical, true
		}
	}
	return "", false
}

func containsWord(haystack, needle string) bool {
	for start := 0; ; {
		i := strings.Index(haystack[start:], needle)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(needle)
		beforeOK := i == 0 || !isWordByte(haystack[i-1])
		afterOK := end == len(haystack) || !isWordByte(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		start = i + 1
	}
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// carrierCodes precomputes Double Metaphone codes per canonical carrier so
// the phonetic pass does not re-encode the list on every turn.
type carrierCodes struct {
	canonical string
	lowered   string
	primary   string
	secondary string
}

var carrierIndex []carrierCodes

func init() {
	seen := make(map[string]bool)
	for _, canonical := range carrierAliases {
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		lowered := strings.ToLower(canonical)
		p, s := matchr.DoubleMetaphone(lowered)
		carrierIndex = append(carrierIndex, carrierCodes{
			canonical: canonical,
			lowered:   lowered,
			primary:   p,
			secondary: s,
		})
	}
}

// phoneticCarrier matches a short candidate phrase against the carrier list
// by sound rather than spelling, for misheard names ("luft hansa",
// "rine air"). It compares 1..3-token windows of the phrase: a window is a
// hit when its Double Metaphone code matches and Jaro-Winkler similarity is
// high, or when similarity alone is near-exact. The best-scoring hit wins.
func phoneticCarrier(phrase string) (string, bool) {
	tokens := strings.Fields(strings.ToLower(phrase))
	if len(tokens) == 0 || len(tokens) > 4 {
		return "", false
	}

	best := ""
	bestScore := 0.0
	for width := 1; width <= 3 && width <= len(tokens); width++ {
		for i := 0; i+width <= len(tokens); i++ {
			window := strings.Join(tokens[i:i+width], " ")
			joined := strings.Join(tokens[i:i+width], "")
			wp, ws := matchr.DoubleMetaphone(joined)
			for _, c := range carrierIndex {
				score := matchr.JaroWinkler(window, c.lowered, false)
				codeHit := wp != "" && (wp == c.primary || (ws != "" && ws == c.secondary))
				if (codeHit && score >= 0.80) || score >= 0.95 {
					if score > bestScore {
						best, bestScore = c.canonical, score
					}
				}
			}
		}
	}
	return best, best != ""
}

package convo

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/geniusjr001/claimsvoice/internal/convo/numword"
)

// Extractors are pure and best-effort: they return (value, ok) and never
// error. Absence means "ask again", not failure. All operate on normalized
// text (see Normalize) and are case-insensitive unless noted.

// --- Passenger name ---

var (
	nameLeadIn = regexp.MustCompile(`(?i)\b(?:my name is|name is|i am|i'm|im|this is|it is)[\s,:]+([a-zA-Z][a-zA-Z' -]{0,80})`)

	greetingPrefix = regexp.MustCompile(`(?i)^(?:hi|hello|hey|hiya|greetings|good morning|good afternoon|good evening)[\s,!.:]*`)
	leadInPrefix   = regexp.MustCompile(`(?i)^(?:my name is|my name's|my name|name is|i am|i'm|im|this is|it is)[\s,:]*`)

	nameWord = regexp.MustCompile(`^[A-Za-z][A-Za-z'-]*$`)
)

// nameStopWords end a name capture: "my name is jane doe and I flew..."
// keeps "jane doe".
var nameStopWords = map[string]bool{
	"and": true, "i": true, "from": true, "to": true, "on": true,
	"with": true, "at": true, "flying": true, "flew": true, "was": true,
	"my": true, "the": true,
}

// nameBlockWords reject obvious non-name captures from the capitalized-word
// fallback.
var nameBlockWords = map[string]bool{
	"airways": true, "airline": true, "airlines": true,
	"airport": true, "flight": true,
}

// ExtractName pulls a passenger name out of free text. It prefers an
// explicit lead-in phrase; failing that it accepts the first line's leading
// capitalized words (two or three) after stripping greetings.
func ExtractName(text string) (string, bool) {
	if m := nameLeadIn.FindStringSubmatch(text); m != nil {
		if name, ok := sanitizeName(m[1]); ok {
			return name, true
		}
	}

	line, _, _ := strings.Cut(text, "\n")
	line = greetingPrefix.ReplaceAllString(strings.TrimSpace(line), "")
	line = leadInPrefix.ReplaceAllString(line, "")
	words := strings.Fields(line)
	var lead []string
	for _, w := range words {
		if len(lead) == 3 {
			break
		}
		trimmed := strings.Trim(w, ".,!?:;\"()")
		if !nameWord.MatchString(trimmed) || !isCapitalized(trimmed) {
			break
		}
		if nameBlockWords[strings.ToLower(trimmed)] {
			return "", false
		}
		lead = append(lead, trimmed)
	}
	if len(lead) >= 2 {
		return sanitizeName(strings.Join(lead, " "))
	}
	return "", false
}

func isCapitalized(w string) bool {
	return w != "" && w[0] >= 'A' && w[0] <= 'Z'
}

// sanitizeName strips greetings, lead-ins and punctuation, cuts at the first
// stop word, keeps at most three words, and title-cases the result.
func sanitizeName(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = greetingPrefix.ReplaceAllString(s, "")
	s = leadInPrefix.ReplaceAllString(s, "")

	var words []string
	for _, w := range strings.Fields(s) {
		w = strings.Trim(w, ".,!?:;\"()")
		if w == "" {
			continue
		}
		if nameStopWords[strings.ToLower(w)] || !nameWord.MatchString(w) {
			break
		}
		words = append(words, titleWord(w))
		if len(words) == 3 {
			break
		}
	}
	if len(words) == 0 {
		return "", false
	}
	return strings.Join(words, " "), true
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}

// --- Contact email ---

var (
	emailLoose  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	emailStrict = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
)

// ExtractEmail captures an email-shaped token. The capture is deliberately
// loose; the turn logic re-validates with ValidEmail and clears anything
// that fails so the flow re-asks.
func ExtractEmail(text string) (string, bool) {
	m := emailLoose.FindString(text)
	if m == "" {
		return "", false
	}
	return strings.Trim(m, ".,;:!?"), true
}

// ValidEmail is the strict anchored check applied after capture.
func ValidEmail(v string) bool {
	return emailStrict.MatchString(v)
}

// --- Flight number ---

var (
	flightToken   = regexp.MustCompile(`^[A-Za-z]{1,4}[0-9]{1,6}$`)
	flightKeyword = regexp.MustCompile(`(?i)\bflight\b[\s,:#]*([A-Za-z]{1,4})[\s-]*([0-9]{1,6})\b`)
	wordToken     = regexp.MustCompile(`[A-Za-z0-9]+`)
	letterDigit   = regexp.MustCompile(`\b([A-Za-z]{1,4})\s+([0-9]{1,6})\b`)
	nonAlnum      = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// ExtractFlightNumber finds a carrier-code-plus-number designator. It
// prefers a single mixed token ("BA123") anywhere in the text, else a
// letter run and digit run next to the word "flight".
func ExtractFlightNumber(text string) (string, bool) {
	for _, tok := range wordToken.FindAllString(text, -1) {
		if flightToken.MatchString(tok) && hasLetterAndDigit(tok) {
			return strings.ToUpper(tok), true
		}
	}
	if m := flightKeyword.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1] + m[2]), true
	}
	return "", false
}

// RecoverFlightNumber is the extra noisy-form pass run only when the flight
// number is the field being asked for, so looser shapes are acceptable:
// separated letter and digit tokens, or the whole reply collapsed.
func RecoverFlightNumber(text string) (string, bool) {
	if v, ok := ExtractFlightNumber(text); ok {
		return v, true
	}
	if m := letterDigit.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1] + m[2]), true
	}
	collapsed := nonAlnum.ReplaceAllString(text, "")
	if flightToken.MatchString(collapsed) && hasLetterAndDigit(collapsed) {
		return strings.ToUpper(collapsed), true
	}
	return "", false
}

func hasLetterAndDigit(s string) bool {
	letters, digits := false, false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits = true
		default:
			letters = true
		}
	}
	return letters && digits
}

// --- Airline ---

var airlineFillerWords = map[string]bool{
	"yes": true, "no": true, "ok": true, "okay": true, "yeah": true,
	"sure": true, "um": true, "uh": true, "hmm": true, "what": true,
}

var airlineKeyword = regexp.MustCompile(`(?i)\b(?:airways|airlines?|always)\b`)

var airlineLeadIn = regexp.MustCompile(`(?i)^(?:i was flying with|i flew with|flying with|flight with|it was|with|the|on|to)\s+`)

// ExtractAirline matches against the known-carrier list first. When the
// airline is the active field a phonetic pass covers misheard names. As a
// last resort a short free-text reply is accepted if it mentions
// airways/airline(s), or "always" (a common mishearing of "Airways").
func ExtractAirline(text string, active bool) (string, bool) {
	if c, ok := matchKnownCarrier(text); ok {
		return c, true
	}

	cleaned := cleanAirlinePhrase(text)
	if cleaned == "" {
		return "", false
	}

	if active {
		if c, ok := phoneticCarrier(cleaned); ok {
			return c, true
		}
	}

	words := strings.Fields(cleaned)
	if len(words) > 5 || airlineFillerWords[strings.ToLower(cleaned)] {
		return "", false
	}
	if !airlineKeyword.MatchString(cleaned) {
		return "", false
	}
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " "), true
}

func cleanAirlinePhrase(text string) string {
	s := strings.TrimSpace(text)
	s = greetingPrefix.ReplaceAllString(s, "")
	s = airlineLeadIn.ReplaceAllString(s, "")
	s = strings.Trim(s, ".,!?:;\"")
	return Normalize(s)
}

// --- Airports ---

var (
	fromAirportPhrase = regexp.MustCompile(`(?i)\b(?:from|depart(?:ed|ing)?\s+(?:from|at))\s+([a-z][a-z -]{1,60}?)\s+airport\b`)
	toAirportPhrase   = regexp.MustCompile(`(?i)\b(?:to|towards|arriv(?:ed|ing)?\s+(?:at|in))\s+([a-z][a-z -]{1,60}?)\s+airport\b`)
	bareAirportPhrase = regexp.MustCompile(`(?i)\b([a-z][a-z -]{1,60}?)\s+airport\b`)
	fromPhrase        = regexp.MustCompile(`(?i)\bfrom\s+([a-z][a-z-]*(?:\s+[a-z][a-z-]*){0,3})`)
	toPhrase          = regexp.MustCompile(`(?i)\b(?:to|arriv(?:ed|ing)?\s+(?:at|in))\s+([a-z][a-z-]*(?:\s+[a-z][a-z-]*){0,3})`)
	iataToken         = regexp.MustCompile(`^[A-Za-z]{3}$`)
)

// airportPrepositions get stripped from the front of a bare "<phrase>
// airport" capture, which often swallows its own preposition.
var airportPrepositions = map[string]bool{
	"from": true, "to": true, "at": true, "in": true, "the": true,
	"towards": true, "departing": true, "departed": true, "leaving": true,
}

// ExtractDepartureAirport prefers a "from <phrase> airport" construction,
// then the first bare "<phrase> airport", then a plain from-led phrase. A
// single three-letter capture is treated as an IATA code.
func ExtractDepartureAirport(text string) (string, bool) {
	if m := fromAirportPhrase.FindStringSubmatch(text); m != nil {
		return titleAirport(m[1]), true
	}
	if phrases := bareAirportPhrase.FindAllStringSubmatch(text, -1); len(phrases) > 0 {
		if v, ok := stripPrepositions(phrases[0][1]); ok {
			return titleAirport(v), true
		}
	}
	if m := fromPhrase.FindStringSubmatch(text); m != nil {
		return airportFromLoosePhrase(m[1])
	}
	return "", false
}

// ExtractArrivalAirport mirrors the departure extractor with to-led
// constructions, using the last bare "<phrase> airport" occurrence.
// exclude prevents re-capturing the phrase already taken as the departure.
func ExtractArrivalAirport(text, exclude string) (string, bool) {
	if m := toAirportPhrase.FindStringSubmatch(text); m != nil {
		if v := titleAirport(m[1]); v != exclude {
			return v, true
		}
	}
	if phrases := bareAirportPhrase.FindAllStringSubmatch(text, -1); len(phrases) > 0 {
		for i := len(phrases) - 1; i >= 0; i-- {
			v, ok := stripPrepositions(phrases[i][1])
			if !ok {
				continue
			}
			if titled := titleAirport(v); titled != exclude {
				return titled, true
			}
		}
	}
	if m := toPhrase.FindStringSubmatch(text); m != nil {
		if v, ok := airportFromLoosePhrase(m[1]); ok && v != exclude {
			return v, true
		}
	}
	return "", false
}

func stripPrepositions(phrase string) (string, bool) {
	words := strings.Fields(phrase)
	for len(words) > 0 && airportPrepositions[strings.ToLower(words[0])] {
		words = words[1:]
	}
	if len(words) == 0 {
		return "", false
	}
	return strings.Join(words, " "), true
}

// airportStopWords end a loose preposition-led capture, which is otherwise
// greedy: "from london to amsterdam" must keep only "london".
var airportStopWords = map[string]bool{
	"to": true, "and": true, "on": true, "at": true, "in": true,
	"the": true, "my": true, "i": true, "was": true, "a": true,
	"airport": true, "arriving": true, "arrived": true, "delayed": true,
	"flight": true, "flying": true, "with": true,
}

// airportFromLoosePhrase handles preposition-led captures without the
// "airport" keyword: a lone three-letter word is an IATA code, anything
// longer becomes "<Title Case> Airport".
func airportFromLoosePhrase(phrase string) (string, bool) {
	var words []string
	for _, w := range strings.Fields(phrase) {
		if airportStopWords[strings.ToLower(w)] {
			break
		}
		words = append(words, w)
		if len(words) == 3 {
			break
		}
	}
	if len(words) == 0 {
		return "", false
	}
	if len(words) == 1 && iataToken.MatchString(words[0]) {
		return strings.ToUpper(words[0]), true
	}
	return titleAirport(strings.Join(words, " ")), true
}

func titleAirport(phrase string) string {
	words := strings.Fields(strings.TrimSpace(phrase))
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ") + " Airport"
}

// --- Delay hours ---

var (
	delayHM     = regexp.MustCompile(`(?i)\b(\d{1,2})\s*h\s*(\d{1,2})\b`)
	delayHours  = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)\b`)
	delayContig = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)(?:hours?|hrs?)\b`)
	hoursWord   = regexp.MustCompile(`(?i)\b(?:hours?|hrs?)\b`)
)

// ExtractDelay parses the delay duration in hours. "6h30" style merges to a
// fractional hour; spoken numbers ("six hours") are resolved via numword.
func ExtractDelay(text string) (string, bool) {
	if m := delayHM.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if min < 60 {
			return formatHours(float64(h) + float64(min)/60), true
		}
	}
	if m := delayHours.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return formatHours(v), true
		}
	}
	if m := delayContig.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return formatHours(v), true
		}
	}
	if hoursWord.MatchString(text) {
		for _, w := range strings.Fields(strings.ToLower(text)) {
			if v, ok := numword.Parse(w); ok && v >= 1 && v <= 20 {
				return formatHours(float64(v)), true
			}
		}
	}
	return "", false
}

func formatHours(v float64) string {
	v = math.Round(v*100) / 100
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// --- Airline response ---

var responseLeadIn = regexp.MustCompile(`(?i)\b(?:airline|they)\s+(?:said|responded|offered|told me)\s+(.{5,200})`)

// ExtractAirlineResponse is the passive capture for volunteered statements
// like "they offered meal vouchers". When the field is the one being asked
// for, the turn logic accepts the whole utterance verbatim instead.
func ExtractAirlineResponse(text string) (string, bool) {
	if m := responseLeadIn.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

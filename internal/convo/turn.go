package convo

import (
	"strconv"
	"strings"
	"time"
)

// turnResult is the internal outcome of one state-machine turn.
type turnResult struct {
	prompt string
	done   bool
	filled []string // field names that gained a value this turn
}

// runTurn applies one normalized utterance to a session: extraction pass in
// registry order over unset fields, strict email validation, the two
// active-field special cases, compensation auto-fill, claim-status
// sub-dialogue, and prompt selection. It mutates s; callers pass a clone
// and persist it only on success.
func (e *Engine) runTurn(s *Session, text string, now time.Time) turnResult {
	asked, _ := s.nextUnset(FieldCompensation)

	before := make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		before[k] = v
	}

	e.extractPass(s, text, now, asked.Name)

	emailInvalid := false
	if v, ok := s.Value(FieldContactEmail); ok && !ValidEmail(v) {
		s.clear(FieldContactEmail)
		emailInvalid = true
	}

	// Verbatim acceptance only applies to the reply to the response
	// question itself. Keying it off the post-extraction next field would
	// swallow whatever utterance happened to fill the field before it.
	if asked.Name == FieldAirlineResponse && !s.Filled(FieldAirlineResponse) && text != "" {
		s.set(FieldAirlineResponse, strings.TrimSpace(text))
	}

	next, hasNext := s.nextUnset()

	// Replies to the flight-number question get the extra noisy-form pass.
	if hasNext && next.Name == FieldFlightNumber && text != "" {
		if v, ok := RecoverFlightNumber(text); ok {
			s.set(FieldFlightNumber, v)
			next, hasNext = s.nextUnset()
		}
	}

	// Compensation is derived, never asked. Attempt the auto-fill and move
	// past it either way; review computes it on demand if it stays unset.
	if hasNext && next.Name == FieldCompensation {
		if amount, ok := e.compensationFor(s); ok {
			s.set(FieldCompensation, amount)
		}
		next, hasNext = s.nextUnset(FieldCompensation)
	}

	var filled []string
	for _, f := range registry {
		if v, ok := s.Values[f.Name]; ok && before[f.Name] != v {
			filled = append(filled, f.Name)
		}
	}
	newlyFilled := len(filled) > 0

	switch {
	case emailInvalid:
		return turnResult{prompt: invalidEmailMessage, filled: filled}
	case !hasNext:
		return turnResult{prompt: completionMessage, done: true, filled: filled}
	case next.Name == FieldClaimStatus:
		return e.claimStatusTurn(s, text, filled)
	case newlyFilled:
		return turnResult{prompt: freshPrompt(next), filled: filled}
	default:
		return turnResult{prompt: clarifyPrompt(next), filled: filled}
	}
}

// extractPass runs every unset field's extractor over the utterance, in
// registry order. asked is the field the previous prompt targeted; the
// airline extractor uses it to enable the phonetic pass.
func (e *Engine) extractPass(s *Session, text string, now time.Time, asked string) {
	if !s.Filled(FieldPassengerName) {
		if v, ok := ExtractName(text); ok {
			s.set(FieldPassengerName, v)
		}
	}
	if !s.Filled(FieldContactEmail) {
		if v, ok := ExtractEmail(text); ok {
			s.set(FieldContactEmail, v)
		}
	}
	if !s.Filled(FieldFlightNumber) {
		if v, ok := ExtractFlightNumber(text); ok {
			s.set(FieldFlightNumber, v)
		}
	}
	if !s.Filled(FieldFlightDate) {
		if v, ok := ExtractDate(text, now); ok {
			s.set(FieldFlightDate, v)
		}
	}
	if !s.Filled(FieldAirline) {
		if v, ok := ExtractAirline(text, asked == FieldAirline); ok {
			s.set(FieldAirline, v)
		}
	}
	if !s.Filled(FieldDepartureAirport) {
		if v, ok := ExtractDepartureAirport(text); ok {
			s.set(FieldDepartureAirport, v)
		}
	}
	if !s.Filled(FieldArrivalAirport) {
		dep, _ := s.Value(FieldDepartureAirport)
		if v, ok := ExtractArrivalAirport(text, dep); ok {
			s.set(FieldArrivalAirport, v)
		}
	}
	if !s.Filled(FieldDelayHours) {
		if v, ok := ExtractDelay(text); ok {
			s.set(FieldDelayHours, v)
		}
	}
	if !s.Filled(FieldAirlineResponse) {
		if v, ok := ExtractAirlineResponse(text); ok {
			s.set(FieldAirlineResponse, v)
		}
	}
}

// claimStatusTurn drives the sub-dialogue while Claim Status is the next
// field. Claim Status is last in the registry, so completing the
// sub-dialogue completes the session.
func (e *Engine) claimStatusTurn(s *Session, text string, filled []string) turnResult {
	switch out := claimStatusStep(s.ClaimStatusStep, text).(type) {
	case StepContinue:
		s.ClaimStatusStep = out.NextStep
		return turnResult{prompt: out.Prompt, filled: filled}
	case StepComplete:
		s.set(FieldClaimStatus, out.Status)
		filled = append(filled, FieldClaimStatus)
		return turnResult{prompt: completionMessage, done: true, filled: filled}
	default:
		return turnResult{prompt: errorMessage, filled: filled}
	}
}

// compensationFor asks the configured calculator for an amount based on the
// session's airports and delay. Missing capability or unresolvable airports
// simply leave the field unset.
func (e *Engine) compensationFor(s *Session) (string, bool) {
	if e.comp == nil {
		return "", false
	}
	origin, okO := s.Value(FieldDepartureAirport)
	dest, okD := s.Value(FieldArrivalAirport)
	delayStr, okH := s.Value(FieldDelayHours)
	if !okO || !okD || !okH {
		return "", false
	}
	delay, ok := parseDelayValue(delayStr)
	if !ok {
		return "", false
	}
	return e.comp.Compute(origin, dest, delay)
}

// parseDelayValue tolerates stray unit text around the stored number.
func parseDelayValue(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

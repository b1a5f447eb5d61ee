// Package convo implements the slot-filling conversation engine for flight
// delay compensation intake: the field registry, transcript normalizer,
// per-field extractors, the session state machine with its claim-status
// sub-dialogue, and the turn orchestrator.
package convo

import (
	"strings"
	"time"
)

// Canonical field names. These double as the keys of the collected map the
// clients render, so they stay human readable.
const (
	FieldPassengerName    = "Passenger Name"
	FieldContactEmail     = "Contact Email"
	FieldFlightNumber     = "Flight Number"
	FieldFlightDate       = "Flight Date"
	FieldAirline          = "Airline"
	FieldDepartureAirport = "Departure Airport"
	FieldArrivalAirport   = "Arrival Airport"
	FieldDelayHours       = "Delay Hours"
	FieldAirlineResponse  = "Airline Response"
	FieldCompensation     = "Compensation Amount"
	FieldClaimStatus      = "Claim Status"
)

// Machine-key forms kept in sync with their spaced counterparts for
// downstream consumers (CRM mapping, review form).
const (
	CompensationMachineKey = "Compensation_Amount"
	ClaimStatusMachineKey  = "Claim_Status"
)

// Field is one named slot in the claim record. Terminal fields are filled by
// special logic (compensation auto-fill, claim-status sub-dialogue) rather
// than a generic extractor and carry no spoken prompt of their own.
type Field struct {
	Name     string
	Key      string // machine key, spaces replaced by underscores
	Prompt   string // fresh prompt, asked when the field just became active
	Example  string // clarification with a worked example
	Terminal bool
}

// registry is the fixed collection order. Extraction, next-field selection
// and completion all follow this order; Claim Status must stay last so the
// sub-dialogue finishing implies the session is complete.
var registry = []Field{
	{
		Name:    FieldPassengerName,
		Prompt:  "What's your full name as it appears on your ticket?",
		Example: "Please provide your full name as it appears on your ticket (for example: John Doe).",
	},
	{
		Name:    FieldContactEmail,
		Prompt:  "It's quite unfair you had to go through all of that. Please type your email address into the text bar, we'll use it to contact you about your claim.",
		Example: "Please provide your email address (for example: name@example.com).",
	},
	{
		Name:    FieldFlightNumber,
		Prompt:  "What's your flight number? It usually looks like BA123.",
		Example: "Please provide your flight number (for example: BA123).",
	},
	{
		Name:    FieldFlightDate,
		Prompt:  "When was your flight? Please give the date.",
		Example: "Please provide the date of the flight (for example: July 15th, 2025).",
	},
	{
		Name:    FieldAirline,
		Prompt:  "Which airline were you flying with?",
		Example: "Please provide the airline name (for example: British Airways).",
	},
	{
		Name:    FieldDepartureAirport,
		Prompt:  "Which airport did you depart from?",
		Example: "Please provide the departure airport (for example: London Heathrow).",
	},
	{
		Name:    FieldArrivalAirport,
		Prompt:  "Which airport were you supposed to arrive at?",
		Example: "Please provide the arrival airport (for example: Amsterdam Schiphol).",
	},
	{
		Name:    FieldDelayHours,
		Prompt:  "About how many hours was your flight delayed?",
		Example: "Please tell me the delay duration in hours (for example: 3).",
	},
	{
		Name:    FieldAirlineResponse,
		Prompt:  "What did the airline say about your claim, if anything?",
		Example: "Please describe how the airline responded (for example: they only offered meal vouchers).",
	},
	{
		Name:     FieldCompensation,
		Terminal: true,
	},
	{
		Name:     FieldClaimStatus,
		Terminal: true,
	},
}

func init() {
	for i := range registry {
		registry[i].Key = strings.ReplaceAll(registry[i].Name, " ", "_")
	}
}

// Fields returns a copy of the registry in collection order.
func Fields() []Field {
	out := make([]Field, len(registry))
	copy(out, registry)
	return out
}

// FieldByName looks a field up by its canonical name.
func FieldByName(name string) (Field, bool) {
	for _, f := range registry {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Fixed conversational copy. The intake is voice-first, so these are written
// to be spoken.
const (
	introMessage = "Hi, welcome to 261 Claims. I'm here to help you check whether your delayed flight qualifies for compensation."

	openEndedPrompt = "Tell me what happened with your flight, in your own words."

	completionMessage = "Thank you. I have all the details. Please wait while I prepare your claim review..."

	errorMessage = "An error occurred. Please try again."

	invalidEmailMessage = "That doesn't look like a valid email address. Please type a valid email into the text bar (for example: name@example.com)."

	clarifyPrefix = "Sorry, I didn't catch that."

	textBarHint = "You can also use the text bar."
)

// FirstPrompt is the combined greeting played when a session starts.
func FirstPrompt() string {
	return introMessage + " " + openEndedPrompt
}

// didntCatchPrompt names the outstanding field so the caller knows what is
// still being asked for.
func didntCatchPrompt(field string) string {
	p := "I didn't catch that, could you repeat your response? " + textBarHint
	if field != "" {
		p += " (I'm asking for: " + field + ")"
	}
	return p
}

// freshPrompt and clarifyPrompt implement the two-tier prompt policy: a
// field that just became active gets its plain question, a field carried
// over unfilled gets the apologetic restatement with a worked example.
func freshPrompt(f Field) string { return f.Prompt }

func clarifyPrompt(f Field) string {
	return clarifyPrefix + " " + f.Example + " " + textBarHint
}

// Silence timeouts handed to the voice client alongside each prompt.
const (
	TimeoutOpenEnded  = 10 * time.Second
	TimeoutStandard   = 2500 * time.Millisecond
	TimeoutCompletion = 2500 * time.Millisecond
)

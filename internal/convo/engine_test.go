package convo_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geniusjr001/claimsvoice/internal/convo"
)

// mapStore is a minimal in-memory SessionStore for engine tests.
type mapStore struct {
	mu       sync.Mutex
	sessions map[string]*convo.Session
}

func newMapStore() *mapStore {
	return &mapStore{sessions: make(map[string]*convo.Session)}
}

func (m *mapStore) Create(_ context.Context, s *convo.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *mapStore) Get(_ context.Context, id string) (*convo.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, convo.ErrSessionNotFound)
	}
	return s.Clone(), nil
}

func (m *mapStore) Put(_ context.Context, s *convo.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return fmt.Errorf("put %q: %w", s.ID, convo.ErrSessionNotFound)
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *mapStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

type fixedComp struct {
	amount string
	ok     bool
}

func (f fixedComp) Compute(_, _ string, _ float64) (string, bool) {
	return f.amount, f.ok
}

func newTestEngine(t *testing.T, opts ...convo.Option) (*convo.Engine, *mapStore) {
	t.Helper()
	store := newMapStore()
	opts = append(opts, convo.WithClock(func() time.Time {
		return time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	}))
	return convo.NewEngine(store, opts...), store
}

func startSession(t *testing.T, e *convo.Engine) string {
	t.Helper()
	turn, err := e.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return turn.SessionID
}

func seedValues(t *testing.T, store *mapStore, id string, values map[string]string) {
	t.Helper()
	s, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("seed get: %v", err)
	}
	for k, v := range values {
		s.Values[k] = v
	}
	if err := store.Put(context.Background(), s); err != nil {
		t.Fatalf("seed put: %v", err)
	}
}

func TestStartSession(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	turn, err := e.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if turn.SessionID == "" {
		t.Error("Start returned an empty session id")
	}
	if !strings.Contains(turn.Prompt, "261 Claims") {
		t.Errorf("initial prompt missing greeting: %q", turn.Prompt)
	}
	if turn.Timeout != convo.TimeoutOpenEnded {
		t.Errorf("initial timeout = %v, want %v", turn.Timeout, convo.TimeoutOpenEnded)
	}
	if v := turn.Collected[convo.FieldPassengerName]; v != nil {
		t.Errorf("fresh session has a passenger name: %q", *v)
	}
}

func TestRespondUnknownSession(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	_, err := e.Respond(context.Background(), "nope", convo.TextInput{Text: "hello"})
	if !errors.Is(err, convo.ErrSessionNotFound) {
		t.Errorf("Respond unknown session error = %v, want ErrSessionNotFound", err)
	}
}

func TestRespondEndToEnd(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	id := startSession(t, e)

	turn, err := e.Respond(context.Background(), id, convo.TextInput{
		Text: "My name is Jane Doe, I flew BA123 on 2024-03-15 from London Heathrow Airport to Amsterdam Schiphol Airport, delayed 6 hours",
	})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	want := map[string]string{
		convo.FieldPassengerName:    "Jane Doe",
		convo.FieldFlightNumber:     "BA123",
		convo.FieldFlightDate:       "2024-03-15",
		convo.FieldDepartureAirport: "London Heathrow Airport",
		convo.FieldArrivalAirport:   "Amsterdam Schiphol Airport",
		convo.FieldDelayHours:       "6",
	}
	for name, wantV := range want {
		got := turn.Collected[name]
		if got == nil || *got != wantV {
			t.Errorf("field %q = %v, want %q", name, got, wantV)
		}
	}
	for _, name := range []string{
		convo.FieldContactEmail, convo.FieldAirline,
		convo.FieldAirlineResponse, convo.FieldClaimStatus,
	} {
		if v := turn.Collected[name]; v != nil {
			t.Errorf("field %q unexpectedly filled: %q", name, *v)
		}
	}
	if turn.Done {
		t.Error("turn reported done with fields outstanding")
	}
	// Email is the next unset field and several fields were just filled,
	// so the fresh email prompt is expected.
	if !strings.Contains(turn.Prompt, "email") {
		t.Errorf("next prompt = %q, want the email question", turn.Prompt)
	}
	if strings.Contains(turn.Prompt, "Sorry") {
		t.Errorf("got clarification instead of fresh prompt: %q", turn.Prompt)
	}
}

func TestRespondClarificationWhenNothingFills(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	id := startSession(t, e)

	// First turn fills the name, making email active.
	if _, err := e.Respond(context.Background(), id, convo.TextInput{Text: "my name is Jane Doe"}); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	// Second turn fills nothing, so the email question repeats as a
	// clarification.
	turn, err := e.Respond(context.Background(), id, convo.TextInput{Text: "what do you mean"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(turn.Prompt, "Sorry, I didn't catch that.") {
		t.Errorf("prompt = %q, want clarification", turn.Prompt)
	}
	if !strings.Contains(turn.Prompt, "name@example.com") {
		t.Errorf("clarification lacks the worked example: %q", turn.Prompt)
	}
}

func TestRespondEmptyInput(t *testing.T) {
	t.Parallel()

	e, store := newTestEngine(t)
	id := startSession(t, e)

	before, _ := store.Get(context.Background(), id)
	turn, err := e.Respond(context.Background(), id, convo.EmptyInput{})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(turn.Prompt, "didn't catch that") {
		t.Errorf("prompt = %q, want didn't-catch", turn.Prompt)
	}
	if !strings.Contains(turn.Prompt, convo.FieldPassengerName) {
		t.Errorf("prompt does not name the outstanding field: %q", turn.Prompt)
	}
	after, _ := store.Get(context.Background(), id)
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Error("empty input mutated the session")
	}
}

func TestRespondIdempotentFill(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	id := startSession(t, e)

	if _, err := e.Respond(context.Background(), id, convo.TextInput{Text: "my name is Jane Doe"}); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	turn, err := e.Respond(context.Background(), id, convo.TextInput{Text: "my name is John Smith"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got := turn.Collected[convo.FieldPassengerName]; got == nil || *got != "Jane Doe" {
		t.Errorf("name was overwritten: %v", got)
	}
}

func TestInvalidStoredEmailCleared(t *testing.T) {
	t.Parallel()

	e, store := newTestEngine(t)
	id := startSession(t, e)
	seedValues(t, store, id, map[string]string{
		convo.FieldPassengerName: "Jane Doe",
		convo.FieldContactEmail:  "jane@example",
	})

	turn, err := e.Respond(context.Background(), id, convo.TextInput{Text: "anything at all"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if v := turn.Collected[convo.FieldContactEmail]; v != nil {
		t.Errorf("invalid email not cleared: %q", *v)
	}
	if !strings.Contains(turn.Prompt, "valid email") {
		t.Errorf("prompt = %q, want invalid-email message", turn.Prompt)
	}
}

// allButStatus fills everything up to and including Airline Response so the
// claim-status sub-dialogue is next.
func allButStatus() map[string]string {
	return map[string]string{
		convo.FieldPassengerName:    "Jane Doe",
		convo.FieldContactEmail:     "jane@example.com",
		convo.FieldFlightNumber:     "BA123",
		convo.FieldFlightDate:       "2024-03-15",
		convo.FieldAirline:          "British Airways",
		convo.FieldDepartureAirport: "London Heathrow Airport",
		convo.FieldArrivalAirport:   "Amsterdam Schiphol Airport",
		convo.FieldDelayHours:       "6",
		convo.FieldAirlineResponse:  "they offered vouchers",
	}
}

func TestClaimStatusSubflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		replies    []string
		wantStatus string
	}{
		{"no at first question", []string{"no"}, convo.StatusNewClaim},
		{"yes then no", []string{"yes", "no"}, convo.StatusPending},
		{"yes then yes", []string{"yes", "yes"}, convo.StatusResolved},
		{"ambiguous reply re-asks", []string{"maybe", "yes", "no"}, convo.StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, store := newTestEngine(t)
			id := startSession(t, e)
			seedValues(t, store, id, allButStatus())

			// Entering the sub-dialogue: step 0 always asks the first
			// question regardless of this turn's text.
			turn, err := e.Respond(context.Background(), id, convo.TextInput{Text: "hello"})
			if err != nil {
				t.Fatalf("Respond: %v", err)
			}
			if !strings.Contains(turn.Prompt, "submitted a claim") {
				t.Fatalf("step-0 prompt = %q", turn.Prompt)
			}

			for i, reply := range tt.replies {
				turn, err = e.Respond(context.Background(), id, convo.TextInput{Text: reply})
				if err != nil {
					t.Fatalf("Respond(%q): %v", reply, err)
				}
				last := i == len(tt.replies)-1
				if turn.Done != last {
					t.Fatalf("after %q done = %v, want %v (prompt %q)", reply, turn.Done, last, turn.Prompt)
				}
			}
			if got := turn.Collected[convo.FieldClaimStatus]; got == nil || *got != tt.wantStatus {
				t.Errorf("claim status = %v, want %q", got, tt.wantStatus)
			}
			if !strings.Contains(turn.Prompt, "all the details") {
				t.Errorf("completion prompt = %q", turn.Prompt)
			}
		})
	}
}

func TestAmbiguousReplyKeepsStep(t *testing.T) {
	t.Parallel()

	e, store := newTestEngine(t)
	id := startSession(t, e)
	seedValues(t, store, id, allButStatus())

	if _, err := e.Respond(context.Background(), id, convo.TextInput{Text: "hello"}); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	turn, err := e.Respond(context.Background(), id, convo.TextInput{Text: "maybe"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(turn.Prompt, "yes or no") || !strings.Contains(turn.Prompt, "submitted a claim") {
		t.Errorf("ambiguous reply prompt = %q, want step-1 re-ask", turn.Prompt)
	}
	if turn.Done {
		t.Error("ambiguous reply completed the sub-dialogue")
	}
}

func TestCompensationAutoFill(t *testing.T) {
	t.Parallel()

	e, store := newTestEngine(t, convo.WithCompensator(fixedComp{amount: "€250.00", ok: true}))
	id := startSession(t, e)
	values := allButStatus()
	delete(values, convo.FieldAirlineResponse)
	seedValues(t, store, id, values)

	// Airline Response is the asked field; this reply is accepted verbatim,
	// then compensation auto-fills and the sub-dialogue starts.
	turn, err := e.Respond(context.Background(), id, convo.TextInput{Text: "They refused to pay anything"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got := turn.Collected[convo.FieldAirlineResponse]; got == nil || *got != "They refused to pay anything" {
		t.Errorf("airline response = %v", got)
	}
	for _, key := range []string{convo.FieldCompensation, convo.CompensationMachineKey} {
		if got := turn.Collected[key]; got == nil || *got != "€250.00" {
			t.Errorf("%s = %v, want €250.00", key, got)
		}
	}
	if !strings.Contains(turn.Prompt, "submitted a claim") {
		t.Errorf("prompt = %q, want claim-status question", turn.Prompt)
	}
}

func TestCompensationSkippedWhenUncomputable(t *testing.T) {
	t.Parallel()

	e, store := newTestEngine(t, convo.WithCompensator(fixedComp{ok: false}))
	id := startSession(t, e)
	values := allButStatus()
	delete(values, convo.FieldAirlineResponse)
	seedValues(t, store, id, values)

	turn, err := e.Respond(context.Background(), id, convo.TextInput{Text: "nothing useful from them"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got := turn.Collected[convo.FieldCompensation]; got != nil {
		t.Errorf("compensation = %q, want unset", *got)
	}
	// The flow moves past the uncomputable amount straight to the
	// claim-status question instead of asking for it.
	if !strings.Contains(turn.Prompt, "submitted a claim") {
		t.Errorf("prompt = %q, want claim-status question", turn.Prompt)
	}
}

func TestReviewDefaults(t *testing.T) {
	t.Parallel()

	e, store := newTestEngine(t, convo.WithCompensator(fixedComp{amount: "€400.00", ok: true}))
	id := startSession(t, e)
	seedValues(t, store, id, allButStatus())

	collected, err := e.Review(context.Background(), id)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if got := collected[convo.FieldClaimStatus]; got == nil || *got != convo.StatusNewClaim {
		t.Errorf("claim status = %v, want %q", got, convo.StatusNewClaim)
	}
	if got := collected[convo.ClaimStatusMachineKey]; got == nil || *got != convo.StatusNewClaim {
		t.Errorf("machine claim status = %v, want %q", got, convo.StatusNewClaim)
	}
	if got := collected[convo.FieldCompensation]; got == nil || *got != "€400.00" {
		t.Errorf("compensation = %v, want €400.00", got)
	}

	// Defaults persist.
	s, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if s.Values[convo.FieldClaimStatus] != convo.StatusNewClaim {
		t.Error("review defaults were not persisted")
	}
}

func TestHarvestMergesOverrides(t *testing.T) {
	t.Parallel()

	e, store := newTestEngine(t)
	id := startSession(t, e)
	seedValues(t, store, id, allButStatus())

	fields, _, err := e.Harvest(context.Background(), id, map[string]string{
		"Passenger_Name": "Janet Doe",
		"Delay_Hours":    "7",
		"Bogus_Field":    "ignored",
	})
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if fields[convo.FieldPassengerName] != "Janet Doe" {
		t.Errorf("override not applied: %q", fields[convo.FieldPassengerName])
	}
	if fields[convo.FieldDelayHours] != "7" {
		t.Errorf("delay override not applied: %q", fields[convo.FieldDelayHours])
	}
	if _, ok := fields["Bogus Field"]; ok {
		t.Error("unknown override leaked into the claim data")
	}
	if fields[convo.FieldClaimStatus] != convo.StatusNewClaim {
		t.Errorf("claim status default missing: %q", fields[convo.FieldClaimStatus])
	}

	// Harvest must not mutate the stored session.
	s, _ := store.Get(context.Background(), id)
	if s.Values[convo.FieldPassengerName] != "Jane Doe" {
		t.Error("Harvest mutated the stored session")
	}
}

func TestDocumentsLifecycle(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	id := startSession(t, e)

	doc := convo.Document{Filename: "20260830-receipt.pdf", OriginalName: "receipt.pdf", Size: 1024}
	if err := e.AddDocument(context.Background(), id, doc); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	docs, err := e.Documents(context.Background(), id)
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 1 || docs[0].Filename != doc.Filename {
		t.Fatalf("Documents = %+v", docs)
	}
	removed, err := e.RemoveDocument(context.Background(), id, doc.Filename)
	if err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}
	if removed.OriginalName != "receipt.pdf" {
		t.Errorf("removed = %+v", removed)
	}
	if _, err := e.RemoveDocument(context.Background(), id, doc.Filename); !errors.Is(err, convo.ErrDocumentNotFound) {
		t.Errorf("second remove error = %v, want ErrDocumentNotFound", err)
	}
}

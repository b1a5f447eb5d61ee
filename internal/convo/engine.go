package convo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned (possibly wrapped) by SessionStore
// implementations and Engine operations for unknown session ids.
var ErrSessionNotFound = errors.New("convo: session not found")

// ErrDocumentNotFound is returned when a document reference does not exist
// on the session.
var ErrDocumentNotFound = errors.New("convo: document not found")

// SessionStore persists sessions between turns. Implementations must be
// safe for concurrent use; the engine serializes turns per session id but
// different sessions run in parallel.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// Transcriber resolves audio input to text. Optional: an engine without one
// treats audio turns as empty input.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}

// Compensator computes a formatted compensation amount for a route and
// delay, or reports that it cannot (unresolvable airport). Optional.
type Compensator interface {
	Compute(origin, dest string, delayHours float64) (string, bool)
}

// Input is the tagged request variant the boundary layer normalizes into:
// typed or pre-transcribed text, raw audio, or nothing.
type Input interface{ isInput() }

// TextInput is typed text or an already-transcribed utterance.
type TextInput struct{ Text string }

// AudioInput is a recorded clip still needing transcription.
type AudioInput struct {
	Data        []byte
	ContentType string
}

// EmptyInput marks a turn where the user said nothing.
type EmptyInput struct{}

func (TextInput) isInput()  {}
func (AudioInput) isInput() {}
func (EmptyInput) isInput() {}

// Turn is the outcome of a conversation round-trip.
type Turn struct {
	SessionID string
	Prompt    string
	Collected map[string]*string
	Done      bool
	Timeout   time.Duration
	Filled    []string // fields that gained a value this turn
}

// Engine is the conversation orchestrator. It owns no HTTP concerns: the
// server layer normalizes requests into Input values and renders Turns.
type Engine struct {
	store       SessionStore
	transcriber Transcriber
	comp        Compensator
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithTranscriber enables audio input resolution.
func WithTranscriber(t Transcriber) Option {
	return func(e *Engine) { e.transcriber = t }
}

// WithCompensator enables compensation auto-fill and review-time computation.
func WithCompensator(c Compensator) Option {
	return func(e *Engine) { e.comp = c }
}

// WithClock overrides the time source, for tests and date defaulting.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a conversation engine over the given store.
func NewEngine(store SessionStore, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// sessionLock returns the mutex serializing turns for one session id.
// Concurrent turns for the same session are unordered by design; they just
// must not interleave.
func (e *Engine) sessionLock(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

func (e *Engine) dropLock(id string) {
	e.mu.Lock()
	delete(e.locks, id)
	e.mu.Unlock()
}

// getForUpdate loads a session for a session-scoped operation. A missing
// session (unknown id or TTL-expired) also retires its lock entry so the
// lock table does not accumulate dead ids.
func (e *Engine) getForUpdate(ctx context.Context, id string) (*Session, error) {
	s, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			e.dropLock(id)
		}
		return nil, err
	}
	return s, nil
}

// Start creates a fresh session and returns the opening prompt.
func (e *Engine) Start(ctx context.Context) (*Turn, error) {
	s := NewSession(uuid.NewString(), e.now())
	if err := e.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	slog.Info("session started", "session_id", s.ID)
	return &Turn{
		SessionID: s.ID,
		Prompt:    FirstPrompt(),
		Collected: s.Collected(),
		Timeout:   TimeoutOpenEnded,
	}, nil
}

// Respond processes one turn. Unknown session ids surface
// ErrSessionNotFound; every other failure degrades into a conversational
// prompt with the session unmodified.
func (e *Engine) Respond(ctx context.Context, sessionID string, input Input) (*Turn, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.getForUpdate(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("respond: %w", err)
	}

	text := strings.TrimSpace(e.resolveInput(ctx, input))
	if text == "" {
		field := ""
		if next, ok := s.nextUnset(FieldCompensation); ok {
			field = next.Name
		}
		return &Turn{
			SessionID: sessionID,
			Prompt:    didntCatchPrompt(field),
			Collected: s.Collected(),
			Timeout:   TimeoutStandard,
		}, nil
	}

	work := s.Clone()
	res, err := e.runTurnSafe(work, Normalize(text))
	if err != nil {
		slog.Error("turn failed", "session_id", sessionID, "error", err)
		return &Turn{
			SessionID: sessionID,
			Prompt:    errorMessage,
			Collected: s.Collected(),
			Timeout:   TimeoutStandard,
		}, nil
	}

	work.UpdatedAt = e.now()
	if err := e.store.Put(ctx, work); err != nil {
		slog.Error("session persist failed", "session_id", sessionID, "error", err)
		return &Turn{
			SessionID: sessionID,
			Prompt:    errorMessage,
			Collected: s.Collected(),
			Timeout:   TimeoutStandard,
		}, nil
	}

	timeout := TimeoutStandard
	if res.done {
		timeout = TimeoutCompletion
	}
	return &Turn{
		SessionID: sessionID,
		Prompt:    res.prompt,
		Collected: work.Collected(),
		Done:      res.done,
		Timeout:   timeout,
		Filled:    res.filled,
	}, nil
}

// runTurnSafe converts panics inside turn processing into errors so a bad
// extraction path can never kill a session.
func (e *Engine) runTurnSafe(s *Session, text string) (res turnResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("turn panic: %v", r)
		}
	}()
	return e.runTurn(s, text, e.now()), nil
}

// resolveInput flattens the input variant to text. Transcription failures
// degrade to empty input rather than erroring the turn.
func (e *Engine) resolveInput(ctx context.Context, input Input) string {
	switch in := input.(type) {
	case TextInput:
		return in.Text
	case AudioInput:
		if e.transcriber == nil {
			slog.Warn("audio input without a transcriber")
			return ""
		}
		text, err := e.transcriber.Transcribe(ctx, in.Data, in.ContentType)
		if err != nil {
			slog.Warn("transcription failed", "error", err)
			return ""
		}
		return text
	default:
		return ""
	}
}

// Review returns the collected map for the review page, computing the
// compensation amount on demand and defaulting the claim status to "New
// Claim" if the sub-dialogue never concluded. Defaults are persisted.
func (e *Engine) Review(ctx context.Context, sessionID string) (map[string]*string, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.getForUpdate(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("review: %w", err)
	}

	changed := false
	if !s.Filled(FieldCompensation) {
		if amount, ok := e.compensationFor(s); ok {
			s.set(FieldCompensation, amount)
			changed = true
		}
	}
	if !s.Filled(FieldClaimStatus) {
		s.set(FieldClaimStatus, StatusNewClaim)
		changed = true
	}
	if changed {
		s.UpdatedAt = e.now()
		if err := e.store.Put(ctx, s); err != nil {
			return nil, fmt.Errorf("review: persist defaults: %w", err)
		}
	}
	return s.Collected(), nil
}

// Harvest merges overrides (review-form edits) over the collected fields
// and returns the final claim data plus document references. Machine keys
// for derived fields are kept in sync. The session itself is left in place;
// Delete removes it once the CRM hand-off succeeds.
func (e *Engine) Harvest(ctx context.Context, sessionID string, overrides map[string]string) (map[string]string, []Document, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.getForUpdate(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("harvest: %w", err)
	}

	work := s.Clone()
	for k, v := range overrides {
		if v == "" {
			continue
		}
		name := strings.ReplaceAll(k, "_", " ")
		if _, ok := FieldByName(name); ok {
			work.set(name, v)
		}
	}
	if !work.Filled(FieldCompensation) {
		if amount, ok := e.compensationFor(work); ok {
			work.set(FieldCompensation, amount)
		}
	}
	if !work.Filled(FieldClaimStatus) {
		work.set(FieldClaimStatus, StatusNewClaim)
	}

	out := make(map[string]string, len(work.Values))
	for k, v := range work.Values {
		out[k] = v
	}
	return out, work.Documents, nil
}

// Delete removes a session, typically after a successful final submission.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	e.dropLock(sessionID)
	return nil
}

// AddDocument records an uploaded document on the session.
func (e *Engine) AddDocument(ctx context.Context, sessionID string, doc Document) error {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.getForUpdate(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	s.Documents = append(s.Documents, doc)
	s.UpdatedAt = e.now()
	if err := e.store.Put(ctx, s); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Documents lists the documents attached to a session.
func (e *Engine) Documents(ctx context.Context, sessionID string) ([]Document, error) {
	s, err := e.getForUpdate(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("documents: %w", err)
	}
	return s.Documents, nil
}

// RemoveDocument detaches a document by stored filename and returns its
// metadata so the caller can delete the bytes on disk.
func (e *Engine) RemoveDocument(ctx context.Context, sessionID, filename string) (Document, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.getForUpdate(ctx, sessionID)
	if err != nil {
		return Document{}, fmt.Errorf("remove document: %w", err)
	}
	for i, doc := range s.Documents {
		if doc.Filename == filename {
			s.Documents = append(s.Documents[:i], s.Documents[i+1:]...)
			s.UpdatedAt = e.now()
			if err := e.store.Put(ctx, s); err != nil {
				return Document{}, fmt.Errorf("remove document: %w", err)
			}
			return doc, nil
		}
	}
	return Document{}, fmt.Errorf("remove document %q: %w", filename, ErrDocumentNotFound)
}

package convo

import (
	"time"
)

// Document is the metadata of a file uploaded in support of a claim. The
// bytes themselves live on disk under the uploads manager; sessions only
// carry references.
type Document struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	Type         string    `json:"type"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Session is one conversation instance. Values maps canonical field names
// (plus the underscore machine keys for derived fields) to collected values;
// a missing key means the field is still unfilled.
//
// Sessions are plain data. All mutation happens inside Engine turns, which
// operate on a Clone and persist it only when the turn succeeds.
type Session struct {
	ID              string            `json:"id"`
	Values          map[string]string `json:"values"`
	ClaimStatusStep int               `json:"claim_status_step"`
	Documents       []Document        `json:"documents,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NewSession creates an empty session with every registry field unset and
// the claim-status sub-dialogue at step 0.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Values:    make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Value returns the collected value for a field, if set.
func (s *Session) Value(name string) (string, bool) {
	v, ok := s.Values[name]
	return v, ok
}

// Filled reports whether the named field holds a value.
func (s *Session) Filled(name string) bool {
	_, ok := s.Values[name]
	return ok
}

// set stores a value under the field's canonical name. Derived fields are
// mirrored under their machine key so both forms stay in sync.
func (s *Session) set(name, value string) {
	s.Values[name] = value
	switch name {
	case FieldCompensation:
		s.Values[CompensationMachineKey] = value
	case FieldClaimStatus:
		s.Values[ClaimStatusMachineKey] = value
	}
}

// clear removes a field value, including any mirrored machine key.
func (s *Session) clear(name string) {
	delete(s.Values, name)
	switch name {
	case FieldCompensation:
		delete(s.Values, CompensationMachineKey)
	case FieldClaimStatus:
		delete(s.Values, ClaimStatusMachineKey)
	}
}

// nextUnset returns the first registry field without a value, in collection
// order. skip lists field names to pass over (used to step past an
// uncomputable compensation amount).
func (s *Session) nextUnset(skip ...string) (Field, bool) {
outer:
	for _, f := range registry {
		if s.Filled(f.Name) {
			continue
		}
		for _, name := range skip {
			if f.Name == name {
				continue outer
			}
		}
		return f, true
	}
	return Field{}, false
}

// Collected returns the field map the way clients see it: every registry
// field present, nil for unfilled, plus machine keys for derived fields that
// are set. Internal step counters and document lists are excluded.
func (s *Session) Collected() map[string]*string {
	out := make(map[string]*string, len(registry)+2)
	for _, f := range registry {
		if v, ok := s.Values[f.Name]; ok {
			v := v
			out[f.Name] = &v
		} else {
			out[f.Name] = nil
		}
	}
	for _, key := range []string{CompensationMachineKey, ClaimStatusMachineKey} {
		if v, ok := s.Values[key]; ok {
			v := v
			out[key] = &v
		}
	}
	return out
}

// Clone returns a deep copy. Turn processing mutates the copy and persists
// it on success, leaving the stored session untouched on failure.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Values = make(map[string]string, len(s.Values))
	for k, v := range s.Values {
		cp.Values[k] = v
	}
	if s.Documents != nil {
		cp.Documents = make([]Document, len(s.Documents))
		copy(cp.Documents, s.Documents)
	}
	return &cp
}

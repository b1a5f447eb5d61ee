// Package mock provides a scriptable tts.Synthesizer for tests.
package mock

import (
	"context"
	"sync"

	"github.com/geniusjr001/claimsvoice/pkg/provider/tts"
)

// Synthesizer implements tts.Synthesizer. By default it echoes the input
// text as the audio payload, which makes assertions trivial.
type Synthesizer struct {
	mu    sync.Mutex
	calls int

	// Err, when set, is returned from every Synthesize call.
	Err error
	// SynthesizeFunc, when set, overrides the default echo behavior.
	SynthesizeFunc func(ctx context.Context, text string) (tts.Audio, error)
}

// New creates an echoing mock.
func New() *Synthesizer {
	return &Synthesizer{}
}

// Calls reports how many times Synthesize was invoked.
func (s *Synthesizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Synthesize implements tts.Synthesizer.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.SynthesizeFunc != nil {
		return s.SynthesizeFunc(ctx, text)
	}
	if s.Err != nil {
		return tts.Audio{}, s.Err
	}
	return tts.Audio{Data: []byte(text), MediaType: "audio/mpeg"}, nil
}

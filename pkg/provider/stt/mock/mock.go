// Package mock provides a scriptable stt.Provider for tests.
package mock

import (
	"context"
	"sync"
)

// Provider implements stt.Provider with canned responses.
type Provider struct {
	mu      sync.Mutex
	scripts []result
	calls   int

	// TranscribeFunc, when set, overrides the scripted responses.
	TranscribeFunc func(ctx context.Context, audio []byte, mediaType string) (string, error)
}

type result struct {
	text string
	err  error
}

// New creates an empty mock. With no script it transcribes everything to "".
func New() *Provider {
	return &Provider{}
}

// Script appends a canned response returned by the next Transcribe call.
func (p *Provider) Script(text string, err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts = append(p.scripts, result{text: text, err: err})
	return p
}

// Calls reports how many times Transcribe was invoked.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, mediaType string) (string, error) {
	if p.TranscribeFunc != nil {
		p.mu.Lock()
		p.calls++
		p.mu.Unlock()
		return p.TranscribeFunc(ctx, audio, mediaType)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.scripts) == 0 {
		return "", nil
	}
	r := p.scripts[0]
	p.scripts = p.scripts[1:]
	return r.text, r.err
}

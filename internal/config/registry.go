package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/geniusjr001/claimsvoice/pkg/provider/crm"
	"github.com/geniusjr001/claimsvoice/pkg/provider/stt"
	"github.com/geniusjr001/claimsvoice/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider kind. It decouples the config layer from the concrete provider
// packages; main registers what it links in. Safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	stt map[string]func(STTConfig) (stt.Provider, error)
	tts map[string]func(TTSConfig) (tts.Synthesizer, error)
	crm map[string]func(CRMConfig) (crm.Client, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt: make(map[string]func(STTConfig) (stt.Provider, error)),
		tts: make(map[string]func(TTSConfig) (tts.Synthesizer, error)),
		crm: make(map[string]func(CRMConfig) (crm.Client, error)),
	}
}

// RegisterSTT registers an STT provider factory under name. Subsequent calls
// with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(STTConfig) (stt.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterTTS registers a synthesizer factory under name.
func (r *Registry) RegisterTTS(name string, factory func(TTSConfig) (tts.Synthesizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterCRM registers a CRM client factory under name.
func (r *Registry) RegisterCRM(name string, factory func(CRMConfig) (crm.Client, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.crm[name] = factory
}

// CreateSTT instantiates an STT provider using the factory registered under
// cfg.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateSTT(cfg STTConfig) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.stt[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, cfg.Name)
	}
	return factory(cfg)
}

// CreateTTS instantiates a synthesizer using the factory registered under
// cfg.Name.
func (r *Registry) CreateTTS(cfg TTSConfig) (tts.Synthesizer, error) {
	r.mu.RLock()
	factory, ok := r.tts[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, cfg.Name)
	}
	return factory(cfg)
}

// CreateCRM instantiates a CRM client using the factory registered under
// cfg.Name.
func (r *Registry) CreateCRM(cfg CRMConfig) (crm.Client, error) {
	r.mu.RLock()
	factory, ok := r.crm[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: crm/%q", ErrProviderNotRegistered, cfg.Name)
	}
	return factory(cfg)
}

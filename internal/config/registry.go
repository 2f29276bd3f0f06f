package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/alonsorgl28/teams-translator/pkg/audio"
	"github.com/alonsorgl28/teams-translator/pkg/provider/stt"
	"github.com/alonsorgl28/teams-translator/pkg/provider/translate"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory
// has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// pipeline stage. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	audio     map[string]func(AudioConfig) (audio.Source, error)
	stt       map[string]func(STTConfig) (stt.Provider, error)
	translate map[string]func(TranslateConfig) (translate.Translator, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		audio:     make(map[string]func(AudioConfig) (audio.Source, error)),
		stt:       make(map[string]func(STTConfig) (stt.Provider, error)),
		translate: make(map[string]func(TranslateConfig) (translate.Translator, error)),
	}
}

// RegisterAudio registers a capture source factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterAudio(name string, factory func(AudioConfig) (audio.Source, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio[name] = factory
}

// RegisterSTT registers an STT provider factory under name.
func (r *Registry) RegisterSTT(name string, factory func(STTConfig) (stt.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterTranslate registers a translation backend factory under name.
func (r *Registry) RegisterTranslate(name string, factory func(TranslateConfig) (translate.Translator, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translate[name] = factory
}

// CreateAudio instantiates the capture source registered under cfg.Provider.
// Returns [ErrProviderNotRegistered] if no factory is registered.
func (r *Registry) CreateAudio(cfg AudioConfig) (audio.Source, error) {
	r.mu.RLock()
	factory, ok := r.audio[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: audio/%q", ErrProviderNotRegistered, cfg.Provider)
	}
	return factory(cfg)
}

// CreateSTT instantiates the STT provider registered under cfg.Provider.
func (r *Registry) CreateSTT(cfg STTConfig) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.stt[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, cfg.Provider)
	}
	return factory(cfg)
}

// CreateTranslate instantiates the translation backend registered under
// cfg.Backend.
func (r *Registry) CreateTranslate(cfg TranslateConfig) (translate.Translator, error) {
	r.mu.RLock()
	factory, ok := r.translate[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: translate/%q", ErrProviderNotRegistered, cfg.Backend)
	}
	return factory(cfg)
}

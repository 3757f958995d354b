package ai

import (
	"fmt"
	"sync"

	"ambitious/internal/config"
	"ambitious/internal/model"
)

// Factory builds providers keyed by ai_model. Transports are created once per model and shared.
type Factory struct {
	cfg config.ProvidersConfig

	mu         sync.Mutex
	transports map[model.AIModel]*Transport
}

func NewFactory(cfg config.ProvidersConfig) *Factory {
	return &Factory{cfg: cfg, transports: map[model.AIModel]*Transport{}}
}

// New returns a provider for m at the given temperature.
func (f *Factory) New(m model.AIModel, temperature float64) (Provider, error) {
	pc, ok := f.providerConfig(m)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, m)
	}
	if pc.APIKey == "" {
		return nil, fmt.Errorf("%w: %s api key missing", ErrNotConfigured, m)
	}
	t := f.transport(m, pc)
	var b backend
	switch m {
	case model.AIModelClaude:
		b = &claudeBackend{t: t, baseURL: pc.BaseURL, apiKey: pc.APIKey, model: pc.Model}
	default:
		b = &chatBackend{t: t, baseURL: pc.BaseURL, apiKey: pc.APIKey, model: pc.Model}
	}
	return &textProvider{name: m, backend: b, temperature: temperature}, nil
}

func (f *Factory) providerConfig(m model.AIModel) (config.ProviderConfig, bool) {
	switch m {
	case model.AIModelOpenAI:
		return f.cfg.OpenAI, true
	case model.AIModelClaude:
		return f.cfg.Claude, true
	case model.AIModelXAI:
		return f.cfg.XAI, true
	}
	return config.ProviderConfig{}, false
}

func (f *Factory) transport(m model.AIModel, pc config.ProviderConfig) *Transport {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.transports[m]; ok {
		return t
	}
	t := NewTransport(string(m), pc.Timeout, f.cfg.RPS, f.cfg.Burst, f.cfg.MaxAttempts, f.cfg.BaseBackoff)
	f.transports[m] = t
	return t
}

// Package validate implements the Validator Registry (C5): one
// Validator per credential family, each confirming a detected key
// against its issuing service's live API and classifying the
// response into valid / invalid / retryable error.
package validate

import (
	"context"
	"sort"
	"sync"
	"time"

	"keyhunter/pkg/httpclient"
	"keyhunter/pkg/models"
)

// Validator checks one credential family against its issuer.
type Validator interface {
	KeyType() string
	Validate(ctx context.Context, client *httpclient.Client, key string) (models.ValidationResult, error)
	DefaultRateLimit() time.Duration
}

// Registry holds named validators.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]Validator
}

func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]Validator)}
}

func (r *Registry) Register(v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[v.KeyType()] = v
}

func (r *Registry) Get(keyType string) (Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[keyType]
	return v, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.validators))
	for n := range r.validators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// rateLimitMs looks up "<keyType>_rate_limit_ms" in limits, falling
// back to fallback if absent.
func rateLimitMs(limits map[string]int, keyType string, fallback int) time.Duration {
	if v, ok := limits[keyType+"_rate_limit_ms"]; ok {
		return time.Duration(v) * time.Millisecond
	}
	return time.Duration(fallback) * time.Millisecond
}

// NewDefaultRegistry builds the seven validators this system ships
// with, paced from the given per-validator rate-limit configuration.
func NewDefaultRegistry(limits map[string]int) *Registry {
	r := NewRegistry()
	r.Register(&ShodanValidator{rateLimit: rateLimitMs(limits, "shodan", 1000)})
	r.Register(&OpenAIValidator{rateLimit: rateLimitMs(limits, "openai", 1000)})
	r.Register(&ClaudeValidator{rateLimit: rateLimitMs(limits, "claude", 2000)})
	r.Register(&GeminiValidator{rateLimit: rateLimitMs(limits, "gemini", 2000)})
	r.Register(&XAIValidator{rateLimit: rateLimitMs(limits, "xai", 1000)})
	r.Register(&OpenRouterValidator{rateLimit: rateLimitMs(limits, "openrouter", 3000)})
	r.Register(&GitHubValidator{rateLimit: rateLimitMs(limits, "github", 2000)})
	return r
}

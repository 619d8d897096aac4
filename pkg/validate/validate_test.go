package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRegistryHasSevenValidators(t *testing.T) {
	r := NewDefaultRegistry(map[string]int{})
	assert.ElementsMatch(t, []string{
		"shodan", "openai", "claude", "gemini", "xai", "openrouter", "github",
	}, r.Names())
}

func TestRateLimitMsFallsBackWhenUnconfigured(t *testing.T) {
	d := rateLimitMs(map[string]int{}, "openai", 1234)
	assert.Equal(t, 1234*time.Millisecond, d)
}

func TestRateLimitMsHonorsConfiguredOverride(t *testing.T) {
	d := rateLimitMs(map[string]int{"openai_rate_limit_ms": 50}, "openai", 1234)
	assert.Equal(t, 50*time.Millisecond, d)
}

func TestRegistryGetReturnsConfiguredRateLimit(t *testing.T) {
	r := NewDefaultRegistry(map[string]int{"claude_rate_limit_ms": 7})
	v, ok := r.Get("claude")
	assert.True(t, ok)
	assert.Equal(t, 7*time.Millisecond, v.DefaultRateLimit())
}

func TestRegistryGetMissingValidator(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nonexistent")
	assert.False(t, ok)
}

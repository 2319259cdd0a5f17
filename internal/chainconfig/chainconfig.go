// Package chainconfig reads the environment configuration surface:
// strictness override, router thresholds, the
// command-artifact timeout, and the kill switch. It is the only
// package that touches os.Getenv so every other component stays
// testable without environment mutation.
package chainconfig

import (
	"os"
	"strconv"
	"time"

	"github.com/chainward/chainward/internal/catalog"
)

const (
	envStrictnessOverride = "CHAIN_STRICTNESS_OVERRIDE"
	envImmediateThreshold = "CHAIN_IMMEDIATE_THRESHOLD"
	envSuggestionThreshold = "CHAIN_SUGGESTION_THRESHOLD"
	envCommandTimeoutMs   = "CHAIN_COMMAND_TIMEOUT_MS"
	envDisable            = "CHAIN_DISABLE"

	// The router's embedding path is optional, so its wiring is opt-in
	// via these rather than mandated config.
	envEmbeddingEndpoint = "CHAIN_EMBEDDING_ENDPOINT"
	envEmbeddingModel    = "CHAIN_EMBEDDING_MODEL"
	envEmbeddingAPIKey   = "CHAIN_EMBEDDING_API_KEY"
)

// Config is the resolved environment surface for one process invocation.
type Config struct {
	StrictnessOverride  catalog.Strictness // "" means no override
	ImmediateThreshold  float64
	SuggestionThreshold float64
	CommandTimeout      time.Duration
	Disabled            bool

	// EmbeddingEndpoint, set, enables the router's HTTPEmbedder. Empty
	// means the router falls back to keyword-only scoring.
	EmbeddingEndpoint string
	EmbeddingModel    string
	EmbeddingAPIKey   string
}

// Load reads the environment. Unset or unparseable numeric variables
// fall back to the spec's defaults rather than erroring — a malformed
// override should not take down the gate.
func Load() Config {
	cfg := Config{
		ImmediateThreshold:  0.85,
		SuggestionThreshold: 0.70,
		CommandTimeout:      30 * time.Second,
	}

	if v := catalog.Strictness(os.Getenv(envStrictnessOverride)); v == catalog.StrictnessStrict || v == catalog.StrictnessAdvisory || v == catalog.StrictnessPermissive {
		cfg.StrictnessOverride = v
	}

	if v, ok := parseFloat(os.Getenv(envImmediateThreshold)); ok {
		cfg.ImmediateThreshold = v
	}
	if v, ok := parseFloat(os.Getenv(envSuggestionThreshold)); ok {
		cfg.SuggestionThreshold = v
	}
	if v, ok := parseInt(os.Getenv(envCommandTimeoutMs)); ok && v > 0 {
		cfg.CommandTimeout = time.Duration(v) * time.Millisecond
	}
	cfg.Disabled = os.Getenv(envDisable) != ""

	cfg.EmbeddingEndpoint = os.Getenv(envEmbeddingEndpoint)
	cfg.EmbeddingModel = os.Getenv(envEmbeddingModel)
	cfg.EmbeddingAPIKey = os.Getenv(envEmbeddingAPIKey)

	return cfg
}

// ResolveStrictness applies StrictnessOverride to a profile's own
// strictness, if set.
func (c Config) ResolveStrictness(profileStrictness catalog.Strictness) catalog.Strictness {
	if c.StrictnessOverride != "" {
		return c.StrictnessOverride
	}
	return profileStrictness
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

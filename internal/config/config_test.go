package config

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8950, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.Collaborator.Provider)
	assert.Equal(t, 0.6, cfg.Extraction.ReviewConfidence)
	assert.True(t, cfg.Store.Index.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server port",
		},
		{
			name:    "bad provider",
			mutate:  func(c *Config) { c.Collaborator.Provider = "martian" },
			wantErr: "collaborator provider",
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.Collaborator.RateLimit = 0 },
			wantErr: "rate limit",
		},
		{
			name:    "retries below sentinel",
			mutate:  func(c *Config) { c.Collaborator.MaxRetries = -2 },
			wantErr: "max retries",
		},
		{
			name:    "confidence out of range",
			mutate:  func(c *Config) { c.Extraction.ReviewConfidence = 1.5 },
			wantErr: "review confidence",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Extraction.Concurrency = 0 },
			wantErr: "concurrency",
		},
		{
			name:    "bad logging level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "logging",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRetryDisableSentinel(t *testing.T) {
	// -1 turns retry off entirely; applyDefaults must not treat it as unset.
	cfg := NewDefaultConfig()
	cfg.Collaborator.MaxRetries = -1
	require.NoError(t, cfg.Validate())

	applyDefaults(cfg)
	assert.Equal(t, -1, cfg.Collaborator.MaxRetries)
}

func TestSecretNeverLeaks(t *testing.T) {
	s := Secret("sk-very-secret")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))

	b, err := json.Marshal(struct {
		Key Secret `json:"key"`
	}{Key: s})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "sk-very-secret")

	assert.Equal(t, "sk-very-secret", s.Value())
	assert.True(t, s.IsSet())
	assert.False(t, Secret("").IsSet())
	assert.Equal(t, "", Secret("").String())
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("30s")))
	assert.Equal(t, "30s", d.Duration().String())

	assert.Error(t, d.UnmarshalText([]byte("-5s")), "negative durations rejected")
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

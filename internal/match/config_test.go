package match

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 80, cfg.AddressThreshold)
	assert.Equal(t, 75, cfg.NameThreshold)
	assert.Equal(t, 50, cfg.MinMatchConfidence)
	assert.False(t, cfg.UseManualMapping)
	assert.False(t, cfg.AddressOnlyTier)
	assert.False(t, cfg.FuzzyAddressSameZIP)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"address above 100", func(c *Config) { c.AddressThreshold = 101 }, "address_threshold"},
		{"address negative", func(c *Config) { c.AddressThreshold = -1 }, "address_threshold"},
		{"name above 100", func(c *Config) { c.NameThreshold = 150 }, "name_threshold"},
		{"negative min confidence", func(c *Config) { c.MinMatchConfidence = -5 }, "min_match_confidence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)

			var cerr *ConfigurationError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestConfigValidateBoundaries(t *testing.T) {
	cfg := Config{AddressThreshold: 0, NameThreshold: 100, MinMatchConfidence: 0}
	assert.NoError(t, cfg.Validate())
}

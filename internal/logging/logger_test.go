package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARNING": zerolog.WarnLevel,
		"":        zerolog.InfoLevel,
		"off":     zerolog.Disabled,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewDiscard(t *testing.T) {
	l := New(&Config{Level: "info", Output: "discard"})
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}

func TestConfigureReplacesDefault(t *testing.T) {
	prev := Default()
	defer func() {
		mu.Lock()
		defaultLogger = prev
		mu.Unlock()
	}()

	Configure(&Config{Level: "error", Output: "discard"})
	assert.Equal(t, zerolog.ErrorLevel, Default().GetLevel())
}

func TestWithComponent(t *testing.T) {
	prev := Default()
	defer func() {
		mu.Lock()
		defaultLogger = prev
		mu.Unlock()
	}()

	var buf bytes.Buffer
	mu.Lock()
	defaultLogger = zerolog.New(&buf)
	mu.Unlock()

	l := WithComponent("cascade")
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"component":"cascade"`)
}

func TestSetDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := SetDefault(zerolog.New(&buf))
	defer SetDefault(prev)

	l := Default()
	l.Warn().Msg("conflict demoted")
	assert.Contains(t, buf.String(), "conflict demoted")
}

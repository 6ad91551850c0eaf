package debug

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/leed-ll97/internal/logging"
)

func TestDebugOutputRespectsFlag(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.SetDefault(zerolog.New(&buf).Level(zerolog.DebugLevel))
	t.Cleanup(func() { logging.SetDefault(prev) })

	DebugOutput(false, "hidden %d", 1)
	assert.Empty(t, buf.String())

	DebugHeader(true)
	DebugOutput(true, "Parcel match -> %s", "N1")
	done := DebugTiming(true, "cascade")
	done()
	DebugFooter(true)

	out := buf.String()
	assert.Contains(t, out, "=== DEBUG START ===")
	assert.Contains(t, out, "Parcel match -> N1")
	assert.Contains(t, out, `"operation":"cascade"`)
	assert.Contains(t, out, "=== DEBUG END ===")
}

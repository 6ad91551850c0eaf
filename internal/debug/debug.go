package debug

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/leed-ll97/internal/logging"
)

// logger returns an addressable copy of the process logger.
func logger() *zerolog.Logger {
	l := logging.Default()
	return &l
}

// DebugHeader marks the start of a traced section if debugging is enabled
func DebugHeader(enabled bool) {
	if enabled {
		logger().Debug().Msg("=== DEBUG START ===")
	}
}

// DebugFooter marks the end of a traced section if debugging is enabled
func DebugFooter(enabled bool) {
	if enabled {
		logger().Debug().Msg("=== DEBUG END ===")
	}
}

// DebugOutput writes a formatted trace line at debug level if debugging is enabled
func DebugOutput(enabled bool, format string, args ...interface{}) {
	if enabled {
		logger().Debug().Msg(fmt.Sprintf(format, args...))
	}
}

// DebugTiming logs the duration of an operation if debugging is enabled.
// Call the returned func when the operation completes.
func DebugTiming(enabled bool, operation string) func() {
	if !enabled {
		return func() {}
	}

	start := time.Now()
	DebugOutput(enabled, "Starting: %s", operation)

	return func() {
		logger().Debug().
			Str("operation", operation).
			Dur("took", time.Since(start)).
			Msg("Completed")
	}
}

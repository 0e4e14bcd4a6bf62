package app

import (
	"os"
	"strings"
	"sync/atomic"
)

// testModeEnv makes the entrypoints return before touching Postgres, Redis or the queue.
const testModeEnv = "BILLFLOW_TEST_MODE"

var testMode atomic.Bool

func init() {
	RefreshTestMode()
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	return testMode.Load()
}

// RefreshTestMode re-reads BILLFLOW_TEST_MODE after environment changes.
func RefreshTestMode() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(testModeEnv))) {
	case "1", "true", "yes":
		testMode.Store(true)
	default:
		testMode.Store(false)
	}
}

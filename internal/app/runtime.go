package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// TestModeEnv disables process startup in cmd binaries when set to "1".
const TestModeEnv = "NOWLISTEN_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	testModeFlag.Store(os.Getenv(TestModeEnv) == "1")
}

// InTestMode reports whether binaries should skip connecting to backing services.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode re-reads the environment after it changes.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	detectTestMode()
}

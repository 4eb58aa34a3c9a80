package conf

import "sync/atomic"

// debugEnabled is the only process-wide mutable setting.
var debugEnabled atomic.Bool

// SetDebug toggles verbose logging for the whole process.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// Debug reports whether verbose logging is enabled.
func Debug() bool {
	return debugEnabled.Load()
}

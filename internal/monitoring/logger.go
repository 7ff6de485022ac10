package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// debugEnabled gates Debugf. Flipped at runtime by the debug-mode toggle.
var debugEnabled atomic.Bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebug opens or closes the debug gate. Safe to call from any goroutine.
func SetDebug(on bool) {
	debugEnabled.Store(on)
}

// DebugEnabled reports whether the debug gate is open.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Debugf forwards to Logf only while the debug gate is open. Verbose
// per-frame diagnostics route through here so steady-state runs stay quiet.
func Debugf(format string, v ...interface{}) {
	if debugEnabled.Load() {
		Logf(format, v...)
	}
}

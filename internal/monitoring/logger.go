// Package monitoring holds the diagnostic logger shared by the processing
// stages. Stages report progress and recovered problems through Logf and
// Warnf instead of printing directly, so tests and embedding tools can
// redirect or mute them.
package monitoring

import "log"

// Logf is the package-level progress logger. It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs a recovered, non-fatal condition: a skipped stage, a
// substituted value, a column that could not be processed.
func Warnf(format string, v ...interface{}) {
	Logf("WARNING: "+format, v...)
}

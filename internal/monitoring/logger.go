// Package monitoring holds the diagnostic logger shared by the kappa tools.
// Diagnostics go to stderr through the standard log package; computed values
// are written to stdout by the commands themselves and never pass through here.
package monitoring

import (
	"io"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Configure points the standard logger at w with a command prefix and no
// timestamps, and routes Logf through it. A quiet run mutes Logf.
func Configure(w io.Writer, prefix string, quiet bool) {
	log.SetOutput(w)
	log.SetFlags(0)
	if prefix != "" {
		log.SetPrefix(prefix + ": ")
	}
	if quiet {
		SetLogger(nil)
		return
	}
	SetLogger(log.Printf)
}

// Package logger provides a small centralized logging facility with
// configurable verbosity.
//
// Verbosity levels (in increasing order):
//
//	Error < Info < Debug < Trace
//
// Typical usage:
//
//	logger.SetVerbosity(2) // Debug
//	logger.Infof("training started")
//	logger.Debugf("epoch=%d mse=%f", epoch, mse)
package logger

import (
	"log"
	"os"
)

// Level is a logging verbosity level. Higher values log more.
type Level int

const (
	Error Level = iota
	Info
	Debug
	Trace
)

// current holds the active verbosity level.
// Only messages with level <= current are logged.
var current Level = Info

func init() {
	// Logs go to stderr so they stay out of the way of report output.
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// SetVerbosity sets the global verbosity, typically once at startup
// after the config has been parsed.
func SetVerbosity(v int) {
	current = Level(v)
}

func logf(l Level, prefix, format string, args ...any) {
	if current >= l {
		log.Printf(prefix+format, args...)
	}
}

// Errorf logs failures that require attention.
func Errorf(format string, args ...any) {
	logf(Error, "[ERROR] ", format, args...)
}

// Infof logs major lifecycle events.
func Infof(format string, args ...any) {
	logf(Info, "[INFO]  ", format, args...)
}

// Debugf logs diagnostic detail useful during development.
func Debugf(format string, args ...any) {
	logf(Debug, "[DEBUG] ", format, args...)
}

// Tracef logs fine-grained execution traces. High volume, use sparingly.
func Tracef(format string, args ...any) {
	logf(Trace, "[TRACE] ", format, args...)
}

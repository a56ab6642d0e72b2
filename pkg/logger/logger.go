package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Component-tagged logging for the whole plugin. Every call site passes the
// component name ("dispatch", "resolve", "allway-api", ...) so log output can be
// filtered per subsystem.

var (
	mu  sync.RWMutex
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

// SetLevel adjusts the global log level. Unknown values fall back to info.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		log = log.Level(zerolog.DebugLevel)
	case "warn", "warning":
		log = log.Level(zerolog.WarnLevel)
	case "error":
		log = log.Level(zerolog.ErrorLevel)
	default:
		log = log.Level(zerolog.InfoLevel)
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w *os.File) {
	mu.Lock()
	defer mu.Unlock()
	log = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
}

func emit(e *zerolog.Event, component, msg string, fields map[string]interface{}) {
	e = e.Str("component", component)
	if len(fields) > 0 {
		e = e.Fields(fields)
	}
	e.Msg(msg)
}

func DebugC(component, msg string) {
	mu.RLock()
	defer mu.RUnlock()
	emit(log.Debug(), component, msg, nil)
}

func DebugCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	emit(log.Debug(), component, msg, fields)
}

func InfoC(component, msg string) {
	mu.RLock()
	defer mu.RUnlock()
	emit(log.Info(), component, msg, nil)
}

func InfoCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	emit(log.Info(), component, msg, fields)
}

func WarnC(component, msg string) {
	mu.RLock()
	defer mu.RUnlock()
	emit(log.Warn(), component, msg, nil)
}

func WarnCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	emit(log.Warn(), component, msg, fields)
}

func ErrorC(component, msg string) {
	mu.RLock()
	defer mu.RUnlock()
	emit(log.Error(), component, msg, nil)
}

func ErrorCF(component, msg string, fields map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	emit(log.Error(), component, msg, fields)
}

// Package logger provides the shared zerolog instance for the module.
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger zerolog.Logger
	once   sync.Once
	mu     sync.Mutex
)

// Logger returns the module-wide logger. By default it writes
// human-readable output to stderr at the info level; set DISTAFF_DEBUG to
// enable stage-timing logs from the prover and verifier.
func Logger() zerolog.Logger {
	once.Do(func() {
		level := zerolog.InfoLevel
		if os.Getenv("DISTAFF_DEBUG") != "" {
			level = zerolog.DebugLevel
		}
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
	})
	return logger
}

// SetOutput redirects the shared logger, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	Logger()
	logger = logger.Output(w)
}

// Disable silences the shared logger.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	Logger()
	logger = logger.Level(zerolog.Disabled)
}

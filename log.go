package magql

import (
	"sync"

	"github.com/rs/zerolog"
)

// The package logger is a no-op unless the embedding application installs
// one with SetLogger. Resolvers and the manager log schema-derivation
// warnings (e.g. models skipped for missing primary keys) through it.

var (
	loggerMu sync.RWMutex
	logger   = zerolog.Nop()
)

// SetLogger installs the logger used by all magql packages.
//
//	magql.SetLogger(zerolog.New(os.Stderr).With().
//	    Timestamp().Str("component", "magql").Logger())
func SetLogger(l zerolog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

// Logger returns the current package logger.
func Logger() zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

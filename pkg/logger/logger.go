package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "ecash-billing-engine"

// New creates the process logger. level is a zerolog level name (trace to
// error); unknown names fall back to info. pretty switches to console output
// for local runs.
func New(level string, pretty bool) zerolog.Logger {
	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.Kitchen,
		}
	}
	return build(w, level).With().Caller().Logger()
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return build(w, level)
}

// Component returns a child logger tagged with the engine component name
// (ledger, invoices, billing, ...) and, when known, the wallet identity.
func Component(log zerolog.Logger, name string, identity string) zerolog.Logger {
	ctx := log.With().Str("component", name)
	if identity != "" {
		ctx = ctx.Str("identity", identity)
	}
	return ctx.Logger()
}

func build(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

func parseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger. Debug mode writes human-readable lines;
// otherwise one JSON object per line is emitted for log shippers.
func Init(serviceName string, debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerolog.DurationFieldUnit = time.Millisecond

	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	}

	log.Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Int("pid", os.Getpid()).
		Logger()

	log.Debug().Msg("Debug logging enabled")
}

// Printf adapts the global logger to the Printf-style logger interface
// expected by the Telegram SDK.
type Printf struct{}

func (Printf) Println(v ...interface{}) {
	log.Debug().Str("component", "tgbotapi").Msg(fmt.Sprint(v...))
}

func (Printf) Printf(format string, v ...interface{}) {
	log.Debug().Str("component", "tgbotapi").Msgf(format, v...)
}

// Debug logs a debug message
func Debug() *zerolog.Event {
	return log.Debug()
}

// Info logs an info message
func Info() *zerolog.Event {
	return log.Info()
}

// Warn logs a warning message
func Warn() *zerolog.Event {
	return log.Warn()
}

// Error logs an error message
func Error() *zerolog.Event {
	return log.Error()
}

// Fatal logs a fatal message and exits
func Fatal() *zerolog.Event {
	return log.Fatal()
}

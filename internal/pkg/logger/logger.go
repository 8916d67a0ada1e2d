package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is the textual level accepted in logging.level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

var levels = map[LogLevel]zerolog.Level{
	DebugLevel: zerolog.DebugLevel,
	InfoLevel:  zerolog.InfoLevel,
	WarnLevel:  zerolog.WarnLevel,
	ErrorLevel: zerolog.ErrorLevel,
}

// Config describes the process-wide logger
type Config struct {
	Level LogLevel
	// Pretty switches from JSON lines to the console writer
	Pretty bool
	// Output defaults to os.Stdout
	Output io.Writer
	// Hooks see every event, e.g. the rollbar forwarder. Nil entries are skipped.
	Hooks []zerolog.Hook
}

var base zerolog.Logger

// ParseLevel converts a config string to a LogLevel, defaulting to info
func ParseLevel(level string) LogLevel {
	if _, ok := levels[LogLevel(level)]; ok {
		return LogLevel(level)
	}
	return InfoLevel
}

// Configure replaces the process logger. The zerolog global logger follows it
// so that packages logging through zerolog/log share the same sink.
func Configure(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(levels[ParseLevel(string(cfg.Level))])

	l := zerolog.New(out).With().Timestamp().Str("service", "enrolladmin").Logger()
	for _, h := range cfg.Hooks {
		if h != nil {
			l = l.Hook(h)
		}
	}
	base = l
	log.Logger = l
}

// Default returns the configured logger for injection into components
func Default() zerolog.Logger {
	return base
}

// Component returns the logger tagged with a component name
func Component(name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

func Debug() *zerolog.Event { return base.Debug() }
func Info() *zerolog.Event  { return base.Info() }
func Warn() *zerolog.Event  { return base.Warn() }
func Error() *zerolog.Event { return base.Error() }

func init() {
	Configure(Config{Level: InfoLevel, Pretty: true})
}

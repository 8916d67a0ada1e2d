package logger

import (
	"errors"

	"github.com/rollbar/rollbar-go"
	"github.com/rs/zerolog"
)

// RollbarConfig holds the error reporting settings
type RollbarConfig struct {
	Token       string
	Environment string
	CodeVersion string
	ServerRoot  string
}

// RollbarHook forwards error and fatal events to rollbar
type RollbarHook struct{}

// NewRollbarHook configures the rollbar client. It returns nil when no token is set,
// in which case nothing is reported.
func NewRollbarHook(cfg RollbarConfig) zerolog.Hook {
	if cfg.Token == "" {
		return nil
	}
	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)
	rollbar.SetCodeVersion(cfg.CodeVersion)
	rollbar.SetServerRoot(cfg.ServerRoot)
	return RollbarHook{}
}

// Run implements zerolog.Hook
func (RollbarHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	switch level {
	case zerolog.ErrorLevel:
		rollbar.Error(errors.New(msg))
	case zerolog.FatalLevel, zerolog.PanicLevel:
		rollbar.Critical(errors.New(msg))
	}
}

// FlushRollbar blocks until queued reports are sent
func FlushRollbar() {
	rollbar.Wait()
}

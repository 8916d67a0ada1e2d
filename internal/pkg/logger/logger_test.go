package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHook struct {
	levels []zerolog.Level
}

func (h *recordingHook) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	h.levels = append(h.levels, level)
}

func TestConfigureWritesJSONWithHooks(t *testing.T) {
	var buf bytes.Buffer
	hook := &recordingHook{}
	Configure(Config{Level: WarnLevel, Output: &buf, Hooks: []zerolog.Hook{hook}})
	t.Cleanup(func() { Configure(Config{Level: InfoLevel, Pretty: true, Output: os.Stdout}) })

	Info().Msg("dropped")
	Error().Str("studentNumber", "STU-2026-000001").Msg("payment failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "payment failed", entry["message"])
	assert.Equal(t, "STU-2026-000001", entry["studentNumber"])
	assert.Equal(t, []zerolog.Level{zerolog.ErrorLevel}, hook.levels)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
	assert.Nil(t, NewRollbarHook(RollbarConfig{}))
}

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKV_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := NewKV(zerolog.New(&buf), "reminders")

	log.Error("send failed", "reservation_id", "r1", "attempt", 2, "error", errors.New("timeout"), "dangling")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "send failed", line["message"])
	assert.Equal(t, "reminders", line["component"])
	assert.Equal(t, "r1", line["reservation_id"])
	assert.Equal(t, float64(2), line["attempt"])
	assert.Equal(t, "timeout", line["error"])
	assert.Equal(t, "(missing)", line["dangling"])
}

func TestKV_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewKV(zerolog.New(&buf).Level(zerolog.InfoLevel), "audit")

	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

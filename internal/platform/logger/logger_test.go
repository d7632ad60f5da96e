package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json handler respects level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, "warn", "json")
		log.Info("dropped")
		log.Warn("kept", "evidence_id", "e1")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "kept", line["msg"])
		assert.Equal(t, "e1", line["evidence_id"])
	})

	t.Run("text handler", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, "debug", "text")
		log.Debug("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})
}

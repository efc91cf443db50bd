package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(Config{Level: "info", Format: "json"}, &buf)
	assert.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Info().Str("file", "prices.csv").Msg("loaded")

	var entry map[string]any
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "loaded", entry["message"])
	assert.Equal(t, "prices.csv", entry["file"])
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(Config{Level: "DEBUG"}, &buf)
	assert.NoError(t, err)

	logger.Debug().Msg("visible")
	assert.True(t, bytes.Contains(buf.Bytes(), []byte("visible")))
}

func TestNewWithWriter_Invalid(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewWithWriter(Config{Level: "loud"}, &buf)
	assert.Error(t, err)

	_, err = NewWithWriter(Config{Level: "info", Format: "xml"}, &buf)
	assert.Error(t, err)
}

package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/nodemesh/pkg/logger"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

// TestSimpleLogger_JSON checks every accepted field style ends up in the entry
func TestSimpleLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: "debug", Output: &buf})

	log.Debug("debug message", logger.Field{Key: "test", Value: "value"})
	log.Info("info message", map[string]interface{}{"node_id": "n1", "count": 2})
	log.Warn("warn message", "organ", "taxis")
	log.Error("error message", map[string]interface{}{"error": errors.New("boom")})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 4)

	assert.Equal(t, "debug", entries[0]["level"])
	assert.Equal(t, "value", entries[0]["test"])

	assert.Equal(t, "info message", entries[1]["msg"])
	assert.Equal(t, "n1", entries[1]["node_id"])
	assert.Equal(t, float64(2), entries[1]["count"])

	assert.Equal(t, "taxis", entries[2]["organ"])

	assert.Equal(t, "error", entries[3]["level"])
	assert.Equal(t, "boom", entries[3]["error"])
	assert.NotEmpty(t, entries[3]["time"])
}

func TestSimpleLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Format: "text", Output: &buf})

	log.Info("Node announced", map[string]interface{}{"organ": "taxis", "node_id": "n1"})

	line := buf.String()
	assert.Contains(t, line, "[INFO] Node announced")
	// keys are sorted for stable output
	assert.True(t, strings.Index(line, "node_id=n1") < strings.Index(line, "organ=taxis"), line)
}

// TestLoggerWith tests that child loggers carry their fields
func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	base := logger.New(logger.Options{Output: &buf})

	child := base.With(
		logger.Field{Key: "component", Value: "discovery"},
		logger.Field{Key: "version", Value: "1.0"},
	).WithField("instance", "a").WithFields(map[string]interface{}{"zone": "eu"})

	child.Info("child message")
	base.Info("base message")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "discovery", entries[0]["component"])
	assert.Equal(t, "a", entries[0]["instance"])
	assert.Equal(t, "eu", entries[0]["zone"])
	assert.NotContains(t, entries[1], "component")
}

// TestLogLevels tests level filtering
func TestLogLevels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected int
	}{
		{"Debug", "debug", 4},
		{"Info", "info", 3},
		{"Warn", "WARNING", 2},
		{"Error", "error", 1},
		{"Unknown keeps info", "verbose", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := logger.New(logger.Options{Output: &buf})
			log.SetLevel(tt.level)

			log.Debug("d")
			log.Info("i")
			log.Warn("w")
			log.Error("e")

			assert.Len(t, decodeLines(t, &buf), tt.expected)
		})
	}
}

func TestMalformedFields(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Output: &buf})

	log.Info("dangling", "only-key")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "only-key", entries[0]["!BADKEY"])
}

func TestNoOpLogger(t *testing.T) {
	var log logger.Logger = logger.NoOpLogger{}
	log.Info("ignored", map[string]interface{}{"k": "v"})
	assert.NotNil(t, log.WithField("k", "v"))
}

// BenchmarkLogger benchmarks logger performance
func BenchmarkLogger(b *testing.B) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Output: &buf})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		log.Info("benchmark message",
			logger.Field{Key: "iteration", Value: i},
			logger.Field{Key: "benchmark", Value: true},
		)
	}
}

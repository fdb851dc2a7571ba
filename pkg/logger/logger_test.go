package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/logger/console"
)

func TestFanOut(t *testing.T) {
	a, b := logger.NewRecorder(), logger.NewRecorder()
	logger.Init(a, b)
	t.Cleanup(func() { logger.Init() })

	logger.Warn("[Config] Unknown option", "key", "foo")
	logger.Log("[Test] plain", "n", 1)

	for _, r := range []*logger.Recorder{a, b} {
		warns := r.Entries("warn")
		require.Len(t, warns, 1)
		assert.Equal(t, "[Config] Unknown option", warns[0].Message)
		assert.Equal(t, []any{"key", "foo"}, warns[0].KeyVals)
		assert.Equal(t, []any{"n", 1}, r.Entries("log")[0].KeyVals)
	}
}

func TestConsoleJSON(t *testing.T) {
	var buf bytes.Buffer
	l := console.NewConsoleLogger(console.ConsoleLoggerParams{JSON: true, Output: &buf})
	l.Info("[Importer] Import finished", "entities", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "[Importer] Import finished", line["msg"])
	assert.EqualValues(t, 3, line["entities"])

	buf.Reset()
	l.Debug("hidden")
	assert.Empty(t, buf.String())
}

package format

import (
	"testing"
	"time"

	"gelfship/src/internal/config"
	"gelfship/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextFormatter(t *testing.T) {
	logger := newTestLogger()
	testTime := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("TemplateFields", func(t *testing.T) {
		f, err := NewTextFormatter(config.FormatConfig{
			Spec: "[{{FmtTime .Timestamp}}] {{ToUpper .Level}} {{.Source}}: {{.Message}}",
		}, logger)
		require.NoError(t, err)

		entry := core.LogEntry{
			Time:    testTime,
			Level:   "warn",
			Source:  "stdin",
			Message: "disk almost full",
		}

		out, err := f.Format(entry)
		require.NoError(t, err)
		assert.Equal(t, "[2023-06-01T12:00:00Z] WARN stdin: disk almost full", string(out))
	})

	t.Run("CustomTimestampFormat", func(t *testing.T) {
		f, err := NewTextFormatter(config.FormatConfig{
			Spec:            "{{FmtTime .Timestamp}} {{.Message}}",
			TimestampFormat: "2006-01-02",
		}, logger)
		require.NoError(t, err)

		out, err := f.Format(core.LogEntry{Time: testTime, Message: "x"})
		require.NoError(t, err)
		assert.Equal(t, "2023-06-01 x", string(out))
	})

	t.Run("EmptyLevelDefaultsToInfo", func(t *testing.T) {
		f, err := NewTextFormatter(config.FormatConfig{Spec: "{{.Level}}"}, logger)
		require.NoError(t, err)

		out, err := f.Format(core.LogEntry{Time: testTime})
		require.NoError(t, err)
		assert.Equal(t, "INFO", string(out))
	})

	t.Run("FieldsAccessible", func(t *testing.T) {
		f, err := NewTextFormatter(config.FormatConfig{Spec: "{{.Fields.request_id}}"}, logger)
		require.NoError(t, err)

		entry := core.LogEntry{
			Time:   testTime,
			Fields: map[string]any{"request_id": "r-42"},
		}
		out, err := f.Format(entry)
		require.NoError(t, err)
		assert.Equal(t, "r-42", string(out))
	})

	t.Run("ExecutionFailureFallsBack", func(t *testing.T) {
		f, err := NewTextFormatter(config.FormatConfig{Spec: "{{.Fields.missing.nested}}"}, logger)
		require.NoError(t, err)

		entry := core.LogEntry{
			Time:    testTime,
			Level:   "error",
			Source:  "app",
			Message: "still shipped",
		}
		out, err := f.Format(entry)
		require.NoError(t, err)
		assert.Contains(t, string(out), "still shipped")
		assert.Contains(t, string(out), "ERROR")
	})
}

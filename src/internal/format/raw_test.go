package format

import (
	"testing"
	"time"

	"gelfship/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawFormatter(t *testing.T) {
	logger := newTestLogger()
	f, err := NewRawFormatter(logger)
	require.NoError(t, err)

	entry := core.LogEntry{
		Time:    time.Now(),
		Level:   "error",
		Source:  "app",
		Message: "connection refused\nretrying",
	}

	out, err := f.Format(entry)
	require.NoError(t, err)

	// Message text passes through untouched, no decoration, no newline
	assert.Equal(t, "connection refused\nretrying", string(out))
}

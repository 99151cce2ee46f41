package format

import (
	"testing"

	"gelfship/src/internal/config"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func TestNew(t *testing.T) {
	logger := newTestLogger()

	t.Run("EmptySpecYieldsRaw", func(t *testing.T) {
		f, err := New(config.FormatConfig{}, logger)
		require.NoError(t, err)
		assert.Equal(t, "raw", f.Name())
	})

	t.Run("SpecYieldsText", func(t *testing.T) {
		f, err := New(config.FormatConfig{Spec: "{{.Message}}"}, logger)
		require.NoError(t, err)
		assert.Equal(t, "text", f.Name())
	})

	t.Run("InvalidSpec", func(t *testing.T) {
		_, err := New(config.FormatConfig{Spec: "{{.Message"}, logger)
		assert.Error(t, err)
	})
}

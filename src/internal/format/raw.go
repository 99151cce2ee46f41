package format

import (
	"gelfship/src/internal/core"

	"github.com/lixenwraith/log"
)

// Outputs the log message as-is
type RawFormatter struct {
	logger *log.Logger
}

// Creates a new raw formatter
func NewRawFormatter(logger *log.Logger) (*RawFormatter, error) {
	return &RawFormatter{
		logger: logger,
	}, nil
}

// Returns the message text unchanged
func (f *RawFormatter) Format(entry core.LogEntry) ([]byte, error) {
	return []byte(entry.Message), nil
}

// Returns the formatter name
func (f *RawFormatter) Name() string {
	return "raw"
}

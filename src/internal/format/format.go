package format

import (
	"fmt"

	"gelfship/src/internal/config"
	"gelfship/src/internal/core"

	"github.com/lixenwraith/log"
)

// Formatter renders a log record into its message text. The GELF sink
// derives short_message and full_message from this text; console sinks
// write it verbatim.
type Formatter interface {
	// Format takes a LogEntry and returns the formatted message as a byte slice
	Format(entry core.LogEntry) ([]byte, error)

	// Name returns the formatter type name
	Name() string
}

// New creates a Formatter from the pipeline format configuration. An
// empty spec yields the raw formatter: message text only.
func New(cfg config.FormatConfig, logger *log.Logger) (Formatter, error) {
	if cfg.Spec == "" {
		return NewRawFormatter(logger)
	}

	f, err := NewTextFormatter(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid format spec: %w", err)
	}
	return f, nil
}

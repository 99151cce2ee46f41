package sink

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"gelfship/src/internal/config"
	"gelfship/src/internal/core"
	"gelfship/src/internal/format"

	"github.com/lixenwraith/log"
)

// ConsoleSink writes formatted log entries to stdout or stderr, mainly
// for local debugging of a pipeline
type ConsoleSink struct {
	input     chan core.LogEntry
	target    string
	output    io.Writer
	done      chan struct{}
	startTime time.Time
	logger    *log.Logger
	formatter format.Formatter

	// Statistics
	totalProcessed atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// NewConsoleSink creates a console sink for the configured target
func NewConsoleSink(cfg *config.ConsoleSinkConfig, logger *log.Logger, formatter format.Formatter) (*ConsoleSink, error) {
	target := "stdout"
	bufferSize := int64(core.DefaultChannelBufferSize)
	if cfg != nil {
		if cfg.Target != "" {
			target = cfg.Target
		}
		if cfg.BufferSize > 0 {
			bufferSize = cfg.BufferSize
		}
	}

	output := io.Writer(os.Stdout)
	if target == "stderr" {
		output = os.Stderr
	}

	s := &ConsoleSink{
		input:     make(chan core.LogEntry, bufferSize),
		target:    target,
		output:    output,
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger,
		formatter: formatter,
	}
	s.lastProcessed.Store(time.Time{})

	return s, nil
}

func (s *ConsoleSink) Input() chan<- core.LogEntry {
	return s.input
}

func (s *ConsoleSink) Start(ctx context.Context) error {
	go s.processLoop(ctx)
	s.logger.Info("msg", "Console sink started",
		"component", "console_sink",
		"target", s.target)
	return nil
}

func (s *ConsoleSink) Stop() {
	close(s.done)
	s.logger.Info("msg", "Console sink stopped")
}

func (s *ConsoleSink) GetStats() SinkStats {
	lastProc, _ := s.lastProcessed.Load().(time.Time)

	return SinkStats{
		Type:           "console",
		TotalProcessed: s.totalProcessed.Load(),
		StartTime:      s.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"target": s.target,
		},
	}
}

func (s *ConsoleSink) processLoop(ctx context.Context) {
	for {
		select {
		case entry, ok := <-s.input:
			if !ok {
				return
			}

			s.totalProcessed.Add(1)
			s.lastProcessed.Store(time.Now())

			formatted, err := s.formatter.Format(entry)
			if err != nil {
				s.logger.Error("msg", "Failed to format log entry for console", "error", err)
				continue
			}
			if len(formatted) == 0 || formatted[len(formatted)-1] != '\n' {
				formatted = append(formatted, '\n')
			}
			s.output.Write(formatted)

		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

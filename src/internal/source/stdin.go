package source

import (
	"bufio"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gelfship/src/internal/config"
	"gelfship/src/internal/core"

	"github.com/lixenwraith/log"
)

// StdinSource reads log entries from standard input, one per line
type StdinSource struct {
	mu             sync.Mutex
	subscribers    []chan core.LogEntry
	closed         bool
	done           chan struct{}
	bufferSize     int64
	startTime      time.Time
	logger         *log.Logger
	totalEntries   atomic.Uint64
	droppedEntries atomic.Uint64
	lastEntryTime  atomic.Value // time.Time
}

func NewStdinSource(cfg *config.StdinSourceConfig, logger *log.Logger) (*StdinSource, error) {
	bufferSize := int64(core.DefaultChannelBufferSize)
	if cfg != nil && cfg.BufferSize > 0 {
		bufferSize = cfg.BufferSize
	}

	s := &StdinSource{
		bufferSize:  bufferSize,
		subscribers: make([]chan core.LogEntry, 0),
		done:        make(chan struct{}),
		logger:      logger,
		startTime:   time.Now(),
	}
	s.lastEntryTime.Store(time.Time{})
	return s, nil
}

func (s *StdinSource) Subscribe() <-chan core.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan core.LogEntry, s.bufferSize)
	if s.closed {
		close(ch)
		return ch
	}
	s.subscribers = append(s.subscribers, ch)
	return ch
}

func (s *StdinSource) Start() error {
	go s.readLoop()
	s.logger.Info("msg", "Stdin source started", "component", "stdin_source")
	return nil
}

// Stop closes the subscriber channels. The closed flag is flipped under
// the same lock publish holds, so a publish racing with shutdown either
// completes its sends first or sees the flag and returns.
func (s *StdinSource) Stop() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
		for _, ch := range s.subscribers {
			close(ch)
		}
	}
	s.mu.Unlock()

	s.logger.Info("msg", "Stdin source stopped", "component", "stdin_source")
}

func (s *StdinSource) GetStats() SourceStats {
	lastEntry, _ := s.lastEntryTime.Load().(time.Time)

	return SourceStats{
		Type:           "stdin",
		TotalEntries:   s.totalEntries.Load(),
		DroppedEntries: s.droppedEntries.Load(),
		StartTime:      s.startTime,
		LastEntryTime:  lastEntry,
		Details:        map[string]any{},
	}
}

func (s *StdinSource) readLoop() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-s.done:
			return
		default:
			line := scanner.Text()
			if line == "" {
				continue
			}

			entry := core.LogEntry{
				Time:    time.Now(),
				Source:  "stdin",
				Message: line,
				Level:   extractLogLevel(line),
				RawSize: int64(len(line)),
			}

			s.publish(entry)
		}
	}

	if err := scanner.Err(); err != nil {
		s.logger.Error("msg", "Scanner error reading stdin",
			"component", "stdin_source",
			"error", err)
	}
}

func (s *StdinSource) publish(entry core.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.totalEntries.Add(1)
	s.lastEntryTime.Store(entry.Time)

	for _, ch := range s.subscribers {
		select {
		case ch <- entry:
		default:
			s.droppedEntries.Add(1)
			s.logger.Debug("msg", "Dropped log entry - subscriber buffer full",
				"component", "stdin_source")
		}
	}
}

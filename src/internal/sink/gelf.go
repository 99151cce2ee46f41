package sink

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gelfship/src/internal/backlog"
	"gelfship/src/internal/config"
	"gelfship/src/internal/core"
	"gelfship/src/internal/format"
	"gelfship/src/internal/gelf"

	"github.com/lixenwraith/log"
)

const drainPollInterval = 10 * time.Millisecond

// connState tracks the collector connection lifecycle
type connState int

const (
	stateDisconnected connState = iota
	stateConnected
	stateFailed
	stateRetrying
)

func (s connState) String() string {
	switch s {
	case stateDisconnected:
		return "disconnected"
	case stateConnected:
		return "connected"
	case stateFailed:
		return "failed"
	case stateRetrying:
		return "retrying"
	default:
		return "unknown"
	}
}

// retryMode selects what happens to new records while disconnected
type retryMode int

const (
	modeBuffering retryMode = iota
	modeDiscarding
)

func (m retryMode) String() string {
	if m == modeDiscarding {
		return "discarding"
	}
	return "buffering"
}

// connLoss is the close/error notification from a connection watcher
type connLoss struct {
	generation uint64
	err        error
}

// GELFSink delivers log entries to a GELF collector over TCP or UDP.
// All state transitions are serialized through a single control loop:
// records, retry timer firings, connection-loss notifications and flush
// requests arrive as events, and exactly one transition runs at a time.
type GELFSink struct {
	input     chan core.LogEntry
	config    *config.GELFSinkConfig
	logger    *log.Logger
	formatter format.Formatter
	encoder   gelf.Encoder

	dialCfg     gelf.DialConfig
	builderCfg  gelf.BuilderConfig
	compression gelf.Compression
	minLevel    int64 // syslog level threshold, -1 accepts all
	backlogCap  int   // 10x discard threshold, 0 means unbounded

	// Control loop state. Owned by run(); never touched elsewhere.
	state      connState
	mode       retryMode
	conn       *gelf.Conn
	generation uint64
	backlog    *backlog.Queue
	retryTimer *time.Timer
	retryDelay time.Duration

	runCtx   context.Context
	connLost chan connLoss
	flushReq chan chan error
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	startTime      time.Time
	lastConnectErr atomic.Value // string

	// Statistics
	totalProcessed  atomic.Uint64
	totalDelivered  atomic.Uint64
	totalFiltered   atomic.Uint64
	totalDiscarded  atomic.Uint64
	totalDropped    atomic.Uint64 // encode/format failures
	totalReconnects atomic.Uint64
	backlogSize     atomic.Int64
	stateValue      atomic.Int64
	modeValue       atomic.Int64
	lastProcessed   atomic.Value // time.Time
}

// NewGELFSink creates a GELF delivery sink. The configuration is
// immutable for the sink's lifetime.
func NewGELFSink(cfg *config.GELFSinkConfig, logger *log.Logger, formatter format.Formatter) (*GELFSink, error) {
	cfg = normalizeConfig(cfg)

	hostname := cfg.Hostname
	if hostname == "" {
		if h, err := os.Hostname(); err == nil {
			hostname = h
		} else {
			hostname = "localhost"
		}
	}

	minLevel := int64(-1)
	if cfg.MinSeverity != "" {
		minLevel = gelf.SyslogLevel(cfg.MinSeverity)
	}

	backlogCap := 0
	if cfg.DiscardThreshold > 0 {
		backlogCap = int(cfg.DiscardThreshold) * 10
	}

	s := &GELFSink{
		input:     make(chan core.LogEntry, cfg.BufferSize),
		config:    cfg,
		logger:    logger,
		formatter: formatter,
		encoder:   gelf.JSONEncoder{},
		dialCfg: gelf.DialConfig{
			Protocol:        gelf.Protocol(cfg.Protocol),
			Host:            cfg.Host,
			Port:            cfg.Port,
			ConnectTimeout:  time.Duration(cfg.ConnectTimeoutMs) * time.Millisecond,
			WriteTimeout:    time.Duration(cfg.WriteTimeoutMs) * time.Millisecond,
			MaxDatagramSize: int(cfg.MaxDatagramSize),
		},
		builderCfg: gelf.BuilderConfig{
			Hostname:        hostname,
			StaticFields:    cfg.StaticFields,
			TimestampOffset: time.Duration(cfg.TimestampOffsetMs) * time.Millisecond,
		},
		compression: gelf.Compression(cfg.Compression),
		minLevel:    minLevel,
		backlogCap:  backlogCap,
		state:       stateDisconnected,
		backlog:     backlog.New(),
		retryDelay:  time.Duration(cfg.RetryIntervalMs) * time.Millisecond,
		connLost:    make(chan connLoss, 8),
		flushReq:    make(chan chan error),
		done:        make(chan struct{}),
		startTime:   time.Now(),
	}
	s.lastProcessed.Store(time.Time{})
	s.lastConnectErr.Store("")

	return s, nil
}

func normalizeConfig(cfg *config.GELFSinkConfig) *config.GELFSinkConfig {
	defaults := config.DefaultGELFSinkConfig()
	if cfg == nil {
		return defaults
	}

	out := *cfg
	if out.Host == "" {
		out.Host = defaults.Host
	}
	if out.Port == 0 {
		out.Port = defaults.Port
	}
	if out.Protocol == "" {
		out.Protocol = defaults.Protocol
	}
	if out.ConnectTimeoutMs <= 0 {
		out.ConnectTimeoutMs = defaults.ConnectTimeoutMs
	}
	if out.WriteTimeoutMs <= 0 {
		out.WriteTimeoutMs = defaults.WriteTimeoutMs
	}
	if out.Compression == "" {
		out.Compression = defaults.Compression
	}
	if out.RetryIntervalMs <= 0 {
		out.RetryIntervalMs = defaults.RetryIntervalMs
	}
	if out.MaxRetryIntervalMs <= 0 {
		out.MaxRetryIntervalMs = defaults.MaxRetryIntervalMs
	}
	if out.RetryBackoff < 1.0 {
		out.RetryBackoff = defaults.RetryBackoff
	}
	if out.BufferSize <= 0 {
		out.BufferSize = defaults.BufferSize
	}
	return &out
}

func (s *GELFSink) Input() chan<- core.LogEntry {
	return s.input
}

func (s *GELFSink) Start(ctx context.Context) error {
	s.runCtx = ctx

	// Session start: one immediate connect attempt
	if err := s.tryConnect(); err != nil {
		s.setState(stateFailed)
	} else {
		s.setState(stateConnected)
	}

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("msg", "GELF sink started",
		"component", "gelf_sink",
		"host", s.config.Host,
		"port", s.config.Port,
		"protocol", s.config.Protocol,
		"state", s.state.String())
	return nil
}

func (s *GELFSink) Stop() {
	s.logger.Info("msg", "Stopping GELF sink")
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()

	s.logger.Info("msg", "GELF sink stopped",
		"total_processed", s.totalProcessed.Load(),
		"total_delivered", s.totalDelivered.Load(),
		"total_discarded", s.totalDiscarded.Load())
}

// Flush blocks until the kernel confirms all accepted bytes were handed
// to the network
func (s *GELFSink) Flush() error {
	reply := make(chan error, 1)
	select {
	case s.flushReq <- reply:
		return <-reply
	case <-s.done:
		return nil
	}
}

func (s *GELFSink) GetStats() SinkStats {
	lastProc, _ := s.lastProcessed.Load().(time.Time)

	return SinkStats{
		Type:           "gelf",
		TotalProcessed: s.totalProcessed.Load(),
		StartTime:      s.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"host":             s.config.Host,
			"port":             s.config.Port,
			"protocol":         s.config.Protocol,
			"state":            connState(s.stateValue.Load()).String(),
			"mode":             retryMode(s.modeValue.Load()).String(),
			"backlog_size":     s.backlogSize.Load(),
			"total_delivered":  s.totalDelivered.Load(),
			"total_filtered":   s.totalFiltered.Load(),
			"total_discarded":  s.totalDiscarded.Load(),
			"total_dropped":    s.totalDropped.Load(),
			"total_reconnects": s.totalReconnects.Load(),
			"last_error":       s.lastConnectErr.Load(),
		},
	}
}

// run is the single control loop. Every state transition happens here.
func (s *GELFSink) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		var timerC <-chan time.Time
		if s.retryTimer != nil {
			timerC = s.retryTimer.C
		}

		select {
		case entry, ok := <-s.input:
			if !ok {
				s.shutdown()
				return
			}
			s.handleRecord(entry)

		case loss := <-s.connLost:
			s.handleConnLoss(loss)

		case <-timerC:
			s.retryTimer = nil
			s.handleRetryTimer()

		case reply := <-s.flushReq:
			reply <- s.drainPending()

		case <-ctx.Done():
			s.shutdown()
			return

		case <-s.done:
			s.shutdown()
			return
		}
	}
}

func (s *GELFSink) handleRecord(entry core.LogEntry) {
	s.totalProcessed.Add(1)
	s.lastProcessed.Store(time.Now())

	if !s.accepts(entry) {
		s.totalFiltered.Add(1)
		return
	}

	switch s.state {
	case stateConnected:
		if err := s.deliver(entry); err != nil {
			s.onSendFailure(err)
			s.handleFailedRecord(entry)
		}

	case stateFailed, stateDisconnected:
		s.handleFailedRecord(entry)

	case stateRetrying:
		s.bufferOrDiscard(entry)
	}
}

// handleFailedRecord is the Failed-state path: one immediate reconnect
// attempt, then buffering with a retry timer.
func (s *GELFSink) handleFailedRecord(entry core.LogEntry) {
	if err := s.tryConnect(); err != nil {
		s.enterRetry(entry)
		return
	}

	s.setState(stateConnected)
	if err := s.deliver(entry); err != nil {
		s.onSendFailure(err)
		s.enterRetry(entry)
	}
}

func (s *GELFSink) enterRetry(entry core.LogEntry) {
	s.bufferOrDiscard(entry)
	s.scheduleRetry()
	s.setState(stateRetrying)
}

func (s *GELFSink) handleConnLoss(loss connLoss) {
	if loss.generation != s.generation || s.state != stateConnected {
		// Notification from an already-released socket
		return
	}

	s.logger.Warn("msg", "Lost connection to collector",
		"component", "gelf_sink",
		"host", s.config.Host,
		"port", s.config.Port,
		"error", loss.err)

	s.teardown()
	s.setState(stateFailed)
}

func (s *GELFSink) handleRetryTimer() {
	if s.state != stateRetrying {
		return
	}

	if err := s.tryConnect(); err != nil {
		s.recomputeMode()
		s.scheduleRetry()
		return
	}

	s.setState(stateConnected)
	s.drainBacklog()
}

// drainBacklog replays buffered records oldest-first through the
// connected path. A record is removed only after its send succeeds; a
// mid-drain failure stops the drain and re-enters retry with the failed
// record still buffered.
func (s *GELFSink) drainBacklog() {
	for {
		record, ok := s.backlog.PeekOldest()
		if !ok {
			return
		}

		if err := s.deliver(record); err != nil {
			s.onSendFailure(err)
			s.recomputeMode()
			s.scheduleRetry()
			s.setState(stateRetrying)
			return
		}

		s.backlog.DropOldest()
		s.backlogSize.Store(int64(s.backlog.Size()))
	}
}

// bufferOrDiscard applies the backpressure policy: once the backlog
// reaches 10x the discard threshold new records are dropped; buffering
// resumes when a partial drain brings it back below the cap.
func (s *GELFSink) bufferOrDiscard(entry core.LogEntry) {
	s.recomputeMode()
	if s.mode == modeDiscarding {
		s.totalDiscarded.Add(1)
		return
	}

	s.backlog.Insert(entry)
	s.backlogSize.Store(int64(s.backlog.Size()))
}

func (s *GELFSink) recomputeMode() {
	mode := modeBuffering
	if s.backlogCap > 0 && s.backlog.Size() >= s.backlogCap {
		mode = modeDiscarding
	}

	if mode != s.mode {
		if mode == modeDiscarding {
			s.logger.Warn("msg", "Backlog cap reached, discarding new records",
				"component", "gelf_sink",
				"backlog_size", s.backlog.Size(),
				"cap", s.backlogCap)
		} else {
			s.logger.Info("msg", "Backlog below cap, buffering resumed",
				"component", "gelf_sink",
				"backlog_size", s.backlog.Size())
		}
	}

	s.mode = mode
	s.modeValue.Store(int64(mode))
}

func (s *GELFSink) scheduleRetry() {
	// Single outstanding timer; a new one is armed only after the
	// previous attempt concluded
	if s.retryTimer != nil {
		return
	}

	s.retryTimer = time.NewTimer(s.retryDelay)

	// Exponential backoff for the next attempt
	next := time.Duration(float64(s.retryDelay) * s.config.RetryBackoff)
	maxDelay := time.Duration(s.config.MaxRetryIntervalMs) * time.Millisecond
	if next > maxDelay {
		next = maxDelay
	}
	s.retryDelay = next
}

func (s *GELFSink) tryConnect() error {
	conn, err := gelf.Dial(s.dialCfg)
	if err != nil {
		s.lastConnectErr.Store(err.Error())
		s.logger.Warn("msg", "Failed to connect to collector",
			"component", "gelf_sink",
			"host", s.config.Host,
			"port", s.config.Port,
			"protocol", s.config.Protocol,
			"error", err,
			"retry_delay", s.retryDelay)
		return err
	}

	s.conn = conn
	s.generation++
	s.totalReconnects.Add(1)
	s.retryDelay = time.Duration(s.config.RetryIntervalMs) * time.Millisecond
	s.lastConnectErr.Store("")

	if conn.Protocol() == gelf.ProtocolTCP {
		s.watchConnection(conn, s.generation)
	}

	s.logger.Info("msg", "Connected to collector",
		"component", "gelf_sink",
		"host", s.config.Host,
		"port", s.config.Port,
		"protocol", s.config.Protocol)
	return nil
}

// watchConnection surfaces peer close and transport errors as events
// into the control loop
func (s *GELFSink) watchConnection(conn *gelf.Conn, generation uint64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := conn.AwaitClose()
		select {
		case s.connLost <- connLoss{generation: generation, err: err}:
		case <-s.done:
		case <-s.runCtx.Done():
		}
	}()
}

// deliver builds, encodes and sends one record. Encode and format
// failures drop the single record and return nil; only transport
// failures propagate so the caller can start retrying.
func (s *GELFSink) deliver(entry core.LogEntry) error {
	text, err := s.formatter.Format(entry)
	if err != nil {
		s.totalDropped.Add(1)
		s.logger.Error("msg", "Failed to format log entry",
			"component", "gelf_sink",
			"error", err)
		return nil
	}

	fields := gelf.Build(entry, strings.TrimRight(string(text), "\n"), s.builderCfg)
	payload, err := s.encoder.Encode(fields)
	if err != nil {
		s.totalDropped.Add(1)
		s.logger.Error("msg", "Failed to encode GELF message",
			"component", "gelf_sink",
			"error", err)
		return nil
	}

	switch s.conn.Protocol() {
	case gelf.ProtocolTCP:
		if err := s.conn.Write(gelf.FrameTCP(payload)); err != nil {
			return err
		}

	case gelf.ProtocolUDP:
		datagrams, err := gelf.Datagrams(payload, s.conn.DatagramSize(), s.compression)
		if err != nil {
			s.totalDropped.Add(1)
			s.logger.Error("msg", "Failed to frame GELF message",
				"component", "gelf_sink",
				"error", err)
			return nil
		}
		for _, datagram := range datagrams {
			if err := s.conn.Write(datagram); err != nil {
				return err
			}
		}
	}

	s.totalDelivered.Add(1)
	return nil
}

func (s *GELFSink) accepts(entry core.LogEntry) bool {
	if s.minLevel < 0 {
		return true
	}
	// Lower syslog values are more severe
	return gelf.SyslogLevel(entry.Level) <= s.minLevel
}

func (s *GELFSink) onSendFailure(err error) {
	s.logger.Warn("msg", "Send to collector failed",
		"component", "gelf_sink",
		"host", s.config.Host,
		"port", s.config.Port,
		"error", err)

	s.teardown()
	s.setState(stateFailed)
}

func (s *GELFSink) drainPending() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.DrainPending(drainPollInterval)
}

// teardown releases the held socket. Bumping the generation marks any
// in-flight watcher notification stale.
func (s *GELFSink) teardown() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.generation++
}

func (s *GELFSink) setState(state connState) {
	s.state = state
	s.stateValue.Store(int64(state))
}

// shutdown flushes in-flight bytes, releases the socket and discards
// the backlog. Buffered never-sent records are deliberately dropped.
func (s *GELFSink) shutdown() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}

	if s.conn != nil {
		_ = s.conn.DrainPending(drainPollInterval)
	}
	s.teardown()

	if discarded := s.backlog.Size(); discarded > 0 {
		s.logger.Warn("msg", "Discarding buffered records on shutdown",
			"component", "gelf_sink",
			"count", discarded)
	}
	s.backlog.Clear()
	s.backlogSize.Store(0)
	s.setState(stateDisconnected)
}

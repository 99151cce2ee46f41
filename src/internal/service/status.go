package service

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"gelfship/src/internal/config"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

// StatusServer exposes pipeline statistics over HTTP for operators.
// It carries no log data; GELF transport stays TCP/UDP only.
type StatusServer struct {
	service *Service
	port    int64
	server  *fasthttp.Server
	logger  *log.Logger

	startTime     time.Time
	totalRequests atomic.Uint64
}

// NewStatusServer creates a status endpoint for the service
func NewStatusServer(svc *Service, cfg config.StatusConfig, logger *log.Logger) *StatusServer {
	s := &StatusServer{
		service:   svc,
		port:      cfg.Port,
		logger:    logger,
		startTime: time.Now(),
	}

	s.server = &fasthttp.Server{
		Handler:          s.requestHandler,
		DisableKeepalive: false,
		CloseOnShutdown:  true,
	}

	return s
}

// Start begins serving in the background
func (s *StatusServer) Start() error {
	addr := fmt.Sprintf(":%d", s.port)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("msg", "Status server starting",
			"component", "status_server",
			"port", s.port)
		errChan <- s.server.ListenAndServe(addr)
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("status server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Shutdown stops the server
func (s *StatusServer) Shutdown() {
	if err := s.server.Shutdown(); err != nil {
		s.logger.Warn("msg", "Status server shutdown error",
			"component", "status_server",
			"error", err)
	}
}

func (s *StatusServer) requestHandler(ctx *fasthttp.RequestCtx) {
	s.totalRequests.Add(1)

	switch string(ctx.Path()) {
	case "/status":
		s.handleStatus(ctx)
	case "/healthz":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok\n")
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *StatusServer) handleStatus(ctx *fasthttp.RequestCtx) {
	stats := s.service.GetGlobalStats()
	stats["uptime_seconds"] = time.Since(s.startTime).Seconds()
	stats["status_requests"] = s.totalRequests.Load()

	body, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		s.logger.Error("msg", "Failed to marshal status",
			"component", "status_server",
			"error", err)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(body)
}

package service

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"context"

	"gelfship/src/internal/config"
	"gelfship/src/internal/format"
	"gelfship/src/internal/limit"
	"gelfship/src/internal/sink"
	"gelfship/src/internal/source"

	"github.com/lixenwraith/log"
)

// Pipeline manages the flow of data from sources through the rate
// limiter to sinks
type Pipeline struct {
	Config      *config.PipelineConfig
	Sources     []source.Source
	RateLimiter *limit.RateLimiter
	Sinks       []sink.Sink
	Stats       *PipelineStats
	logger      *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PipelineStats contains statistics for a pipeline
type PipelineStats struct {
	StartTime                      time.Time
	TotalEntriesProcessed          atomic.Uint64
	TotalEntriesDroppedByRateLimit atomic.Uint64
}

// NewPipeline creates and starts a new pipeline
func (s *Service) NewPipeline(cfg *config.PipelineConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pipelines[cfg.Name]; exists {
		err := fmt.Errorf("pipeline '%s' already exists", cfg.Name)
		s.logger.Error("msg", "Failed to create pipeline - duplicate name",
			"component", "service",
			"pipeline", cfg.Name,
			"error", err)
		return err
	}

	s.logger.Debug("msg", "Creating pipeline", "pipeline", cfg.Name)

	pipelineCtx, pipelineCancel := context.WithCancel(s.ctx)

	pipeline := &Pipeline{
		Config: cfg,
		Stats: &PipelineStats{
			StartTime: time.Now(),
		},
		ctx:    pipelineCtx,
		cancel: pipelineCancel,
		logger: s.logger,
	}

	// Create sources
	for i, srcCfg := range cfg.Sources {
		src, err := s.createSource(&srcCfg)
		if err != nil {
			pipelineCancel()
			return fmt.Errorf("failed to create source[%d]: %w", i, err)
		}
		pipeline.Sources = append(pipeline.Sources, src)
	}

	// Create pipeline rate limiter
	if cfg.RateLimit != nil {
		pipeline.RateLimiter = limit.NewRateLimiter(*cfg.RateLimit, s.logger)
	}

	// Create formatter for the pipeline
	formatter, err := format.New(cfg.Format, s.logger)
	if err != nil {
		pipelineCancel()
		return fmt.Errorf("failed to create formatter: %w", err)
	}

	// Create sinks
	for i, sinkCfg := range cfg.Sinks {
		sinkInst, err := s.createSink(sinkCfg, formatter)
		if err != nil {
			pipelineCancel()
			return fmt.Errorf("failed to create sink[%d]: %w", i, err)
		}
		pipeline.Sinks = append(pipeline.Sinks, sinkInst)
	}

	// Start all sources
	for i, src := range pipeline.Sources {
		if err := src.Start(); err != nil {
			pipeline.Shutdown()
			return fmt.Errorf("failed to start source[%d]: %w", i, err)
		}
	}

	// Start all sinks
	for i, sinkInst := range pipeline.Sinks {
		if err := sinkInst.Start(pipelineCtx); err != nil {
			pipeline.Shutdown()
			return fmt.Errorf("failed to start sink[%d]: %w", i, err)
		}
	}

	// Wire sources to sinks
	s.wirePipeline(pipeline)

	s.pipelines[cfg.Name] = pipeline
	s.logger.Info("msg", "Pipeline created successfully",
		"pipeline", cfg.Name)
	return nil
}

// Shutdown gracefully stops the pipeline. Sinks that buffer in the
// kernel are flushed before teardown so accepted bytes are not lost.
func (p *Pipeline) Shutdown() {
	p.logger.Info("msg", "Shutting down pipeline", "pipeline", p.Config.Name)

	// Stop sources first so no new entries arrive
	for _, src := range p.Sources {
		src.Stop()
	}

	p.cancel()
	p.wg.Wait()

	for _, sinkInst := range p.Sinks {
		if flusher, ok := sinkInst.(sink.Flusher); ok {
			if err := flusher.Flush(); err != nil {
				p.logger.Warn("msg", "Sink flush failed during shutdown",
					"pipeline", p.Config.Name,
					"error", err)
			}
		}
		sinkInst.Stop()
	}

	p.logger.Info("msg", "Pipeline shutdown complete", "pipeline", p.Config.Name)
}

// GetStats returns a snapshot of pipeline statistics
func (p *Pipeline) GetStats() map[string]any {
	sourceStats := make([]source.SourceStats, 0, len(p.Sources))
	for _, src := range p.Sources {
		sourceStats = append(sourceStats, src.GetStats())
	}

	sinkStats := make([]sink.SinkStats, 0, len(p.Sinks))
	for _, sinkInst := range p.Sinks {
		sinkStats = append(sinkStats, sinkInst.GetStats())
	}

	return map[string]any{
		"name":                 p.Config.Name,
		"start_time":           p.Stats.StartTime,
		"entries_processed":    p.Stats.TotalEntriesProcessed.Load(),
		"dropped_by_ratelimit": p.Stats.TotalEntriesDroppedByRateLimit.Load(),
		"rate_limit":           p.RateLimiter.GetStats(),
		"sources":              sourceStats,
		"sinks":                sinkStats,
	}
}

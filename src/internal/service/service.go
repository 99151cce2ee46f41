package service

import (
	"context"
	"fmt"
	"sync"

	"gelfship/src/internal/config"
	"gelfship/src/internal/core"
	"gelfship/src/internal/format"
	"gelfship/src/internal/sink"
	"gelfship/src/internal/source"

	"github.com/lixenwraith/log"
)

// Service manages a collection of log shipping pipelines
type Service struct {
	pipelines map[string]*Pipeline
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    *log.Logger
}

// New creates a new, empty service
func New(ctx context.Context, logger *log.Logger) *Service {
	serviceCtx, cancel := context.WithCancel(ctx)
	return &Service{
		pipelines: make(map[string]*Pipeline),
		ctx:       serviceCtx,
		cancel:    cancel,
		logger:    logger,
	}
}

// GetPipeline returns a pipeline by its name
func (s *Service) GetPipeline(name string) (*Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pipeline, exists := s.pipelines[name]
	if !exists {
		return nil, fmt.Errorf("pipeline '%s' not found", name)
	}
	return pipeline, nil
}

// ListPipelines returns the names of all currently managed pipelines
func (s *Service) ListPipelines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.pipelines))
	for name := range s.pipelines {
		names = append(names, name)
	}
	return names
}

// RemovePipeline stops and removes a pipeline from the service
func (s *Service) RemovePipeline(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pipeline, exists := s.pipelines[name]
	if !exists {
		err := fmt.Errorf("pipeline '%s' not found", name)
		s.logger.Warn("msg", "Cannot remove non-existent pipeline",
			"component", "service",
			"pipeline", name,
			"error", err)
		return err
	}

	s.logger.Info("msg", "Removing pipeline", "pipeline", name)
	pipeline.Shutdown()
	delete(s.pipelines, name)
	return nil
}

// Shutdown gracefully stops all pipelines managed by the service
func (s *Service) Shutdown() {
	s.logger.Info("msg", "Service shutdown initiated")

	s.mu.Lock()
	pipelines := make([]*Pipeline, 0, len(s.pipelines))
	for _, pipeline := range s.pipelines {
		pipelines = append(pipelines, pipeline)
	}
	s.mu.Unlock()

	// Stop all pipelines concurrently
	var wg sync.WaitGroup
	for _, pipeline := range pipelines {
		wg.Add(1)
		go func(p *Pipeline) {
			defer wg.Done()
			p.Shutdown()
		}(pipeline)
	}
	wg.Wait()

	s.cancel()
	s.wg.Wait()

	s.logger.Info("msg", "Service shutdown complete")
}

// GetGlobalStats returns statistics for all pipelines
func (s *Service) GetGlobalStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pipelineStats := make(map[string]any)
	for name, pipeline := range s.pipelines {
		pipelineStats[name] = pipeline.GetStats()
	}

	return map[string]any{
		"pipelines":       pipelineStats,
		"total_pipelines": len(s.pipelines),
	}
}

// wirePipeline connects a pipeline's sources to its sinks through the
// rate limiter
func (s *Service) wirePipeline(p *Pipeline) {
	for _, src := range p.Sources {
		srcChan := src.Subscribe()

		p.wg.Add(1)
		go func(src source.Source, entries <-chan core.LogEntry) {
			defer p.wg.Done()

			// Panic recovery to prevent a single source from crashing the pipeline
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("msg", "Panic in pipeline processing",
						"pipeline", p.Config.Name,
						"source", src.GetStats().Type,
						"panic", r)

					go func() {
						s.logger.Warn("msg", "Shutting down pipeline due to panic",
							"pipeline", p.Config.Name)
						if err := s.RemovePipeline(p.Config.Name); err != nil {
							s.logger.Error("msg", "Failed to remove panicked pipeline",
								"pipeline", p.Config.Name,
								"error", err)
						}
					}()
				}
			}()

			for {
				select {
				case <-p.ctx.Done():
					return
				case entry, ok := <-entries:
					if !ok {
						return
					}

					p.Stats.TotalEntriesProcessed.Add(1)

					if p.RateLimiter != nil && !p.RateLimiter.Allow(entry) {
						p.Stats.TotalEntriesDroppedByRateLimit.Add(1)
						continue
					}

					for _, sinkInst := range p.Sinks {
						select {
						case sinkInst.Input() <- entry:
						case <-p.ctx.Done():
							return
						default:
							// Drop if sink buffer is full, may flood logging for slow collector
							s.logger.Debug("msg", "Dropped log entry - sink buffer full",
								"pipeline", p.Config.Name)
						}
					}
				}
			}
		}(src, srcChan)
	}
}

// createSource is a factory function for creating a source instance from configuration
func (s *Service) createSource(cfg *config.SourceConfig) (source.Source, error) {
	switch cfg.Type {
	case "stdin":
		return source.NewStdinSource(cfg.Stdin, s.logger)
	case "tcp":
		return source.NewTCPSource(cfg.TCP, s.logger)
	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Type)
	}
}

// createSink is a factory function for creating a sink instance from configuration
func (s *Service) createSink(cfg config.SinkConfig, formatter format.Formatter) (sink.Sink, error) {
	switch cfg.Type {
	case "gelf":
		if cfg.GELF == nil {
			return nil, fmt.Errorf("GELF sink configuration missing")
		}
		return sink.NewGELFSink(cfg.GELF, s.logger, formatter)
	case "stdout", "stderr":
		consoleCfg := cfg.Console
		if consoleCfg == nil {
			consoleCfg = &config.ConsoleSinkConfig{Target: cfg.Type}
		} else if consoleCfg.Target == "" {
			consoleCfg.Target = cfg.Type
		}
		return sink.NewConsoleSink(consoleCfg, s.logger, formatter)
	case "console":
		return sink.NewConsoleSink(cfg.Console, s.logger, formatter)
	default:
		return nil, fmt.Errorf("unknown sink type: %s", cfg.Type)
	}
}

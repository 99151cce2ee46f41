package main

import (
	"context"
	"fmt"

	"gelfship/src/internal/config"
	"gelfship/src/internal/service"
	"gelfship/src/internal/version"

	"github.com/lixenwraith/log"
)

// bootstrapService creates and initializes the log shipping service
func bootstrapService(ctx context.Context, cfg *config.Config) (*service.Service, *service.StatusServer, error) {
	svc := service.New(ctx, logger)

	successCount := 0
	for i := range cfg.Pipelines {
		pipelineCfg := &cfg.Pipelines[i]
		logger.Info("msg", "Initializing pipeline", "pipeline", pipelineCfg.Name)

		if err := svc.NewPipeline(pipelineCfg); err != nil {
			logger.Error("msg", "Failed to create pipeline",
				"pipeline", pipelineCfg.Name,
				"error", err)
			continue
		}
		successCount++
	}

	if successCount == 0 {
		return nil, nil, fmt.Errorf("no pipelines successfully started (attempted %d)", len(cfg.Pipelines))
	}

	var statusServer *service.StatusServer
	if cfg.Status.Enabled {
		statusServer = service.NewStatusServer(svc, cfg.Status, logger)
		if err := statusServer.Start(); err != nil {
			logger.Error("msg", "Failed to start status server", "error", err)
			statusServer = nil
		}
	}

	logger.Info("msg", "gelfship started",
		"version", version.Short(),
		"pipelines", successCount)

	return svc, statusServer, nil
}

// initializeLogger sets up the diagnostic logger based on configuration
func initializeLogger(cfg *config.Config) error {
	logger = log.NewLogger()

	var configArgs []string

	if cfg.Quiet {
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=false",
			"level=255")
		return logger.ApplyConfigString(configArgs...)
	}

	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	levelValue, err := parseLogLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	configArgs = append(configArgs, fmt.Sprintf("level=%d", levelValue))

	outputMode := cfg.Logging.Output
	if *logOutput != "" {
		outputMode = *logOutput
	}

	switch outputMode {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_stdout=false")

	case "stdout":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target=stdout")

	case "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target=stderr")

	case "file":
		configArgs = append(configArgs, "enable_stdout=false")
		if cfg.Logging.File != nil {
			configArgs = append(configArgs,
				fmt.Sprintf("directory=%s", cfg.Logging.File.Directory),
				fmt.Sprintf("name=%s", cfg.Logging.File.Name),
				fmt.Sprintf("max_size_mb=%d", cfg.Logging.File.MaxSizeMB),
				fmt.Sprintf("max_total_size_mb=%d", cfg.Logging.File.MaxTotalSizeMB))
		}

	default:
		return fmt.Errorf("invalid log output mode: %s", outputMode)
	}

	return logger.ApplyConfigString(configArgs...)
}

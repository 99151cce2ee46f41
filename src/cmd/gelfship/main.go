package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gelfship/src/internal/config"
	"gelfship/src/internal/version"

	"github.com/lixenwraith/log"
)

var logger *log.Logger

func main() {
	if err := parseFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	if *configFile != "" {
		os.Setenv("GELFSHIP_CONFIG_FILE", *configFile)
	}

	cfg, err := config.LoadWithCLI(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *quiet {
		cfg.Quiet = true
	}

	InitOutputHandler(cfg.Quiet)

	if err := initializeLogger(cfg); err != nil {
		FatalError(1, "Failed to initialize logger: %v\n", err)
	}
	defer shutdownLogger()

	logger.Info("msg", "gelfship starting",
		"version", version.String(),
		"config_file", *configFile,
		"log_output", cfg.Logging.Output)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	svc, statusServer, err := bootstrapService(ctx, cfg)
	if err != nil {
		logger.Error("msg", "Failed to bootstrap service", "error", err)
		os.Exit(1)
	}

	// Wait for shutdown signal
	<-sigChan
	logger.Info("msg", "Shutdown signal received, starting graceful shutdown...")

	if statusServer != nil {
		statusServer.Shutdown()
	}

	// Shutdown service with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		svc.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("msg", "Shutdown complete")
	case <-shutdownCtx.Done():
		logger.Error("msg", "Shutdown timeout exceeded - forcing exit")
		os.Exit(1)
	}
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			// Best effort - can't log the shutdown error
			Error("Logger shutdown error: %v\n", err)
		}
	}
}

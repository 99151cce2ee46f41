package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/lixenwraith/log"
)

// Command-line flags
var (
	configFile  = flag.String("config", "", "Config file path")
	showVersion = flag.Bool("version", false, "Show version information")
	quiet       = flag.Bool("quiet", false, "Suppress all console output")

	logOutput = flag.String("log-output", "", "Log output: file, stdout, stderr, none (overrides config)")
	logLevel  = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
)

func init() {
	flag.Usage = customUsage
}

func customUsage() {
	fmt.Fprintf(os.Stderr, "gelfship - GELF Log Shipping Service\n\n")
	fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Options:\n")

	fmt.Fprintf(os.Stderr, "\nGeneral:\n")
	fmt.Fprintf(os.Stderr, "  -config string\n\tConfig file path\n")
	fmt.Fprintf(os.Stderr, "  -version\n\tShow version information\n")
	fmt.Fprintf(os.Stderr, "  -quiet\n\tSuppress all console output\n")

	fmt.Fprintf(os.Stderr, "\nLogging:\n")
	fmt.Fprintf(os.Stderr, "  -log-output string\n\tLog output: file, stdout, stderr, none (overrides config)\n")
	fmt.Fprintf(os.Stderr, "  -log-level string\n\tLog level: debug, info, warn, error (overrides config)\n")

	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  # Ship stdin to a local Graylog over UDP\n")
	fmt.Fprintf(os.Stderr, "  tail -f app.log | %s\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "  # Run with a custom config and debug diagnostics\n")
	fmt.Fprintf(os.Stderr, "  %s --config /etc/gelfship.toml --log-level debug\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "Environment Variables:\n")
	fmt.Fprintf(os.Stderr, "  GELFSHIP_CONFIG_FILE  Config file path\n")
	fmt.Fprintf(os.Stderr, "  GELFSHIP_CONFIG_DIR   Config directory\n")
}

func parseFlags() error {
	flag.Parse()

	if *logOutput != "" {
		validOutputs := map[string]bool{
			"file": true, "stdout": true, "stderr": true, "none": true,
		}
		if !validOutputs[*logOutput] {
			return fmt.Errorf("invalid log-output: %s (valid: file, stdout, stderr, none)", *logOutput)
		}
	}

	if *logLevel != "" {
		if _, err := parseLogLevel(*logLevel); err != nil {
			return fmt.Errorf("invalid log-level: %s (valid: debug, info, warn, error)", *logLevel)
		}
	}

	return nil
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}

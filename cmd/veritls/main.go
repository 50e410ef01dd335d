// Package main is the entry point for the veritls tool.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/veritls/veritls/internal/config"
	"github.com/veritls/veritls/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	mode        string
	configPath  string
	certPath    string
	address     string
	host        string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig(flags.configPath, logger)

	switch flags.mode {
	case "check":
		os.Exit(runCheck(flags, cfg, logger))
	case "probe":
		os.Exit(runProbe(flags, cfg, logger))
	case "serve":
		runServe(flags, cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want check, probe, or serve)\n", flags.mode)
		os.Exit(2)
	}
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	mode := flag.String("mode", "check",
		"Operation mode: check (offline PEM), probe (live endpoint), serve (diagnostic server)")
	configPath := flag.String("config", getEnvOrDefault("VERITLS_CONFIG_PATH", "configs/veritls.yaml"),
		"Path to configuration file")
	certPath := flag.String("cert", "", "Path to PEM certificate (check mode)")
	address := flag.String("addr", "", "Endpoint to dial, host or host:port (probe mode)")
	host := flag.String("host", "", "Hostname to verify the certificate against")
	logLevel := flag.String("log-level", getEnvOrDefault("VERITLS_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("VERITLS_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		mode:        *mode,
		configPath:  *configPath,
		certPath:    *certPath,
		address:     *address,
		host:        *host,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("veritls version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadConfig loads the configuration file, falling back to defaults
// when the file does not exist.
func loadConfig(path string, logger observability.Logger) *config.Config {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Debug("no configuration file, using defaults",
			observability.String("path", path),
		)
		return config.DefaultConfig()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}

	return cfg
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

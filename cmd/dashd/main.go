package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/dashd/internal/app"
	"github.com/dokzlo13/dashd/internal/config"
	"github.com/dokzlo13/dashd/internal/discovery"
)

func main() {
	// Support both -c and --config for config path
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	skipSelfTest := flag.Bool("skip-self-test", false, "Skip the startup white chase")
	discover := flag.Bool("discover", false, "List dashboards advertised on the local network and exit")
	service := flag.String("service", "", "mDNS service to browse with -discover (default from config)")
	domain := flag.String("domain", "", "mDNS domain to browse with -discover (default from config)")
	flag.Parse()

	if *discover {
		setupLogging("warn", false, true)
		target := discoveryTarget(loadDiscoveryConfig(configPath), *service, *domain)
		os.Exit(runDiscover(target))
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if *skipSelfTest {
		disabled := false
		cfg.Board.SelfTest = &disabled
	}

	// Setup logging
	setupLogging(cfg.Log.GetLevel(), cfg.Log.UseJSON, cfg.Log.Colors)

	log.Info().Str("config", configPath).Msg("Starting dashd")

	// Create application
	application, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	// Create context that cancels on shutdown signal
	ctx := app.SignalContext()

	// Start the application
	if err := application.Start(ctx); err != nil {
		application.Stop()
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	// Wait for shutdown
	application.Wait()

	// Graceful shutdown
	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

// loadDiscoveryConfig returns the discovery section of the config file, or
// the defaults when the file is missing or invalid.
func loadDiscoveryConfig(path string) config.DiscoveryConfig {
	cfg, err := config.Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("config", path).Msg("Ignoring configuration, browsing with defaults")
		}
		cfg = config.Default()
	}
	return cfg.Discovery
}

// discoveryTarget applies the -service and -domain overrides.
func discoveryTarget(cfg config.DiscoveryConfig, service, domain string) config.DiscoveryConfig {
	if service != "" {
		cfg.Service = service
	}
	if domain != "" {
		cfg.Domain = domain
	}
	return cfg
}

// runDiscover prints every dashboard that answers an mDNS query.
func runDiscover(target config.DiscoveryConfig) int {
	ctx := app.SignalContext()
	log.Debug().Str("service", target.Service).Str("domain", target.Domain).Msg("Browsing for dashboards")
	boards, err := discovery.Browse(ctx, target.Service, target.Domain, 3*time.Second)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Discovery failed")
		return 1
	}
	for _, b := range boards {
		fmt.Printf("%s\t%s\tchannels=%s\n", b.Name, b.URL(), b.Channels)
	}
	return 0
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

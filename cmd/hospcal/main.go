package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hospcal/internal/config"
	"hospcal/internal/ics"
	appLog "hospcal/internal/log"
	"hospcal/internal/refresh"
	"hospcal/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	envFile    string
	listen     string

	check      string
	list       int
	icsRange   string
	verifyCSV  string
	verifyFrom int
	verifyTo   int
}

func main() {
	flags := parseFlags()

	// One-shot modes need neither config nor network (except -verify-csv URLs).
	if code, handled := runCLI(context.Background(), flags, os.Stdout); handled {
		os.Exit(code)
	}

	appLog.Info("hospcal starting", "version", version)

	if err := config.LoadEnvFile(flags.envFile); err != nil {
		appLog.Error("failed to load env file", err, "path", flags.envFile)
		os.Exit(1)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv()

	// CLI --listen overrides config file and env.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("config rejected", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	loc, err := applyRuntime(conf)
	if err != nil {
		appLog.Error("config rejected", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"cache_dir", conf.CacheDir,
		"calendar_count", len(conf.Calendars),
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var refresher *refresh.Refresher
	if sources := refresh.SourcesFromConfig(conf.Calendars); len(sources) > 0 {
		refresher = refresh.New(ics.NewFetcher(conf.CacheDir, nil), sources, loc)
		if _, err := refresher.Refresh(ctx); err != nil {
			appLog.Error("initial refresh failed; serving without events", err)
		}
		if err := refresher.Start(ctx, conf.RefreshCron); err != nil {
			appLog.Error("failed to start refresh scheduler", err)
			os.Exit(1)
		}
	}

	if err := web.Run(ctx, web.NewServer(conf, refresher)); err != nil {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}
	appLog.Info("hospcal exiting")
}

// applyRuntime sets the log level and resolves the display timezone.
func applyRuntime(conf *config.Config) (*time.Location, error) {
	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	loc, err := conf.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", conf.Timezone, err)
	}
	appLog.SetLevel(level)
	return loc, nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/hospcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.envFile, "env", ".env", "Optional KEY=VALUE file loaded before HOSPCAL_* overrides")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")

	flag.StringVar(&cfg.check, "check", "", "Classify one date (YYYY-MM-DD) and exit")
	flag.IntVar(&cfg.list, "list", 0, "List the named days of a year and exit")
	flag.StringVar(&cfg.icsRange, "ics", "", "Write the holiday feed for FROM[:TO] years to stdout and exit")
	flag.StringVar(&cfg.verifyCSV, "verify-csv", "", "Compare against a syukujitsu.csv path or URL and exit")
	flag.IntVar(&cfg.verifyFrom, "verify-from", 0, "First year to verify (default: first year in the CSV)")
	flag.IntVar(&cfg.verifyTo, "verify-to", 0, "Last year to verify (default: last year in the CSV)")

	flag.Parse()

	return cfg
}

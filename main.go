package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"worldclock/aggregate"
	"worldclock/collector"
	"worldclock/datasource"
	"worldclock/logger"
	"worldclock/render"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/xid"
)

const version = "0.1.0"

var log = logger.New("main")

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Error loading .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	color := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	os.Exit(run(ctx, os.Args[1:], os.LookupEnv, os.Stdout, color))
}

// run executes one clock lookup and returns the process exit code
func run(ctx context.Context, args []string, lookupEnv func(string) (string, bool), stdout io.Writer, color bool) int {
	flags := flag.NewFlagSet("worldclock", flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "World Clock %s\nGrabs current time for configured timezones.\n\nUsage:\n", version)
		flags.PrintDefaults()
	}

	configFile := flags.String("config", "", "Path to a YAML configuration file")
	zonesFile := flags.String("zones-file", "", "Path to a file with one zone per line")
	concurrency := flags.Int("concurrency", 0, "Maximum requests in flight (0 = one per zone)")
	timeout := flags.String("timeout", "", "Per-request timeout, e.g. 10s or PT10S (0 disables)")
	failFast := flags.Bool("fail-fast", false, "Print nothing if any zone fails")
	sortByZone := flags.Bool("sort-by-zone", false, "Order zones sharing an offset by name instead of arrival")
	rps := flags.Float64("rps", 0, "Rate limit in requests per second (0 disables)")
	burst := flags.Int("burst", 1, "Maximum burst size when rate limiting")
	baseURL := flags.String("base-url", "", "Lookup API endpoint")
	noColor := flags.Bool("no-color", false, "Disable colored output")
	showVersion := flags.Bool("version", false, "Print version and exit")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "worldclock %s\n", version)
		return 0
	}

	// Load configuration
	config, err := datasource.LoadConfig(*configFile)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	if *zonesFile != "" {
		zones, err := datasource.LoadZonesFile(*zonesFile)
		if err != nil {
			log.Error().Err(err).Str("file", *zonesFile).Msg("Failed to load zone list")
			return 1
		}
		config.Zones = zones
	}

	var flagErr error
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "concurrency":
			config.Concurrency = *concurrency
		case "timeout":
			d, err := datasource.ParseDuration(*timeout)
			if err != nil {
				flagErr = err
				return
			}
			config.RequestTimeout.Duration = d
		case "fail-fast":
			config.FailFast = *failFast
		case "sort-by-zone":
			if *sortByZone {
				config.TieBreak = datasource.TieBreakZone
			} else {
				config.TieBreak = datasource.TieBreakArrival
			}
		case "rps":
			config.RateLimit.RPS = *rps
		case "burst":
			config.RateLimit.Burst = *burst
		case "base-url":
			config.BaseURL = *baseURL
		}
	})
	if flagErr != nil {
		log.Error().Err(flagErr).Msg("Invalid flag")
		return 2
	}

	if err := config.LoadAPIKey(lookupEnv); err != nil {
		log.Error().Err(err).Msg("API key not found")
		return 1
	}
	if err := config.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	runID := xid.New().String()
	runLog := log.With().Str("run_id", runID).Logger()

	// Build the source, one pooled client for every request
	apiSource := datasource.NewTimezoneAPISource(config.APIKey, config.BaseURL, config.EffectiveConcurrency())
	apiSource.SetRequestTimeout(config.RequestTimeout.Duration)

	var source datasource.TimezoneSource = apiSource
	if config.RateLimit.RPS > 0 {
		source = datasource.NewRateLimitedSource(source, config.RateLimit.RPS, config.RateLimit.Burst)
		runLog.Debug().Float64("rps", config.RateLimit.RPS).Int("burst", config.RateLimit.Burst).Msg("Applied rate limiting")
	}

	c := collector.NewCollector(source, config.EffectiveConcurrency())

	runLog.Debug().
		Strs("zones", config.Zones).
		Strs("urls", datasource.BuildRequestURLs(config.BaseURL, config.Zones, "REDACTED")).
		Int("concurrency", config.EffectiveConcurrency()).
		Msg("Fetching timezones")

	started := time.Now()
	results := c.Collect(ctx, config.Zones)

	opts := aggregate.Options{Policy: aggregate.PolicyBestEffort, TieBreak: aggregate.TieBreakArrival}
	if config.FailFast {
		opts.Policy = aggregate.PolicyFailFast
	}
	if config.TieBreak == datasource.TieBreakZone {
		opts.TieBreak = aggregate.TieBreakZone
	}

	report, aggErr := aggregate.Aggregate(results, opts)
	for _, failed := range report.Failed {
		runLog.Error().
			Err(failed.Err).
			Str("zone", failed.Zone).
			Dur("elapsed", failed.Duration).
			Msg("Failed to fetch timezone")
	}
	runLog.Debug().
		Int("rows", len(report.Rows)).
		Int("failed", len(report.Failed)).
		Dur("elapsed", time.Since(started)).
		Msg("Fetch complete")

	if aggErr != nil && opts.Policy == aggregate.PolicyFailFast {
		runLog.Error().Str("policy", opts.Policy.String()).Msg("Aborting, no output")
		return 1
	}

	if err := render.Table(stdout, report.Rows, render.Options{Color: color && !*noColor}); err != nil {
		runLog.Error().Err(err).Msg("Something went wrong")
		return 1
	}

	if aggErr != nil {
		runLog.Warn().
			Int("failed", len(report.Failed)).
			Int("zones", len(config.Zones)).
			Msg("Some zones could not be fetched")
		return 1
	}
	return 0
}

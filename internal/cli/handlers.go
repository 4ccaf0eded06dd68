package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/BartekS5/eventsync/internal/checkpoint"
	"github.com/BartekS5/eventsync/internal/config"
	"github.com/BartekS5/eventsync/internal/etl"
	"github.com/BartekS5/eventsync/internal/metrics"
	"github.com/BartekS5/eventsync/pkg/logger"
	"github.com/BartekS5/eventsync/pkg/models"
)

// setup loads the configuration and starts logging. The returned func
// closes the log file.
func setup(root *RootOptions) (*config.Config, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	logFile, level := cfg.LogFile, cfg.LogLevel
	if root.LogFile != "" {
		logFile = root.LogFile
	}
	if root.LogLevel != "" {
		level = root.LogLevel
	}
	if err := logger.InitLogger(logFile, logger.ParseLevel(level)); err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return cfg, logger.Close, nil
}

func runSync(cmd *cobra.Command, root *RootOptions, opts *SyncOptions) error {
	if opts.Window != 0 && opts.Window < time.Millisecond {
		return fmt.Errorf("--window must be at least 1ms, got %s", opts.Window)
	}

	cfg, done, err := setup(root)
	if err != nil {
		return err
	}
	defer done()

	ctx := cmd.Context()
	runID := uuid.NewString()
	logger.Infof("Run %s starting", runID)

	store, err := checkpoint.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer store.Close()

	validator, err := etl.NewValidator(cfg.MessageMaxLen)
	if err != nil {
		return err
	}

	fetcher := etl.NewPostHogFetcher(etl.FetcherOptions{
		EventsURL:        cfg.EventsURL(),
		APIKey:           cfg.PostHogAPIKey,
		PageLimit:        cfg.PageLimit,
		Timeout:          cfg.HTTPTimeout,
		MaxRetries:       cfg.FetchMaxRetries,
		RateLimitBackoff: cfg.FetchRateLimitBackoff,
		ErrorBackoff:     cfg.FetchErrorBackoff,
	})
	pusher := etl.NewPowerBIPusher(etl.PusherOptions{
		URLs: map[models.Shape]string{
			models.ShapeServer:  cfg.ServerPushURL,
			models.ShapeBrowser: cfg.BrowserPushURL,
		},
		BatchSize: cfg.BatchSize,
		Pause:     cfg.BatchPause,
		Timeout:   cfg.HTTPTimeout,
	})

	window := cfg.Window
	if opts.Window > 0 {
		window = opts.Window
	}
	pipeline := etl.NewPipeline(store, fetcher, etl.NewTransformer(cfg.MessageMaxLen), validator, pusher, window, opts.DryRun)

	stats, runErr := pipeline.Run(ctx)
	if runErr != nil {
		logger.Errorf("Run %s failed after %s: %v", runID, stats.Duration, runErr)
	} else {
		logger.Infof("Run %s finished in %s, checkpoint at %s", runID, stats.Duration, checkpoint.Describe(stats.Checkpoint))
	}

	if cfg.PushgatewayURL != "" {
		m := metrics.NewRun()
		m.Observe(stats, runErr)
		if err := m.Push(cfg.PushgatewayURL, runID); err != nil {
			logger.Warnf("Could not push metrics to %s: %v", cfg.PushgatewayURL, err)
		}
	}
	return runErr
}

func runCheckpointShow(cmd *cobra.Command, root *RootOptions) error {
	cfg, done, err := setup(root)
	if err != nil {
		return err
	}
	defer done()

	ctx := cmd.Context()
	store, err := checkpoint.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer store.Close()

	ms, err := store.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d  %s\n", ms, checkpoint.Describe(ms))
	return nil
}

func runCheckpointSet(cmd *cobra.Command, root *RootOptions, value string) error {
	ms, err := parseCheckpoint(value)
	if err != nil {
		return err
	}

	cfg, done, err := setup(root)
	if err != nil {
		return err
	}
	defer done()

	ctx := cmd.Context()
	store, err := checkpoint.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer store.Close()

	prev, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if err := store.Save(ctx, ms); err != nil {
		return err
	}
	logger.Infof("Checkpoint moved from %d to %d", prev, ms)
	fmt.Fprintf(cmd.OutOrStdout(), "%d  %s\n", ms, checkpoint.Describe(ms))
	return nil
}

// parseCheckpoint accepts epoch milliseconds or an RFC3339 timestamp.
func parseCheckpoint(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("checkpoint must not be negative: %d", ms)
		}
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("checkpoint must be epoch milliseconds or RFC3339, got %q", s)
	}
	return t.UnixMilli(), nil
}

package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BartekS5/eventsync/internal/checkpoint"
	"github.com/BartekS5/eventsync/pkg/logger"
	"github.com/BartekS5/eventsync/pkg/models"
)

// ErrHalted means a window could not be delivered. The checkpoint was left at
// the start of that window so the next run retries it.
var ErrHalted = errors.New("sync halted")

// RunStats summarizes one Run.
type RunStats struct {
	// Loaded is false when the checkpoint could not be read; the checkpoint
	// fields are then meaningless.
	Loaded          bool
	StartCheckpoint int64
	// Checkpoint is the last value saved, or StartCheckpoint if none was.
	Checkpoint int64
	Windows    int
	Fetched    int
	Filtered   int
	Pushed     int
	Truncated  int
	Duration   time.Duration
}

// Pipeline walks from the stored checkpoint to now in fixed windows.
type Pipeline struct {
	Store       checkpoint.Store
	Fetcher     Fetcher
	Transformer *Transformer
	Validator   *Validator
	Pusher      Pusher
	Window      time.Duration
	DryRun      bool
	Now         func() time.Time
}

func NewPipeline(store checkpoint.Store, fetcher Fetcher, transformer *Transformer, validator *Validator, pusher Pusher, window time.Duration, dryRun bool) *Pipeline {
	return &Pipeline{
		Store:       store,
		Fetcher:     fetcher,
		Transformer: transformer,
		Validator:   validator,
		Pusher:      pusher,
		Window:      window,
		DryRun:      dryRun,
		Now:         time.Now,
	}
}

// Run processes every window between the checkpoint and the time Run was
// called. The checkpoint only moves after a window has been fully pushed.
func (p *Pipeline) Run(ctx context.Context) (stats RunStats, err error) {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	started := now()
	interval := (48 * time.Hour).Milliseconds()
	if p.Window > 0 {
		if p.Window < time.Millisecond {
			return stats, fmt.Errorf("window %s is shorter than 1ms", p.Window)
		}
		interval = p.Window.Milliseconds()
	}

	defer func() { stats.Duration = now().Sub(started) }()

	current, err := p.Store.Load(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	end := started.UnixMilli()
	stats.Loaded = true
	stats.StartCheckpoint, stats.Checkpoint = current, current

	logger.Infof("Starting sync from %s to %s. Window: %s, DryRun: %v",
		checkpoint.Describe(current), checkpoint.Describe(end), p.Window, p.DryRun)

	for current < end {
		next := current + interval
		if next > end {
			next = end
		}
		w := models.Window{From: current, To: next}
		stats.Windows++
		logger.Infof("Fetching range: %s → %s", checkpoint.Describe(w.From), checkpoint.Describe(w.To))

		events, err := p.Fetcher.Fetch(ctx, w)
		if err != nil {
			return stats, fmt.Errorf("fetch %s: %w", w, err)
		}
		stats.Fetched += len(events)
		logger.Infof("Total events fetched: %d", len(events))

		if len(events) == 0 {
			logger.Infof("No events found in this range.")
			current = next
			continue
		}

		fresh := Filter(events, w)
		stats.Filtered += len(fresh)
		logger.Infof("New events to push: %d", len(fresh))
		if len(fresh) == 0 {
			logger.Infof("No valid events to push.")
			current = next
			continue
		}

		out := p.Transformer.Transform(fresh)
		stats.Truncated += out.Truncated

		if p.Validator != nil {
			if err := p.Validator.ValidateBatch(out.Shape, out.Records); err != nil {
				logger.Errorf("Validation failed for %s. Halting process to prevent data loss.", w)
				return stats, fmt.Errorf("%w: window %s: %w", ErrHalted, w, err)
			}
		}

		if p.DryRun {
			logger.Infof("[DRY RUN] Would push %d %s rows", len(out.Records), out.Shape)
			current = next
			continue
		}

		pushed, err := p.Pusher.Push(ctx, out.Shape, out.Records)
		stats.Pushed += pushed
		if err != nil {
			logger.Errorf("Push to Power BI failed. Halting process to prevent data loss.")
			return stats, fmt.Errorf("%w: window %s: %w", ErrHalted, w, err)
		}

		if err := p.Store.Save(ctx, next); err != nil {
			return stats, fmt.Errorf("failed to save checkpoint %d: %w", next, err)
		}
		stats.Checkpoint = next
		logger.Infof("Checkpoint updated to: %d (%s)", next, checkpoint.Describe(next))
		current = next
	}

	logger.Infof("Sync finished. Windows: %d, fetched: %d, pushed: %d", stats.Windows, stats.Fetched, stats.Pushed)
	return stats, nil
}

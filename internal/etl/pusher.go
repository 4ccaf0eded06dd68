package etl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BartekS5/eventsync/pkg/logger"
	"github.com/BartekS5/eventsync/pkg/models"
)

// BatchError reports a batch the destination did not accept. Batches before
// Start were already delivered and are not rolled back.
type BatchError struct {
	Start      int
	End        int
	StatusCode int
	Body       string
	Err        error
}

func (e *BatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("batch %d-%d failed: %v", e.Start, e.End, e.Err)
	}
	return fmt.Sprintf("batch %d-%d rejected: HTTP %d: %s", e.Start, e.End, e.StatusCode, e.Body)
}

func (e *BatchError) Unwrap() error { return e.Err }

// PusherOptions configure a PowerBIPusher.
type PusherOptions struct {
	// URLs maps each record shape to its push-dataset rows endpoint.
	URLs      map[models.Shape]string
	BatchSize int
	// Pause separates consecutive batches.
	Pause   time.Duration
	Timeout time.Duration
	Sleep   Sleeper
	Client  *http.Client
}

// PowerBIPusher posts records to Power BI push datasets in fixed-size
// batches, one at a time.
type PowerBIPusher struct {
	urls      map[models.Shape]string
	batchSize int
	pause     time.Duration
	sleep     Sleeper
	client    *http.Client
}

func NewPowerBIPusher(opts PusherOptions) *PowerBIPusher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = SleepContext
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &PowerBIPusher{
		urls:      opts.URLs,
		batchSize: opts.BatchSize,
		pause:     opts.Pause,
		sleep:     opts.Sleep,
		client:    client,
	}
}

// Push stops at the first batch that does not get HTTP 200 and returns how
// many records were delivered before it.
func (p *PowerBIPusher) Push(ctx context.Context, shape models.Shape, records []models.Record) (int, error) {
	url, ok := p.urls[shape]
	if !ok || url == "" {
		return 0, fmt.Errorf("no push URL configured for %s records", shape)
	}

	pushed := 0
	for start := 0; start < len(records); start += p.batchSize {
		end := start + p.batchSize
		if end > len(records) {
			end = len(records)
		}
		if start > 0 {
			if err := p.sleep(ctx, p.pause); err != nil {
				return pushed, err
			}
		}

		if err := p.post(ctx, url, records[start:end]); err != nil {
			be := &BatchError{Start: start, End: end}
			if se, ok := err.(*statusError); ok {
				be.StatusCode, be.Body = se.code, se.body
			} else {
				be.Err = err
			}
			logger.Errorf("Failed batch %d → %d: %v", start, end, be)
			return pushed, be
		}
		pushed += end - start
		logger.Infof("Pushed %d rows (Batch %d → %d)", end-start, start, end)
	}

	logger.Infof("Total pushed to Power BI: %d rows", pushed)
	return pushed, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string { return fmt.Sprintf("HTTP %d", e.code) }

func (p *PowerBIPusher) post(ctx context.Context, url string, batch []models.Record) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: string(body)}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

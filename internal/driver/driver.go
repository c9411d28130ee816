// Package driver implements the write/verify stress loop.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soakdb/soakdb/internal/clock"
	"github.com/soakdb/soakdb/internal/digest"
	"github.com/soakdb/soakdb/internal/payload"
	"github.com/soakdb/soakdb/internal/report"
	"github.com/soakdb/soakdb/internal/store"
	"github.com/soakdb/soakdb/internal/verify"
)

// AppendStore is the slice of the persistence gateway the driver consumes.
type AppendStore interface {
	AppendRecord(ctx context.Context, timestamp, value, checksum string) (int64, error)
}

// Config holds driver loop parameters.
type Config struct {
	// Pause is the inter-iteration pacing delay.
	Pause time.Duration

	// VerifyEvery is the iteration cadence of sampling verification.
	VerifyEvery int64

	// Iterations bounds the run; 0 runs until cancelled.
	Iterations int64
}

// Driver orchestrates the main loop: generate a payload, digest it, append
// the record, report progress on a wall-clock interval, verify a sample
// every VerifyEvery iterations, then pace. Transient storage failures skip
// the iteration and never abort the loop; cancellation is observed only at
// iteration boundaries, so no partial record is ever visible.
type Driver struct {
	cfg      Config
	store    AppendStore
	gen      *payload.Generator
	verifier *verify.Verifier
	reporter *report.Reporter
	clk      clock.Clock
	logger   *log.Logger

	iterations atomic.Int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a stress driver.
func New(cfg Config, s AppendStore, gen *payload.Generator, v *verify.Verifier,
	r *report.Reporter, clk clock.Clock, logger *log.Logger) *Driver {
	return &Driver{
		cfg:      cfg,
		store:    s,
		gen:      gen,
		verifier: v,
		reporter: r,
		clk:      clk,
		logger:   logger,
	}
}

// Start begins the loop. It runs until the context is cancelled, Stop is
// called, or the configured iteration bound is reached.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("driver: already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.done = make(chan struct{})
	d.mu.Unlock()

	go d.run(ctx)
	return nil
}

// Stop cancels the loop and waits for the current iteration to finish.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	cancel()
	<-done

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

// Done returns a channel closed when the loop has exited. Nil before Start.
func (d *Driver) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Iterations returns the number of successful write iterations so far.
func (d *Driver) Iterations() int64 {
	return d.iterations.Load()
}

// run is the main loop.
func (d *Driver) run(ctx context.Context) {
	defer close(d.done)

	start := d.clk.Now()
	lastReport := start

	for {
		select {
		case <-ctx.Done():
			d.logger.Printf("driver: stopping after %d iterations", d.iterations.Load())
			return
		default:
		}

		value := d.gen.Generate()
		checksum := digest.SumString(value)
		timestamp := d.clk.Now().Format(time.RFC3339Nano)

		if _, err := d.store.AppendRecord(ctx, timestamp, value, checksum); err != nil {
			if errors.Is(err, store.ErrStorageAccess) {
				d.logger.Printf("driver: iteration %d: %v", d.iterations.Load(), err)
				continue
			}
			// Context cancellation surfaces through the gateway too.
			if ctx.Err() != nil {
				d.logger.Printf("driver: stopping after %d iterations", d.iterations.Load())
				return
			}
			d.logger.Printf("driver: iteration %d: unexpected error: %v", d.iterations.Load(), err)
			continue
		}

		count := d.iterations.Add(1)

		lastReport = d.reporter.MaybeReport(d.clk.Now(), lastReport, start, count)

		if count%d.cfg.VerifyEvery == 0 {
			violations := d.verifier.VerifySample(ctx)
			d.logger.Printf("driver: iteration %d: verification complete, %d violations",
				count, violations)
		}

		if d.cfg.Iterations > 0 && count >= d.cfg.Iterations {
			d.logger.Printf("driver: iteration bound %d reached", d.cfg.Iterations)
			return
		}

		if err := d.clk.Sleep(ctx, d.cfg.Pause); err != nil {
			d.logger.Printf("driver: stopping after %d iterations", count)
			return
		}
	}
}

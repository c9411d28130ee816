// Package report provides throughput progress reporting during the run and
// the full run-statistics aggregation produced at shutdown.
package report

import (
	"fmt"
	"io"
	"time"
)

// Reporter emits a transient, overwritable progress line on a wall-clock
// interval. It persists nothing and its cost on the write path is bounded
// by its own computation.
type Reporter struct {
	interval time.Duration
	out      io.Writer
}

// NewReporter creates a progress reporter with the given cadence writing
// to out.
func NewReporter(interval time.Duration, out io.Writer) *Reporter {
	return &Reporter{interval: interval, out: out}
}

// MaybeReport emits a progress line when at least one interval has elapsed
// since lastReport, and returns the new last-report time. Throughput is
// iterations divided by elapsed run time, zero when no time has elapsed.
func (r *Reporter) MaybeReport(now, lastReport, start time.Time, iterations int64) time.Time {
	if now.Sub(lastReport) < r.interval {
		return lastReport
	}

	elapsed := now.Sub(start)
	var throughput float64
	if elapsed > 0 {
		throughput = float64(iterations) / elapsed.Seconds()
	}

	fmt.Fprintf(r.out, "\rprogress: %d records written, %.2f rec/s, elapsed %s",
		iterations, throughput, elapsed.Round(time.Second))
	return now
}

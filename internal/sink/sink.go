// Package sink implements the uniform write-entry/close contract shared
// by every output backend, plus the bounded-concurrency gate and
// success/failure accounting that backend implements on top of it.
package sink

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/bcye/structured-wikivoyage-exports/internal/document"
)

// Sink is a stateful write destination with lifecycle
// created -> writing* -> closed. The driver calls Close exactly once,
// after every scheduled WriteEntry call has returned.
type Sink interface {
	// WriteEntry serializes root as JSON and delivers it under key uid.
	// If the sink is configured FailOnError and the write fails, the
	// error propagates to the caller; otherwise the failure is counted
	// and swallowed.
	WriteEntry(ctx context.Context, root *document.Node, uid string) error

	// Close releases backend resources and logs success/failure totals.
	// The driver calls it exactly once.
	Close() error
}

// Countable is implemented by every backend in this package, letting
// the driver wire live success/failure totals into the metrics server
// without a type switch per backend.
type Countable interface {
	Snapshot() Counts
}

// gate is a local, channel-backed concurrency limiter. maxConcurrent==0
// means unbounded: acquire/release are no-ops.
type gate struct {
	tokens chan struct{}
}

func newGate(maxConcurrent int) *gate {
	if maxConcurrent <= 0 {
		return &gate{}
	}
	return &gate{tokens: make(chan struct{}, maxConcurrent)}
}

func (g *gate) acquire(ctx context.Context) error {
	if g.tokens == nil {
		return nil
	}
	select {
	case g.tokens <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gate) release() {
	if g.tokens == nil {
		return
	}
	<-g.tokens
}

// counters tracks per-entry success/failure totals shared by every
// backend's Close() log line. WriteEntry runs concurrently under the
// gate, so increments go through sync/atomic.
type counters struct {
	success atomic.Int64
	failure atomic.Int64
}

func (c *counters) recordSuccess() { c.success.Add(1) }
func (c *counters) recordFailure() { c.failure.Add(1) }

// Counts is a point-in-time snapshot of a sink's success/failure totals.
type Counts struct {
	Success int64
	Failure int64
}

func (c *counters) snapshot() Counts {
	return Counts{Success: c.success.Load(), Failure: c.failure.Load()}
}

// logTotals writes the standard close-time summary line, matching the
// shape every backend in this package shares.
func logTotals(logger *log.Logger, name string, c *counters) {
	if logger == nil {
		return
	}
	snap := c.snapshot()
	logger.Printf("sink %s: closed (success=%d, failure=%d)", name, snap.Success, snap.Failure)
}

// marshalEntry renders root as compact canonical JSON, the payload every
// backend writes under key uid.
func marshalEntry(root *document.Node) ([]byte, error) {
	data, err := document.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("marshaling entry: %w", err)
	}
	return data, nil
}

// Package telemetry records the round/operation counters a query
// execution accumulates: network rounds driven, AND-gates evaluated,
// bytes opened. Grounded on the original C++'s
// include/profiling/thread_profiling.h per-thread counters and the
// teacher's benchmark harness, which timed and counted protocol rounds
// the same way. No third-party structured logger is in the teacher's
// or pack's dependency set for this concern (see DESIGN.md), so this
// stays on log/slog.
package telemetry

import (
	"log/slog"
	"sync/atomic"
)

// Counters accumulates per-query execution statistics. Safe for
// concurrent use across pkg/runtime's worker pool.
type Counters struct {
	rounds    atomic.Int64
	andGates  atomic.Int64
	bytesOpen atomic.Int64
}

// RecordRound increments the network-round counter.
func (c *Counters) RecordRound() { c.rounds.Add(1) }

// RecordAndGates adds n to the evaluated-AND-gate counter (one AndB or
// MultiplyA call evaluates n gates, one per vector element).
func (c *Counters) RecordAndGates(n int) { c.andGates.Add(int64(n)) }

// RecordBytesOpened adds n to the bytes-revealed counter, the leakage
// budget an MPC deployment typically wants to track (spec.md's "Open"
// contract method is the only place plaintext crosses the boundary).
func (c *Counters) RecordBytesOpened(n int) { c.bytesOpen.Add(int64(n)) }

// Snapshot is an immutable point-in-time read of Counters.
type Snapshot struct {
	Rounds      int64
	AndGates    int64
	BytesOpened int64
}

// Snapshot reads the current counter values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Rounds:      c.rounds.Load(),
		AndGates:    c.andGates.Load(),
		BytesOpened: c.bytesOpen.Load(),
	}
}

// LogSummary writes the current counters as one structured log line.
func (c *Counters) LogSummary(logger *slog.Logger, label string) {
	s := c.Snapshot()
	logger.Info("query execution summary",
		slog.String("query", label),
		slog.Int64("rounds", s.Rounds),
		slog.Int64("and_gates", s.AndGates),
		slog.Int64("bytes_opened", s.BytesOpened),
	)
}

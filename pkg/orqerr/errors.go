// Package orqerr collects the error kinds exposed at the boundary of
// the engine (spec §7). Callers are expected to compare with
// errors.Is against these sentinels; wrapped errors carry context via
// %w the way the teacher's protocol package does ("round %d: %w").
package orqerr

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. A query either completes or one of these
// terminates it; none of them are locally recoverable.
var (
	// PreconditionViolated covers size mismatches in binary ops,
	// over-large mappings, malformed access-pattern parameters, and
	// non-power-of-two input where one is required.
	PreconditionViolated = errors.New("orq: precondition violated")

	// WrongEncoding names the use of an AggregationSelector (or any
	// A/B-typed value) under the wrong shared encoding; no code path
	// in this module returns it.
	WrongEncoding = errors.New("orq: wrong encoding")

	// UnsupportedProtocol means a sharded-permutation dispatch could
	// not match the concrete variant to the configured party count.
	UnsupportedProtocol = errors.New("orq: unsupported protocol")

	// ShardedPermutationUnavailable means the PermutationManager pool
	// is empty — a bug in the caller's reserve() accounting.
	ShardedPermutationUnavailable = errors.New("orq: sharded permutation pool exhausted")

	// AggregationNotSupportedHere names a unique-unique join given a
	// non-copy aggregator; UniqueJoin takes no aggregation spec, so no
	// code path in this module returns it.
	AggregationNotSupportedHere = errors.New("orq: aggregation not supported in unique-unique join")

	// IOError wraps CSV/file open and parse failures.
	IOError = errors.New("orq: io error")

	// TransportError names a communicator failure; the in-process
	// cluster never fails, so no code path in this module returns it.
	TransportError = errors.New("orq: transport error")

	// CheckFailed is returned by the optional malicious-adversary
	// commit-open-check hook when an opened value does not match its
	// earlier commitment.
	CheckFailed = errors.New("orq: commit-open check failed")
)

// Wrap attaches context to a sentinel error following the teacher's
// "<context>: %w" convention.
func Wrap(context string, sentinel error) error {
	return fmt.Errorf("%s: %w", context, sentinel)
}

// Package share implements the replicated share container (L1): a
// fixed number R of plain vectors held by one party, where R is the
// protocol's per-party share count (1 for plaintext/2PC, 2 for 3PC
// replicated, 3 for 4PC, ...). All R vectors keep equal length
// invariants; higher layers interpret their sum/XOR as the secret.
package share

import (
	"fmt"

	"github.com/luxfi/orq/pkg/orqerr"
	"github.com/luxfi/orq/pkg/vector"
)

// Share holds the R plain vectors a single party stores for one
// secret-shared value.
type Share[T vector.Numeric] struct {
	Parts []vector.Vec[T] // length R
}

// New builds a Share from exactly R parts, validating equal length.
func New[T vector.Numeric](parts []vector.Vec[T]) (Share[T], error) {
	if len(parts) == 0 {
		return Share[T]{}, fmt.Errorf("share: at least one part required: %w", orqerr.PreconditionViolated)
	}
	n := parts[0].Size()
	for _, p := range parts[1:] {
		if p.Size() != n {
			return Share[T]{}, fmt.Errorf("share: parts have mismatched size: %w", orqerr.PreconditionViolated)
		}
	}
	return Share[T]{Parts: parts}, nil
}

// Zero returns an R-way share of n zero elements.
func Zero[T vector.Numeric](r, n int) Share[T] {
	parts := make([]vector.Vec[T], r)
	for i := range parts {
		parts[i] = vector.NewFilled[T](n, 0)
	}
	return Share[T]{Parts: parts}
}

// R returns the replication count.
func (s Share[T]) R() int { return len(s.Parts) }

// Size returns the common batch length of all parts.
func (s Share[T]) Size() int {
	if len(s.Parts) == 0 {
		return 0
	}
	return s.Parts[0].Size()
}

// Map applies f to every part independently, returning a new Share.
// This is the vehicle for purely local operations (XOR of B-shares,
// addition of A-shares, shifts, masking) that never touch the
// protocol layer.
func (s Share[T]) Map(f func(vector.Vec[T]) vector.Vec[T]) Share[T] {
	out := make([]vector.Vec[T], len(s.Parts))
	for i, p := range s.Parts {
		out[i] = f(p)
	}
	return Share[T]{Parts: out}
}

// Zip combines s and other part-by-part with f (both must share R).
func (s Share[T]) Zip(other Share[T], f func(a, b vector.Vec[T]) vector.Vec[T]) (Share[T], error) {
	if s.R() != other.R() {
		return Share[T]{}, fmt.Errorf("share: replication count mismatch: %w", orqerr.PreconditionViolated)
	}
	out := make([]vector.Vec[T], s.R())
	for i := range s.Parts {
		out[i] = f(s.Parts[i], other.Parts[i])
	}
	return Share[T]{Parts: out}, nil
}

// MaterializeInplace collapses every part's mapping, preparing the
// share for transport (spec.md §9: network-sending routines must
// materialize contiguous storage first).
func (s Share[T]) MaterializeInplace() {
	for i := range s.Parts {
		s.Parts[i].MaterializeInplace()
	}
}

// Resize grows or shrinks every part to n elements.
func (s Share[T]) Resize(n int) {
	for i := range s.Parts {
		s.Parts[i].Resize(n)
	}
}

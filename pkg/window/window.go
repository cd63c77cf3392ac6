// Package window implements the L8 layer: assigning each row of a
// secret-shared, time-sorted column to a window, expressed the same
// way pkg/aggregate expects its segment boundaries — a 0/1-domain
// A-shared "starts a new window" flag per row, plus (via
// aggregate.TreePrefixSum, itself free of network rounds since
// additive shares sum linearly) a running window id.
package window

import (
	"fmt"

	"github.com/luxfi/orq/pkg/aggregate"
	"github.com/luxfi/orq/pkg/circuits"
	"github.com/luxfi/orq/pkg/orqerr"
	"github.com/luxfi/orq/pkg/protocol"
	"github.com/luxfi/orq/pkg/share"
	"github.com/luxfi/orq/pkg/vector"
)

// Assignment is a window boundary flag column plus its derived id.
type Assignment[T vector.Numeric] struct {
	Flags share.Share[T]
	ID    share.Share[T]
}

func shiftedView[T vector.Numeric](s share.Share[T], stride int) (share.Share[T], error) {
	n := s.Size()
	parts := make([]vector.Vec[T], len(s.Parts))
	for i, p := range s.Parts {
		sliced, err := p.Slice(0, n-stride)
		if err != nil {
			return share.Share[T]{}, err
		}
		parts[i] = sliced
	}
	return share.New(parts)
}

func tailView[T vector.Numeric](s share.Share[T], stride int) (share.Share[T], error) {
	n := s.Size()
	parts := make([]vector.Vec[T], len(s.Parts))
	for i, p := range s.Parts {
		sliced, err := p.Slice(stride, n)
		if err != nil {
			return share.Share[T]{}, err
		}
		parts[i] = sliced
	}
	return share.New(parts)
}

func prependFirstFlag[T vector.Numeric](eng protocol.Engine[T], rest share.Share[T]) (share.Share[T], error) {
	first := eng.PublicShare(vector.New([]T{1}))
	parts := make([]vector.Vec[T], len(first.Parts))
	for i := range parts {
		parts[i] = vector.Concat(first.Parts[i], rest.Parts[i])
	}
	return share.New(parts)
}

func finish[T vector.Numeric](flags share.Share[T]) Assignment[T] {
	return Assignment[T]{Flags: flags, ID: aggregate.TreePrefixSum(flags)}
}

// Tumbling assigns fixed-size, non-overlapping windows: row i belongs
// to window floor(timestamps[i] / size), computed by DivConstA for the
// public size, and a row starts a new window when that quotient
// differs from its predecessor's. ID is the running count of window
// starts (1 for the first window), not the quotient itself, so an
// empty window between two rows does not advance it.
func Tumbling[T vector.Numeric](eng protocol.Engine[T], timestamps share.Share[T], size T) (Assignment[T], error) {
	if size == 0 {
		return Assignment[T]{}, fmt.Errorf("window: tumbling size must be positive: %w", orqerr.PreconditionViolated)
	}
	ids, _, err := eng.DivConstA(timestamps, size)
	if err != nil {
		return Assignment[T]{}, err
	}
	n := ids.Size()
	if n == 0 {
		return Assignment[T]{ID: ids}, nil
	}
	cur, err := tailView(ids, 1)
	if err != nil {
		return Assignment[T]{}, err
	}
	prev, err := shiftedView(ids, 1)
	if err != nil {
		return Assignment[T]{}, err
	}
	curB, err := eng.A2B(cur)
	if err != nil {
		return Assignment[T]{}, err
	}
	prevB, err := eng.A2B(prev)
	if err != nil {
		return Assignment[T]{}, err
	}
	_, eq, err := circuits.Compare(eng, curB, prevB)
	if err != nil {
		return Assignment[T]{}, err
	}
	neq, err := eng.NotB1(eq)
	if err != nil {
		return Assignment[T]{}, err
	}
	neqA, err := eng.B2ABit(neq)
	if err != nil {
		return Assignment[T]{}, err
	}
	flags, err := prependFirstFlag(eng, neqA)
	if err != nil {
		return Assignment[T]{}, err
	}
	return finish(flags), nil
}

// GapSession starts a new window whenever the gap between consecutive
// sorted timestamps exceeds maxGap (spec.md §8.2): row 0 always starts
// a session.
func GapSession[T vector.Numeric](eng protocol.Engine[T], timestamps share.Share[T], maxGap T) (Assignment[T], error) {
	n := timestamps.Size()
	if n == 0 {
		return Assignment[T]{}, nil
	}
	cur, err := tailView(timestamps, 1)
	if err != nil {
		return Assignment[T]{}, err
	}
	prev, err := shiftedView(timestamps, 1)
	if err != nil {
		return Assignment[T]{}, err
	}
	gap, err := eng.SubA(cur, prev)
	if err != nil {
		return Assignment[T]{}, err
	}
	boundaryA, err := exceedsPublicThreshold(eng, gap, maxGap, false)
	if err != nil {
		return Assignment[T]{}, err
	}
	flags, err := prependFirstFlag(eng, boundaryA)
	if err != nil {
		return Assignment[T]{}, err
	}
	return finish(flags), nil
}

// ThresholdSession starts a new window whenever the magnitude of the
// change between consecutive sorted values exceeds threshold (a
// change-point session, as opposed to GapSession's purely temporal
// one): row 0 always starts a session.
func ThresholdSession[T vector.Numeric](eng protocol.Engine[T], values share.Share[T], threshold T) (Assignment[T], error) {
	n := values.Size()
	if n == 0 {
		return Assignment[T]{}, nil
	}
	cur, err := tailView(values, 1)
	if err != nil {
		return Assignment[T]{}, err
	}
	prev, err := shiftedView(values, 1)
	if err != nil {
		return Assignment[T]{}, err
	}
	delta, err := eng.SubA(cur, prev)
	if err != nil {
		return Assignment[T]{}, err
	}
	boundaryA, err := exceedsPublicThreshold(eng, delta, threshold, true)
	if err != nil {
		return Assignment[T]{}, err
	}
	flags, err := prependFirstFlag(eng, boundaryA)
	if err != nil {
		return Assignment[T]{}, err
	}
	return finish(flags), nil
}

// exceedsPublicThreshold returns an A-shared 0/1 flag: 1 where delta
// exceeds the public threshold. When symmetric is true it also flags
// delta < -threshold, the two-sided "|delta| > threshold" test
// ThresholdSession needs.
func exceedsPublicThreshold[T vector.Numeric](eng protocol.Engine[T], delta share.Share[T], threshold T, symmetric bool) (share.Share[T], error) {
	n := delta.Size()
	thresholdShare := eng.PublicShare(vector.NewFilled[T](n, threshold))
	deltaB, err := eng.A2B(delta)
	if err != nil {
		return share.Share[T]{}, err
	}
	threshB, err := eng.A2B(thresholdShare)
	if err != nil {
		return share.Share[T]{}, err
	}
	gtPos, _, err := circuits.Compare(eng, deltaB, threshB)
	if err != nil {
		return share.Share[T]{}, err
	}
	if !symmetric {
		return eng.B2ABit(gtPos)
	}
	negDelta, err := eng.NegA(delta)
	if err != nil {
		return share.Share[T]{}, err
	}
	negDeltaB, err := eng.A2B(negDelta)
	if err != nil {
		return share.Share[T]{}, err
	}
	gtNeg, _, err := circuits.Compare(eng, negDeltaB, threshB)
	if err != nil {
		return share.Share[T]{}, err
	}
	boundary, err := eng.OrB(gtPos, gtNeg)
	if err != nil {
		return share.Share[T]{}, err
	}
	return eng.B2ABit(boundary)
}

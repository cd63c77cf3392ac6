// Package aggregate implements the L7 layer: segmented (group-by)
// reduction over secret-shared, key-sorted columns. Grounded on
// pkg/circuits.Compare for the non-linear combinators (Min/Max) and on
// the observation — already exploited by pkg/sortshuffle's RadixSort —
// that additive shares sum linearly, so TreePrefixSum needs no network
// rounds at all. SegmentedScan still spends MultiplyA rounds at every
// scan level on its flag-driven selects, Sum and Count included.
package aggregate

import (
	"fmt"

	"github.com/luxfi/orq/pkg/circuits"
	"github.com/luxfi/orq/pkg/orqerr"
	"github.com/luxfi/orq/pkg/protocol"
	"github.com/luxfi/orq/pkg/share"
	"github.com/luxfi/orq/pkg/vector"
)

// Operator names one of the per-group combinators spec.md §7 defines.
type Operator int

const (
	Sum Operator = iota
	Count
	Min
	Max
	BitOr
	Copy
	Valid
)

// AggregationSelector is the tagged union of per-column aggregation
// requests a groupby/windowing call carries: exactly one concrete
// variant per requested output column. Sealed to this package's own
// `selector` so Table.Aggregate can rely on Op() covering exactly the
// Operator constants above.
type AggregationSelector interface {
	sealed()
	Column() string
	Op() Operator
	// IsAggregation reports whether this selector performs a real
	// reduction (Sum/Count/Min/Max/BitOr) as opposed to an identity
	// pass-through (Copy, or Valid fed by table_id during a join's
	// right-hand side). Table.Aggregate uses this to decide whether a
	// spec needs the mark-valid narrowing at all: a spec built only of
	// copies and table-id validity never changes which row of a group
	// is "the" row, so there is nothing to narrow.
	IsAggregation() bool
}

type selector struct {
	column string
	op     Operator
}

func (selector) sealed() {}

func (s selector) IsAggregation() bool {
	switch s.op {
	case Copy, Valid:
		return false
	default:
		return true
	}
}
func (s selector) Column() string { return s.column }
func (s selector) Op() Operator   { return s.op }

func SumOf(column string) AggregationSelector   { return selector{column, Sum} }
func CountOf(column string) AggregationSelector { return selector{column, Count} }
func MinOf(column string) AggregationSelector   { return selector{column, Min} }
func MaxOf(column string) AggregationSelector   { return selector{column, Max} }
func BitOrOf(column string) AggregationSelector { return selector{column, BitOr} }
func CopyOf(column string) AggregationSelector  { return selector{column, Copy} }
func ValidOf(column string) AggregationSelector { return selector{column, Valid} }

func selectA[T vector.Numeric](eng protocol.Engine[T], condA, ifTrue, ifFalse share.Share[T]) (share.Share[T], error) {
	diff, err := eng.SubA(ifTrue, ifFalse)
	if err != nil {
		return share.Share[T]{}, err
	}
	scaled, err := eng.MultiplyA(condA, diff)
	if err != nil {
		return share.Share[T]{}, err
	}
	return eng.AddA(ifFalse, scaled)
}

// combine applies op's pairwise reduction, ignoring segment
// boundaries (the segmented scan wrapper handles those).
func combine[T vector.Numeric](eng protocol.Engine[T], op Operator, a, b share.Share[T]) (share.Share[T], error) {
	switch op {
	case Sum, Count:
		return eng.AddA(a, b)
	case Min, Max:
		aB, err := eng.A2B(a)
		if err != nil {
			return share.Share[T]{}, err
		}
		bB, err := eng.A2B(b)
		if err != nil {
			return share.Share[T]{}, err
		}
		gt, _, err := circuits.Compare(eng, aB, bB)
		if err != nil {
			return share.Share[T]{}, err
		}
		condA, err := eng.B2ABit(gt)
		if err != nil {
			return share.Share[T]{}, err
		}
		if op == Min {
			return selectA(eng, condA, b, a)
		}
		return selectA(eng, condA, a, b)
	case BitOr, Valid:
		return eng.OrB(a, b)
	case Copy:
		return a, nil
	default:
		return share.Share[T]{}, fmt.Errorf("aggregate: unknown operator %d: %w", op, orqerr.PreconditionViolated)
	}
}

// or01 computes the arithmetic OR of two 0/1-domain A-shared flags:
// a+b-a*b, used to merge segment-boundary flags during the scan.
func or01[T vector.Numeric](eng protocol.Engine[T], a, b share.Share[T]) (share.Share[T], error) {
	sum, err := eng.AddA(a, b)
	if err != nil {
		return share.Share[T]{}, err
	}
	prod, err := eng.MultiplyA(a, b)
	if err != nil {
		return share.Share[T]{}, err
	}
	return eng.SubA(sum, prod)
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

func writeBack[T vector.Numeric](dst, src share.Share[T]) {
	for p := range dst.Parts {
		for i := 0; i < dst.Parts[p].Size(); i++ {
			dst.Parts[p].Set(i, src.Parts[p].At(i))
		}
	}
}

// SegmentedScan computes, for each row, the running aggregate of its
// group under op (an inclusive scan reset at every row whose flags
// entry is 1): the odd-even/Hillis-Steele doubling tree of spec.md §7,
// O(log n) network rounds. flags and values must be A-shared and the
// same size; flags is 0/1-domain with flags[0] conventionally 1.
// The last row of each group (the row whose successor's flag is 1, or
// the final row) holds that group's finished aggregate.
func SegmentedScan[T vector.Numeric](eng protocol.Engine[T], op Operator, values, flags share.Share[T]) (share.Share[T], error) {
	if values.Size() != flags.Size() {
		return share.Share[T]{}, fmt.Errorf("aggregate: segmented scan size mismatch: %w", orqerr.PreconditionViolated)
	}
	n := values.Size()
	values = values.Map(func(v vector.Vec[T]) vector.Vec[T] { return v.Materialize() })
	flags = flags.Map(func(v vector.Vec[T]) vector.Vec[T] { return v.Materialize() })

	for stride := 1; stride < n; stride *= 2 {
		valHigh, err := tailView(values, stride)
		if err != nil {
			return share.Share[T]{}, err
		}
		valLow, err := shiftedView(values, stride)
		if err != nil {
			return share.Share[T]{}, err
		}
		flagHigh, err := tailView(flags, stride)
		if err != nil {
			return share.Share[T]{}, err
		}
		flagLow, err := shiftedView(flags, stride)
		if err != nil {
			return share.Share[T]{}, err
		}

		combined, err := combine(eng, op, valLow, valHigh)
		if err != nil {
			return share.Share[T]{}, err
		}
		newVal, err := selectA(eng, flagHigh, valHigh, combined)
		if err != nil {
			return share.Share[T]{}, err
		}
		newFlag, err := or01(eng, flagLow, flagHigh)
		if err != nil {
			return share.Share[T]{}, err
		}

		writeBack(valHigh, newVal)
		writeBack(flagHigh, newFlag)
	}
	return values, nil
}

// TreePrefixSum computes the inclusive prefix sum of an A-shared
// column. Additive shares sum linearly, so — unlike SegmentedScan's
// non-linear Min/Max combinators — this never drives a network round:
// each party prefix-sums its own share parts independently.
func TreePrefixSum[T vector.Numeric](values share.Share[T]) share.Share[T] {
	return values.Map(func(v vector.Vec[T]) vector.Vec[T] {
		m := v.Materialize()
		m.PrefixSum()
		return m
	})
}

// AdjacentDistinct marks, for a key-sorted A-shared column, which rows
// start a new run of equal keys: row 0 always starts a run; row i>0 is
// a boundary iff keys[i] != keys[i-1]. The result is A-shared 0/1,
// directly usable as SegmentedScan's flags input.
func AdjacentDistinct[T vector.Numeric](eng protocol.Engine[T], keys share.Share[T]) (share.Share[T], error) {
	n := keys.Size()
	if n == 0 {
		return keys, nil
	}
	cur, err := tailView(keys, 1)
	if err != nil {
		return share.Share[T]{}, err
	}
	prev, err := shiftedView(keys, 1)
	if err != nil {
		return share.Share[T]{}, err
	}
	curB, err := eng.A2B(cur)
	if err != nil {
		return share.Share[T]{}, err
	}
	prevB, err := eng.A2B(prev)
	if err != nil {
		return share.Share[T]{}, err
	}
	_, eq, err := circuits.Compare(eng, curB, prevB)
	if err != nil {
		return share.Share[T]{}, err
	}
	neq, err := eng.NotB1(eq)
	if err != nil {
		return share.Share[T]{}, err
	}
	neqA, err := eng.B2ABit(neq)
	if err != nil {
		return share.Share[T]{}, err
	}

	firstRow := eng.PublicShare(vector.New([]T{1}))
	parts := make([]vector.Vec[T], len(firstRow.Parts))
	for i := range parts {
		parts[i] = vector.Concat(firstRow.Parts[i], neqA.Parts[i])
	}
	return share.New(parts)
}

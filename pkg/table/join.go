package table

import (
	"fmt"

	"github.com/luxfi/orq/pkg/aggregate"
	"github.com/luxfi/orq/pkg/circuits"
	"github.com/luxfi/orq/pkg/orqerr"
	"github.com/luxfi/orq/pkg/perm"
	"github.com/luxfi/orq/pkg/protocol"
	"github.com/luxfi/orq/pkg/share"
	"github.com/luxfi/orq/pkg/vector"
)

// JoinKind names the four equi-join variants the sort-merge join
// algorithm serves directly (spec.md §4.9.1); SemiJoin/AntiJoin are
// built as compositions of it.
type JoinKind int

const (
	InnerKind JoinKind = iota
	LeftOuterKind
	RightOuterKind
	FullOuterKind
)

// JoinOptions configures join's VALID_TEMP computation and trimming.
type JoinOptions struct {
	// Anti marks this as an anti-join's underlying right-outer join: an
	// extra (VALID_TEMP, copy<B>) pass propagates non-membership to
	// every row sharing a key, not just the one row distinct() kept.
	Anti bool
	// TrimInvalid physically compacts an inner or right-outer join's
	// result once VALID_TEMP has been applied, rather than leaving
	// invalidated rows in place for a later explicit Compact call; it
	// has no effect on left or full outer joins.
	TrimInvalid bool
}

func onesShare[T vector.Numeric](eng protocol.Engine[T], n int) share.Share[T] {
	return eng.PublicShare(vector.NewFilled[T](n, 1))
}

func notA[T vector.Numeric](eng protocol.Engine[T], a share.Share[T]) (share.Share[T], error) {
	return eng.SubA(onesShare[T](eng, a.Size()), a)
}

// orA computes the arithmetic OR of two 0/1-domain A-shared flags.
func orA[T vector.Numeric](eng protocol.Engine[T], a, b share.Share[T]) (share.Share[T], error) {
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

// selectA returns cond*ifTrue + (1-cond)*ifFalse for an A-shared 0/1
// condition.
func selectA[T vector.Numeric](eng protocol.Engine[T], cond, ifTrue, ifFalse share.Share[T]) (share.Share[T], error) {
	diff, err := eng.SubA(ifTrue, ifFalse)
	if err != nil {
		return share.Share[T]{}, err
	}
	scaled, err := eng.MultiplyA(cond, diff)
	if err != nil {
		return share.Share[T]{}, err
	}
	return eng.AddA(scaled, ifFalse)
}

func writeBackView[T vector.Numeric](dst, src share.Share[T]) {
	for p := range dst.Parts {
		for i := 0; i < dst.Parts[p].Size(); i++ {
			dst.Parts[p].Set(i, src.Parts[p].At(i))
		}
	}
}

// compositeSortKey packs VALID (inverted, so valid rows sort first and
// invalid and padding rows sort last),
// the join key, and TABLE_ID into one ascending sort key via
// fixed-width positional weighting — the ORDER BY VALID, keys,
// TABLE_ID of spec.md §4.9.1 step 3, without teaching a second,
// genuinely multi-column Sort primitive. Relies on T having headroom
// above the join key's own range; not meaningful for 8-bit columns.
func compositeSortKey[T vector.Numeric](eng protocol.Engine[T], valid, key, tableID share.Share[T]) (share.Share[T], error) {
	n := valid.Size()
	notValid, err := notA(eng, valid)
	if err != nil {
		return share.Share[T]{}, err
	}
	bigWeight := eng.PublicShare(vector.NewFilled[T](n, 1<<16))
	scaledNotValid, err := eng.MultiplyA(notValid, bigWeight)
	if err != nil {
		return share.Share[T]{}, err
	}
	smallWeight := eng.PublicShare(vector.NewFilled[T](n, 2))
	scaledKey, err := eng.MultiplyA(key, smallWeight)
	if err != nil {
		return share.Share[T]{}, err
	}
	sum, err := eng.AddA(scaledNotValid, scaledKey)
	if err != nil {
		return share.Share[T]{}, err
	}
	return eng.AddA(sum, tableID)
}

// prefixedForJoin renames keyCol to unifiedKey (so both sides of a
// join share one sortable key column after concatenation) and
// prefixes every other non-reserved column with prefix, so "id" on
// both sides doesn't collide the way a plain schema union would.
func (t *Table[T]) prefixedForJoin(prefix, keyCol, unifiedKey string) (*Table[T], error) {
	cols := make([]Column[T], 0, len(t.Columns))
	for _, c := range t.Columns {
		switch c.Name {
		case keyCol:
			cols = append(cols, Column[T]{Name: unifiedKey, Boolean: c.Boolean, Data: c.Data})
		case ColValid, ColTableID, ColUniq:
			cols = append(cols, c)
		default:
			cols = append(cols, Column[T]{Name: prefix + c.Name, Boolean: c.Boolean, Data: c.Data})
		}
	}
	return New(cols)
}

// projectSide keeps VALID, the unified join key, and every column
// carrying prefix (stripped of it) — how SemiJoin/AntiJoin narrow a
// join's merged output back down to one side's own schema.
func projectSide[T vector.Numeric](t *Table[T], prefix, keyCol string) (*Table[T], error) {
	cols := make([]Column[T], 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == ColValid || c.Name == keyCol {
			cols = append(cols, c)
			continue
		}
		if len(c.Name) > len(prefix) && c.Name[:len(prefix)] == prefix {
			cols = append(cols, Column[T]{Name: c.Name[len(prefix):], Boolean: c.Boolean, Data: c.Data})
		}
	}
	return New(cols)
}

// computeValidTemp implements spec.md §4.9.1 step 5's per-kind
// VALID_TEMP formula.
func computeValidTemp[T vector.Numeric](eng protocol.Engine[T], kind JoinKind, valid, tableID, uniq share.Share[T]) (share.Share[T], error) {
	switch kind {
	case FullOuterKind:
		return valid, nil
	case RightOuterKind:
		return eng.MultiplyA(valid, tableID)
	case InnerKind:
		notUniq, err := notA(eng, uniq)
		if err != nil {
			return share.Share[T]{}, err
		}
		return eng.MultiplyA(valid, notUniq)
	case LeftOuterKind:
		tidAndUniq, err := eng.MultiplyA(tableID, uniq)
		if err != nil {
			return share.Share[T]{}, err
		}
		notTU, err := notA(eng, tidAndUniq)
		if err != nil {
			return share.Share[T]{}, err
		}
		vt, err := eng.MultiplyA(valid, notTU)
		if err != nil {
			return share.Share[T]{}, err
		}
		n := vt.Size()
		if n > 1 {
			tidHead, err := sliceShare(tableID, 0, n-1)
			if err != nil {
				return share.Share[T]{}, err
			}
			uniqNext, err := sliceShare(uniq, 1, n)
			if err != nil {
				return share.Share[T]{}, err
			}
			orTerm, err := orA(eng, tidHead, uniqNext)
			if err != nil {
				return share.Share[T]{}, err
			}
			vtHead, err := sliceShare(vt, 0, n-1)
			if err != nil {
				return share.Share[T]{}, err
			}
			vtHeadNew, err := eng.MultiplyA(vtHead, orTerm)
			if err != nil {
				return share.Share[T]{}, err
			}
			writeBackView(vtHead, vtHeadNew)
		}
		return vt, nil
	default:
		return share.Share[T]{}, fmt.Errorf("table: unknown join kind %d: %w", kind, orqerr.PreconditionViolated)
	}
}

// join implements spec.md §4.9.1's sort-merge equi-join: concatenate
// with TABLE_ID, sort on VALID||key||TABLE_ID, mark key duplicates via
// distinct into UNIQ, compute VALID_TEMP per kind, carry each side's
// attributes across its matching row with a pair of Copy aggregations
// (reverse to pull right's columns up onto the first/left row of a
// key, forward to push left's columns down onto later/right rows),
// then filter and drop the scratch columns.
func join[T vector.Numeric](eng protocol.Engine[T], mgr *perm.Manager, left, right *Table[T], leftKey, rightKey string, kind JoinKind, opts JoinOptions) (*Table[T], error) {
	if left.Rows() == 0 || right.Rows() == 0 {
		return nil, fmt.Errorf("table: join requires non-empty inputs: %w", orqerr.PreconditionViolated)
	}
	leftPrefixed, err := left.prefixedForJoin("left.", leftKey, leftKey)
	if err != nil {
		return nil, err
	}
	rightPrefixed, err := right.prefixedForJoin("right.", rightKey, leftKey)
	if err != nil {
		return nil, err
	}

	concat, err := Concatenate(eng, true, leftPrefixed, rightPrefixed)
	if err != nil {
		return nil, err
	}

	validCol, err := concat.Column(ColValid)
	if err != nil {
		return nil, err
	}
	keyCol, err := concat.Column(leftKey)
	if err != nil {
		return nil, err
	}
	tidCol, err := concat.Column(ColTableID)
	if err != nil {
		return nil, err
	}
	sortKey, err := compositeSortKey(eng, validCol.Data, keyCol.Data, tidCol.Data)
	if err != nil {
		return nil, err
	}
	const sortKeyCol = "__join_sort_key"
	concat.Columns = append(concat.Columns, Column[T]{Name: sortKeyCol, Data: sortKey})
	concat.reindex()

	n := concat.Rows()
	mgr.Reserve(n, 1, perm.HonestMajority)
	if err := concat.Sort(eng, mgr, sortKeyCol); err != nil {
		return nil, err
	}
	if err := concat.DeleteColumn(sortKeyCol); err != nil {
		return nil, err
	}

	if kind != RightOuterKind {
		if err := concat.DistinctInto(eng, leftKey, ColUniq); err != nil {
			return nil, err
		}
	} else {
		concat.Columns = append(concat.Columns, Column[T]{Name: ColUniq, Data: eng.PublicShare(vector.NewFilled[T](n, 0))})
		concat.reindex()
	}

	validCol, _ = concat.Column(ColValid)
	tidCol, _ = concat.Column(ColTableID)
	uniqCol, err := concat.Column(ColUniq)
	if err != nil {
		return nil, err
	}

	validTemp, err := computeValidTemp(eng, kind, validCol.Data, tidCol.Data, uniqCol.Data)
	if err != nil {
		return nil, err
	}
	const validTempCol = "__join_valid_temp"
	concat.Columns = append(concat.Columns, Column[T]{Name: validTempCol, Data: validTemp})
	concat.reindex()

	var rightCarry []aggregate.AggregationSelector
	for _, c := range concat.Columns {
		if len(c.Name) > 6 && c.Name[:6] == "right." {
			rightCarry = append(rightCarry, aggregate.CopyOf(c.Name))
		}
	}
	if len(rightCarry) > 0 {
		if err := concat.AggregateWithOptions(eng, leftKey, rightCarry, AggregateOptions{Direction: Reverse}); err != nil {
			return nil, err
		}
	}

	var leftCarry []aggregate.AggregationSelector
	for _, c := range concat.Columns {
		if len(c.Name) > 5 && c.Name[:5] == "left." {
			leftCarry = append(leftCarry, aggregate.CopyOf(c.Name))
		}
	}
	if opts.Anti {
		leftCarry = append(leftCarry, aggregate.CopyOf(validTempCol))
	}
	if len(leftCarry) > 0 {
		if err := concat.AggregateWithOptions(eng, leftKey, leftCarry, AggregateOptions{Direction: Forward}); err != nil {
			return nil, err
		}
	}

	vtCol, err := concat.Column(validTempCol)
	if err != nil {
		return nil, err
	}
	concat.Columns[concat.index[ColValid]].Data = vtCol.Data
	if err := concat.DeleteColumn(validTempCol); err != nil {
		return nil, err
	}
	if err := concat.DeleteColumn(ColUniq); err != nil {
		return nil, err
	}
	if err := concat.DeleteColumn(ColTableID); err != nil {
		return nil, err
	}

	if opts.TrimInvalid && (kind == InnerKind || kind == RightOuterKind) {
		if err := concat.Compact(eng, mgr); err != nil {
			return nil, err
		}
	}
	return concat, nil
}

// InnerJoin returns one row per matching (left, right) key pair, both
// sides' non-key columns prefixed "left."/"right.". Non-matching rows
// are invalidated rather than physically removed; call Compact to
// drop them.
func InnerJoin[T vector.Numeric](eng protocol.Engine[T], mgr *perm.Manager, left, right *Table[T], leftKey, rightKey string) (*Table[T], error) {
	return join(eng, mgr, left, right, leftKey, rightKey, InnerKind, JoinOptions{})
}

// LeftJoin keeps every left row, matched or not, filling unmatched
// rows' right.* columns with their Concatenate-time zero default.
func LeftJoin[T vector.Numeric](eng protocol.Engine[T], mgr *perm.Manager, left, right *Table[T], leftKey, rightKey string) (*Table[T], error) {
	return join(eng, mgr, left, right, leftKey, rightKey, LeftOuterKind, JoinOptions{})
}

// RightJoin keeps every right row, matched or not.
func RightJoin[T vector.Numeric](eng protocol.Engine[T], mgr *perm.Manager, left, right *Table[T], leftKey, rightKey string) (*Table[T], error) {
	return join(eng, mgr, left, right, leftKey, rightKey, RightOuterKind, JoinOptions{})
}

// FullOuterJoin keeps every row from both sides.
func FullOuterJoin[T vector.Numeric](eng protocol.Engine[T], mgr *perm.Manager, left, right *Table[T], leftKey, rightKey string) (*Table[T], error) {
	return join(eng, mgr, left, right, leftKey, rightKey, FullOuterKind, JoinOptions{})
}

// SemiJoin narrows left to the rows with a match in right, projected
// to left's own schema: an inner join of (right, left) restricted to
// the columns that came from left (spec.md §4.9.1).
func SemiJoin[T vector.Numeric](eng protocol.Engine[T], mgr *perm.Manager, left, right *Table[T], leftKey, rightKey string) (*Table[T], error) {
	joined, err := join(eng, mgr, right, left, rightKey, leftKey, InnerKind, JoinOptions{})
	if err != nil {
		return nil, err
	}
	return projectSide(joined, "right.", rightKey)
}

// AntiJoin narrows left to the rows with no match in right, projected
// to left's own schema: a right outer join of (right, left) with the
// anti flag set, restricted to the columns that came from left
// (spec.md §4.9.1).
func AntiJoin[T vector.Numeric](eng protocol.Engine[T], mgr *perm.Manager, left, right *Table[T], leftKey, rightKey string) (*Table[T], error) {
	joined, err := join(eng, mgr, right, left, rightKey, leftKey, RightOuterKind, JoinOptions{Anti: true, TrimInvalid: true})
	if err != nil {
		return nil, err
	}
	return projectSide(joined, "right.", rightKey)
}

// UniqueJoin is the uu_join fast path of spec.md §4.9.1, for call
// sites that know at least one side's key is unique per row: it skips
// the general distinct+reverse-aggregate machinery join uses and
// instead, after the same concatenate+sort, tests each row only
// against its immediate predecessor and shift-copies matched columns
// one position. The sort is the same O(n log^2 n) network join uses;
// the work after it is one predecessor comparison and one masked
// select per column, at the cost of only ever copying columns across
// the match.
func UniqueJoin[T vector.Numeric](eng protocol.Engine[T], mgr *perm.Manager, left, right *Table[T], leftKey, rightKey string) (*Table[T], error) {
	if left.Rows() == 0 || right.Rows() == 0 {
		return nil, fmt.Errorf("table: join requires non-empty inputs: %w", orqerr.PreconditionViolated)
	}
	leftPrefixed, err := left.prefixedForJoin("left.", leftKey, leftKey)
	if err != nil {
		return nil, err
	}
	rightPrefixed, err := right.prefixedForJoin("right.", rightKey, leftKey)
	if err != nil {
		return nil, err
	}
	concat, err := Concatenate(eng, true, leftPrefixed, rightPrefixed)
	if err != nil {
		return nil, err
	}

	validCol, err := concat.Column(ColValid)
	if err != nil {
		return nil, err
	}
	keyCol, err := concat.Column(leftKey)
	if err != nil {
		return nil, err
	}
	tidCol, err := concat.Column(ColTableID)
	if err != nil {
		return nil, err
	}
	sortKey, err := compositeSortKey(eng, validCol.Data, keyCol.Data, tidCol.Data)
	if err != nil {
		return nil, err
	}
	const sortKeyCol = "__uu_sort_key"
	concat.Columns = append(concat.Columns, Column[T]{Name: sortKeyCol, Data: sortKey})
	concat.reindex()

	n := concat.Rows()
	mgr.Reserve(n, 1, perm.HonestMajority)
	if err := concat.Sort(eng, mgr, sortKeyCol); err != nil {
		return nil, err
	}
	if err := concat.DeleteColumn(sortKeyCol); err != nil {
		return nil, err
	}

	keyCol, _ = concat.Column(leftKey)
	validCol, _ = concat.Column(ColValid)

	if n > 1 {
		cur, err := sliceShare(keyCol.Data, 1, n)
		if err != nil {
			return nil, err
		}
		prev, err := sliceShare(keyCol.Data, 0, n-1)
		if err != nil {
			return nil, err
		}
		curB, err := eng.A2B(cur)
		if err != nil {
			return nil, err
		}
		prevB, err := eng.A2B(prev)
		if err != nil {
			return nil, err
		}
		_, eq, err := circuits.Compare(eng, curB, prevB)
		if err != nil {
			return nil, err
		}
		eqA, err := eng.B2ABit(eq)
		if err != nil {
			return nil, err
		}

		validTail, err := sliceShare(validCol.Data, 1, n)
		if err != nil {
			return nil, err
		}
		newTail, err := eng.MultiplyA(validTail, eqA)
		if err != nil {
			return nil, err
		}
		writeBackView(validTail, newTail)
		for p := range validCol.Data.Parts {
			validCol.Data.Parts[p].Set(0, 0)
		}

		for i, c := range concat.Columns {
			if c.Name == leftKey || c.Name == ColValid || c.Name == ColTableID {
				continue
			}
			next, err := sliceShare(c.Data, 1, n)
			if err != nil {
				return nil, err
			}
			prevRow, err := sliceShare(c.Data, 0, n-1)
			if err != nil {
				return nil, err
			}
			shifted, err := selectA(eng, eqA, next, prevRow)
			if err != nil {
				return nil, err
			}
			writeBackView(prevRow, shifted)
			_ = i
		}
	} else {
		for p := range validCol.Data.Parts {
			validCol.Data.Parts[p].Set(0, 0)
		}
	}

	if err := concat.DeleteColumn(ColTableID); err != nil {
		return nil, err
	}
	return concat, nil
}

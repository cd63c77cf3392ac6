package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/orq/pkg/perm"
	"github.com/luxfi/orq/pkg/protocol"
	"github.com/luxfi/orq/pkg/vector"
)

func openColumn(t *testing.T, r *protocol.Replicated3[uint32], tb *Table[uint32], name string) []uint32 {
	t.Helper()
	col, err := tb.Column(name)
	require.NoError(t, err)
	v, err := r.Open(col.Data)
	require.NoError(t, err)
	return v.ToSlice()
}

func TestLeftJoinKeepsUnmatchedLeftRows(t *testing.T) {
	ids, engines := newCluster(t)
	leftKeys := vector.New([]uint32{1, 2, 3})
	rightKeys := vector.New([]uint32{2, 3})
	rightVals := vector.New([]uint32{20, 30})

	leftShares := shareArithmetic(t, ids, engines, leftKeys)
	rightKeyShares := shareArithmetic(t, ids, engines, rightKeys)
	rightValShares := shareArithmetic(t, ids, engines, rightVals)

	results := runOnAll(engines, func(r *protocol.Replicated3[uint32]) []uint32 {
		idx := indexOf(ids, r.Self())
		left, err := NewWithValid(r, []Column[uint32]{{Name: "id", Data: leftShares[idx]}})
		require.NoError(t, err)
		right, err := NewWithValid(r, []Column[uint32]{
			{Name: "id", Data: rightKeyShares[idx]},
			{Name: "val", Data: rightValShares[idx]},
		})
		require.NoError(t, err)

		joined, err := LeftJoin(r, perm.NewManager(21), left, right, "id", "id")
		require.NoError(t, err)
		require.NoError(t, joined.Compact(r, perm.NewManager(22)))
		require.Equal(t, 3, joined.Rows())

		return openColumn(t, r, joined, "id")
	})
	for _, v := range results {
		require.ElementsMatch(t, []uint32{1, 2, 3}, v)
	}
}

func TestRightJoinKeepsUnmatchedRightRows(t *testing.T) {
	ids, engines := newCluster(t)
	leftKeys := vector.New([]uint32{1, 2})
	leftVals := vector.New([]uint32{100, 200})
	rightKeys := vector.New([]uint32{2, 3, 4})

	leftKeyShares := shareArithmetic(t, ids, engines, leftKeys)
	leftValShares := shareArithmetic(t, ids, engines, leftVals)
	rightKeyShares := shareArithmetic(t, ids, engines, rightKeys)

	results := runOnAll(engines, func(r *protocol.Replicated3[uint32]) []uint32 {
		idx := indexOf(ids, r.Self())
		left, err := NewWithValid(r, []Column[uint32]{
			{Name: "id", Data: leftKeyShares[idx]},
			{Name: "val", Data: leftValShares[idx]},
		})
		require.NoError(t, err)
		right, err := NewWithValid(r, []Column[uint32]{{Name: "id", Data: rightKeyShares[idx]}})
		require.NoError(t, err)

		joined, err := RightJoin(r, perm.NewManager(23), left, right, "id", "id")
		require.NoError(t, err)
		require.NoError(t, joined.Compact(r, perm.NewManager(24)))
		require.Equal(t, 3, joined.Rows())

		return openColumn(t, r, joined, "id")
	})
	for _, v := range results {
		require.ElementsMatch(t, []uint32{2, 3, 4}, v)
	}
}

func TestFullOuterJoinKeepsEverything(t *testing.T) {
	ids, engines := newCluster(t)
	leftKeys := vector.New([]uint32{1, 2})
	rightKeys := vector.New([]uint32{2, 3})

	leftKeyShares := shareArithmetic(t, ids, engines, leftKeys)
	rightKeyShares := shareArithmetic(t, ids, engines, rightKeys)

	results := runOnAll(engines, func(r *protocol.Replicated3[uint32]) int {
		idx := indexOf(ids, r.Self())
		left, err := NewWithValid(r, []Column[uint32]{{Name: "id", Data: leftKeyShares[idx]}})
		require.NoError(t, err)
		right, err := NewWithValid(r, []Column[uint32]{{Name: "id", Data: rightKeyShares[idx]}})
		require.NoError(t, err)

		joined, err := FullOuterJoin(r, perm.NewManager(25), left, right, "id", "id")
		require.NoError(t, err)
		require.NoError(t, joined.Compact(r, perm.NewManager(26)))
		return joined.Rows()
	})
	for _, v := range results {
		require.Equal(t, 3, v)
	}
}

func TestSemiJoinNarrowsToMatchedLeftRows(t *testing.T) {
	ids, engines := newCluster(t)
	leftKeys := vector.New([]uint32{1, 2, 3})
	rightKeys := vector.New([]uint32{2, 3, 4})

	leftKeyShares := shareArithmetic(t, ids, engines, leftKeys)
	rightKeyShares := shareArithmetic(t, ids, engines, rightKeys)

	results := runOnAll(engines, func(r *protocol.Replicated3[uint32]) []uint32 {
		idx := indexOf(ids, r.Self())
		left, err := NewWithValid(r, []Column[uint32]{{Name: "id", Data: leftKeyShares[idx]}})
		require.NoError(t, err)
		right, err := NewWithValid(r, []Column[uint32]{{Name: "id", Data: rightKeyShares[idx]}})
		require.NoError(t, err)

		narrowed, err := SemiJoin(r, perm.NewManager(27), left, right, "id", "id")
		require.NoError(t, err)
		require.NoError(t, narrowed.Compact(r, perm.NewManager(28)))
		return openColumn(t, r, narrowed, "id")
	})
	for _, v := range results {
		require.ElementsMatch(t, []uint32{2, 3}, v)
	}
}

func TestAntiJoinKeepsUnmatchedLeftRows(t *testing.T) {
	ids, engines := newCluster(t)
	leftKeys := vector.New([]uint32{1, 2, 3})
	rightKeys := vector.New([]uint32{2, 3, 4})

	leftKeyShares := shareArithmetic(t, ids, engines, leftKeys)
	rightKeyShares := shareArithmetic(t, ids, engines, rightKeys)

	results := runOnAll(engines, func(r *protocol.Replicated3[uint32]) []uint32 {
		idx := indexOf(ids, r.Self())
		left, err := NewWithValid(r, []Column[uint32]{{Name: "id", Data: leftKeyShares[idx]}})
		require.NoError(t, err)
		right, err := NewWithValid(r, []Column[uint32]{{Name: "id", Data: rightKeyShares[idx]}})
		require.NoError(t, err)

		unmatched, err := AntiJoin(r, perm.NewManager(29), left, right, "id", "id")
		require.NoError(t, err)
		require.NoError(t, unmatched.Compact(r, perm.NewManager(30)))
		return openColumn(t, r, unmatched, "id")
	})
	for _, v := range results {
		require.ElementsMatch(t, []uint32{1}, v)
	}
}

func TestUniqueJoinCopiesMatchedColumns(t *testing.T) {
	ids, engines := newCluster(t)
	leftKeys := vector.New([]uint32{1, 2, 3})
	leftVals := vector.New([]uint32{10, 20, 30})
	rightKeys := vector.New([]uint32{2, 3, 4})
	rightVals := vector.New([]uint32{200, 300, 400})

	leftKeyShares := shareArithmetic(t, ids, engines, leftKeys)
	leftValShares := shareArithmetic(t, ids, engines, leftVals)
	rightKeyShares := shareArithmetic(t, ids, engines, rightKeys)
	rightValShares := shareArithmetic(t, ids, engines, rightVals)

	results := runOnAll(engines, func(r *protocol.Replicated3[uint32]) []uint32 {
		idx := indexOf(ids, r.Self())
		left, err := NewWithValid(r, []Column[uint32]{
			{Name: "id", Data: leftKeyShares[idx]},
			{Name: "v", Data: leftValShares[idx]},
		})
		require.NoError(t, err)
		right, err := NewWithValid(r, []Column[uint32]{
			{Name: "id", Data: rightKeyShares[idx]},
			{Name: "v", Data: rightValShares[idx]},
		})
		require.NoError(t, err)

		joined, err := UniqueJoin(r, perm.NewManager(31), left, right, "id", "id")
		require.NoError(t, err)
		require.NoError(t, joined.Compact(r, perm.NewManager(32)))
		return openColumn(t, r, joined, "right.v")
	})
	for _, v := range results {
		require.ElementsMatch(t, []uint32{200, 300}, v)
	}
}

func TestConcatenateUnionsSchemasAndStampsTableID(t *testing.T) {
	ids, engines := newCluster(t)
	a := vector.New([]uint32{1, 2})
	b := vector.New([]uint32{3, 4, 5})

	aShares := shareArithmetic(t, ids, engines, a)
	bShares := shareArithmetic(t, ids, engines, b)

	results := runOnAll(engines, func(r *protocol.Replicated3[uint32]) []uint32 {
		idx := indexOf(ids, r.Self())
		ta, err := NewWithValid(r, []Column[uint32]{{Name: "x", Data: aShares[idx]}})
		require.NoError(t, err)
		tb, err := NewWithValid(r, []Column[uint32]{{Name: "y", Data: bShares[idx]}})
		require.NoError(t, err)

		out, err := Concatenate(r, false, ta, tb)
		require.NoError(t, err)
		require.True(t, out.Has("x"))
		require.True(t, out.Has("y"))
		require.True(t, out.Has(ColTableID))
		require.Equal(t, 5, out.Rows())

		return openColumn(t, r, out, ColTableID)
	})
	for _, v := range results {
		require.Equal(t, []uint32{0, 0, 1, 1, 1}, v)
	}
}

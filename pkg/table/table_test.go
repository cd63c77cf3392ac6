package table

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/orq/pkg/aggregate"
	"github.com/luxfi/orq/pkg/party"
	"github.com/luxfi/orq/pkg/perm"
	"github.com/luxfi/orq/pkg/protocol"
	"github.com/luxfi/orq/pkg/share"
	"github.com/luxfi/orq/pkg/vector"
)

func newCluster(t *testing.T) ([3]party.ID, [3]*protocol.Replicated3[uint32]) {
	t.Helper()
	ids := [3]party.ID{"alice", "bob", "carol"}
	engines, err := protocol.NewReplicated3Cluster[uint32](ids, [32]byte{9, 9, 9})
	require.NoError(t, err)
	return ids, engines
}

func runOnAll[Out any](engines [3]*protocol.Replicated3[uint32], body func(*protocol.Replicated3[uint32]) Out) [3]Out {
	var out [3]Out
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		i := i
		go func() {
			defer wg.Done()
			out[i] = body(engines[i])
		}()
	}
	wg.Wait()
	return out
}

func shareArithmetic(t *testing.T, ids [3]party.ID, engines [3]*protocol.Replicated3[uint32], v vector.Vec[uint32]) [3]share.Share[uint32] {
	t.Helper()
	return runOnAll(engines, func(r *protocol.Replicated3[uint32]) share.Share[uint32] {
		in := v
		if r.Self() != ids[0] {
			in = vector.NewFilled[uint32](v.Size(), 0)
		}
		s, err := r.SecretShareA(in, ids[0])
		require.NoError(t, err)
		return s
	})
}

func indexOf(ids [3]party.ID, self party.ID) int {
	for i, id := range ids {
		if id == self {
			return i
		}
	}
	return -1
}

func TestFilterAndCompactDropsInvalidRows(t *testing.T) {
	ids, engines := newCluster(t)
	keys := vector.New([]uint32{10, 20, 30, 40})
	keyShares := shareArithmetic(t, ids, engines, keys)

	results := runOnAll(engines, func(r *protocol.Replicated3[uint32]) []uint32 {
		idx := indexOf(ids, r.Self())
		mgr := perm.NewManager(7)
		mgr.Reserve(4, 2, perm.HonestMajority)

		tb, err := NewWithValid(r, []Column[uint32]{{Name: "k", Data: keyShares[idx]}})
		require.NoError(t, err)

		pred := vector.New([]uint32{1, 0, 1, 0})
		predShare := r.PublicShare(pred)
		require.NoError(t, tb.Filter(r, predShare))
		require.NoError(t, tb.Compact(r, mgr))

		col, err := tb.Column("k")
		require.NoError(t, err)
		v, err := r.Open(col.Data)
		require.NoError(t, err)
		return v.ToSlice()
	})
	want := []uint32{10, 30}
	for _, v := range results {
		require.Equal(t, want, v)
	}
}

func TestAggregateSumPerGroup(t *testing.T) {
	ids, engines := newCluster(t)
	keys := vector.New([]uint32{1, 1, 2, 2, 2})
	values := vector.New([]uint32{3, 4, 1, 2, 5})
	keyShares := shareArithmetic(t, ids, engines, keys)
	valShares := shareArithmetic(t, ids, engines, values)

	results := runOnAll(engines, func(r *protocol.Replicated3[uint32]) []uint32 {
		idx := indexOf(ids, r.Self())
		tb, err := NewWithValid(r, []Column[uint32]{
			{Name: "k", Data: keyShares[idx]},
			{Name: "v", Data: valShares[idx]},
		})
		require.NoError(t, err)

		require.NoError(t, tb.Aggregate(r, "k", []aggregate.AggregationSelector{aggregate.SumOf("v")}))
		require.NoError(t, tb.Compact(r, perm.NewManager(3)))

		col, err := tb.Column("v")
		require.NoError(t, err)
		v, err := r.Open(col.Data)
		require.NoError(t, err)
		return v.ToSlice()
	})
	want := []uint32{7, 8}
	for _, v := range results {
		require.Equal(t, want, v)
	}
}

func TestInnerJoinMatchesOnKey(t *testing.T) {
	ids, engines := newCluster(t)
	leftKeys := vector.New([]uint32{1, 2, 3})
	rightKeys := vector.New([]uint32{2, 3, 4})
	rightVals := vector.New([]uint32{20, 30, 40})

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

		joined, err := InnerJoin(r, perm.NewManager(5), left, right, "id", "id")
		require.NoError(t, err)
		require.NoError(t, joined.Compact(r, perm.NewManager(9)))

		col, err := joined.Column("right.val")
		require.NoError(t, err)
		v, err := r.Open(col.Data)
		require.NoError(t, err)
		return v.ToSlice()
	})
	for _, v := range results {
		require.ElementsMatch(t, []uint32{20, 30}, v)
	}
}

package perm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/orq/pkg/party"
	"github.com/luxfi/orq/pkg/protocol"
	"github.com/luxfi/orq/pkg/share"
	"github.com/luxfi/orq/pkg/vector"
)

func newCluster(t *testing.T) ([3]party.ID, [3]*protocol.Replicated3[uint32]) {
	t.Helper()
	ids := [3]party.ID{"alice", "bob", "carol"}
	engines, err := protocol.NewReplicated3Cluster[uint32](ids, [32]byte{3, 1, 4})
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

func TestObliviousApplyAndInverseRoundTrip(t *testing.T) {
	ids, engines := newCluster(t)
	data := vector.New([]uint32{10, 20, 30, 40})
	shares := shareArithmetic(t, ids, engines, data)

	mgr := NewManager(42)
	mgr.Reserve(4, 1, HonestMajority)
	corr, err := mgr.GetNext(4)
	require.NoError(t, err)

	permuted := runOnAll(engines, func(r *protocol.Replicated3[uint32]) share.Share[uint32] {
		idx := -1
		for i, id := range ids {
			if id == r.Self() {
				idx = i
			}
		}
		out, err := ObliviousApplySharded(r, shares[idx], corr, false)
		require.NoError(t, err)
		return out
	})

	restored := runOnAll(engines, func(r *protocol.Replicated3[uint32]) vector.Vec[uint32] {
		idx := -1
		for i, id := range ids {
			if id == r.Self() {
				idx = i
			}
		}
		back, err := ObliviousApplyInverseSharded(r, permuted[idx], corr, false)
		require.NoError(t, err)
		v, err := r.Open(back)
		require.NoError(t, err)
		return v
	})
	for _, v := range restored {
		require.Equal(t, data.ToSlice(), v.ToSlice())
	}
}

func TestPermutationManagerFIFOAndExhaustion(t *testing.T) {
	mgr := NewManager(1)
	mgr.Reserve(3, 2, HonestMajority)
	first, err := mgr.GetNext(3)
	require.NoError(t, err)
	require.Len(t, first.Perm, 3)
	_, err = mgr.GetNext(3)
	require.NoError(t, err)
	_, err = mgr.GetNext(3)
	require.Error(t, err)
}

func TestElementwiseInvertAndCompose(t *testing.T) {
	ids, engines := newCluster(t)
	perm := vector.New([]uint32{2, 0, 1})
	shares := shareArithmetic(t, ids, engines, perm)

	inverted := runOnAll(engines, func(r *protocol.Replicated3[uint32]) vector.Vec[uint32] {
		idx := -1
		for i, id := range ids {
			if id == r.Self() {
				idx = i
			}
		}
		inv, err := ElementwiseInvert(r, shares[idx])
		require.NoError(t, err)
		v, err := r.Open(inv)
		require.NoError(t, err)
		return v
	})
	for _, v := range inverted {
		require.Equal(t, []uint32{1, 2, 0}, v.ToSlice())
	}

	composed := runOnAll(engines, func(r *protocol.Replicated3[uint32]) vector.Vec[uint32] {
		idx := -1
		for i, id := range ids {
			if id == r.Self() {
				idx = i
			}
		}
		out, err := Compose(r, shares[idx], shares[idx])
		require.NoError(t, err)
		v, err := r.Open(out)
		require.NoError(t, err)
		return v
	})
	for _, v := range composed {
		require.Equal(t, []uint32{1, 2, 0}, v.ToSlice())
	}
}

package window

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
	engines, err := protocol.NewReplicated3Cluster[uint32](ids, [32]byte{5, 5, 5})
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

func TestTumblingWindowAssignsIds(t *testing.T) {
	ids, engines := newCluster(t)
	timestamps := vector.New([]uint32{1, 2, 9, 10, 11, 21})
	shares := shareArithmetic(t, ids, engines, timestamps)

	results := runOnAll(engines, func(r *protocol.Replicated3[uint32]) []uint32 {
		idx := indexOf(ids, r.Self())
		assign, err := Tumbling(r, shares[idx], 10)
		require.NoError(t, err)
		v, err := r.Open(assign.ID)
		require.NoError(t, err)
		return v.ToSlice()
	})
	want := []uint32{1, 1, 1, 2, 2, 3}
	for _, v := range results {
		require.Equal(t, want, v)
	}
}

func TestGapSessionWindow(t *testing.T) {
	ids, engines := newCluster(t)
	timestamps := vector.New([]uint32{1, 2, 3, 50, 51, 100})
	shares := shareArithmetic(t, ids, engines, timestamps)

	results := runOnAll(engines, func(r *protocol.Replicated3[uint32]) []uint32 {
		idx := indexOf(ids, r.Self())
		assign, err := GapSession(r, shares[idx], 5)
		require.NoError(t, err)
		v, err := r.Open(assign.ID)
		require.NoError(t, err)
		return v.ToSlice()
	})
	want := []uint32{1, 1, 1, 2, 2, 3}
	for _, v := range results {
		require.Equal(t, want, v)
	}
}

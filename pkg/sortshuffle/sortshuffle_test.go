package sortshuffle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/orq/pkg/party"
	"github.com/luxfi/orq/pkg/perm"
	"github.com/luxfi/orq/pkg/protocol"
	"github.com/luxfi/orq/pkg/share"
	"github.com/luxfi/orq/pkg/vector"
)

func newCluster(t *testing.T) ([3]party.ID, [3]*protocol.Replicated3[uint32]) {
	t.Helper()
	ids := [3]party.ID{"alice", "bob", "carol"}
	engines, err := protocol.NewReplicated3Cluster[uint32](ids, [32]byte{9, 8, 7})
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

func TestBitonicSortAscending(t *testing.T) {
	ids, engines := newCluster(t)
	keys := vector.New([]uint32{8, 3, 5, 1, 9, 2, 7, 4})
	payload := vector.New([]uint32{80, 30, 50, 10, 90, 20, 70, 40})

	keyShares := shareArithmetic(t, ids, engines, keys)
	payShares := shareArithmetic(t, ids, engines, payload)

	results := runOnAll(engines, func(r *protocol.Replicated3[uint32]) [2][]uint32 {
		idx := indexOf(ids, r.Self())
		row := Row[uint32]{Key: keyShares[idx], Payload: []share.Share[uint32]{payShares[idx]}}
		err := BitonicSort(r, row)
		require.NoError(t, err)
		k, err := r.Open(row.Key)
		require.NoError(t, err)
		p, err := r.Open(row.Payload[0])
		require.NoError(t, err)
		return [2][]uint32{k.ToSlice(), p.ToSlice()}
	})
	wantKeys := []uint32{1, 2, 3, 4, 5, 7, 8, 9}
	for _, res := range results {
		require.Equal(t, wantKeys, res[0])
		// every payload value must still be 10x its key.
		for i, k := range res[0] {
			require.Equal(t, k*10, res[1][i])
		}
	}
}

func TestShuffleThenUnshuffleRoundTrip(t *testing.T) {
	ids, engines := newCluster(t)
	data := vector.New([]uint32{11, 22, 33, 44})
	shares := shareArithmetic(t, ids, engines, data)

	mgr := perm.NewManager(5)
	mgr.Reserve(4, 1, perm.HonestMajority)
	corr, err := mgr.GetNext(4)
	require.NoError(t, err)

	shuffled := runOnAll(engines, func(r *protocol.Replicated3[uint32]) share.Share[uint32] {
		idx := indexOf(ids, r.Self())
		out, err := Shuffle(r, shares[idx], corr, false)
		require.NoError(t, err)
		return out
	})
	restored := runOnAll(engines, func(r *protocol.Replicated3[uint32]) vector.Vec[uint32] {
		idx := indexOf(ids, r.Self())
		back, err := perm.ObliviousApplyInverseSharded(r, shuffled[idx], corr, false)
		require.NoError(t, err)
		v, err := r.Open(back)
		require.NoError(t, err)
		return v
	})
	for _, v := range restored {
		require.Equal(t, data.ToSlice(), v.ToSlice())
	}
}

func TestRadixSortSortsAscending(t *testing.T) {
	ids, engines := newCluster(t)
	keys := vector.New([]uint32{40, 10, 30, 20})

	keyShares := shareArithmetic(t, ids, engines, keys)

	results := runOnAll(engines, func(r *protocol.Replicated3[uint32]) []uint32 {
		idx := indexOf(ids, r.Self())
		row := Row[uint32]{Key: keyShares[idx]}
		err := RadixSort(r, row)
		require.NoError(t, err)
		v, err := r.Open(row.Key)
		require.NoError(t, err)
		return v.ToSlice()
	})
	want := []uint32{10, 20, 30, 40}
	for _, v := range results {
		require.Equal(t, want, v)
	}
}

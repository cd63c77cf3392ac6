package circuits

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
	engines, err := protocol.NewReplicated3Cluster[uint32](ids, [32]byte{7, 7, 7})
	require.NoError(t, err)
	return ids, engines
}

func runOnAll[Out any](engines [3]*protocol.Replicated3[uint32], body func(idx int, r *protocol.Replicated3[uint32]) Out) [3]Out {
	var out [3]Out
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		i := i
		go func() {
			defer wg.Done()
			out[i] = body(i, engines[i])
		}()
	}
	wg.Wait()
	return out
}

func shareBoolean(t *testing.T, ids [3]party.ID, engines [3]*protocol.Replicated3[uint32], v vector.Vec[uint32]) [3]share.Share[uint32] {
	t.Helper()
	return runOnAll(engines, func(_ int, r *protocol.Replicated3[uint32]) share.Share[uint32] {
		in := v
		if r.Self() != ids[0] {
			in = vector.NewFilled[uint32](v.Size(), 0)
		}
		s, err := r.SecretShareB(in, ids[0])
		require.NoError(t, err)
		return s
	})
}

func shareArithmetic(t *testing.T, ids [3]party.ID, engines [3]*protocol.Replicated3[uint32], v vector.Vec[uint32]) [3]share.Share[uint32] {
	t.Helper()
	return runOnAll(engines, func(_ int, r *protocol.Replicated3[uint32]) share.Share[uint32] {
		in := v
		if r.Self() != ids[0] {
			in = vector.NewFilled[uint32](v.Size(), 0)
		}
		s, err := r.SecretShareA(in, ids[0])
		require.NoError(t, err)
		return s
	})
}

func TestRippleCarryAddMatchesPlainAddition(t *testing.T) {
	ids, engines := newCluster(t)
	a := vector.New([]uint32{5, 1000, 4294967295})
	b := vector.New([]uint32{7, 23, 1})

	sa := shareBoolean(t, ids, engines, a)
	sb := shareBoolean(t, ids, engines, b)

	sums := runOnAll(engines, func(idx int, r *protocol.Replicated3[uint32]) vector.Vec[uint32] {
		sum, _, err := RippleCarryAdd(r, sa[idx], sb[idx])
		require.NoError(t, err)
		v, err := r.Open(sum)
		require.NoError(t, err)
		return v
	})
	want := []uint32{12, 1023, 0}
	for _, v := range sums {
		require.Equal(t, want, v.ToSlice())
	}
}

func TestKoggeStoneAddMatchesRippleCarry(t *testing.T) {
	ids, engines := newCluster(t)
	a := vector.New([]uint32{9, 40000, 123456})
	b := vector.New([]uint32{3, 2, 654321})

	sa := shareBoolean(t, ids, engines, a)
	sb := shareBoolean(t, ids, engines, b)

	sums := runOnAll(engines, func(idx int, r *protocol.Replicated3[uint32]) vector.Vec[uint32] {
		sum, _, err := KoggeStoneAdd(r, sa[idx], sb[idx])
		require.NoError(t, err)
		v, err := r.Open(sum)
		require.NoError(t, err)
		return v
	})
	want := []uint32{12, 40002, 777777}
	for _, v := range sums {
		require.Equal(t, want, v.ToSlice())
	}
}

func TestCompareGreaterThanAndEqual(t *testing.T) {
	ids, engines := newCluster(t)
	a := vector.New([]uint32{5, 5, 10})
	b := vector.New([]uint32{3, 5, 20})

	sa := shareBoolean(t, ids, engines, a)
	sb := shareBoolean(t, ids, engines, b)

	type result struct{ gt, eq vector.Vec[uint32] }
	results := runOnAll(engines, func(idx int, r *protocol.Replicated3[uint32]) result {
		gt, eq, err := Compare(r, sa[idx], sb[idx])
		require.NoError(t, err)
		gtOpen, err := r.Open(gt)
		require.NoError(t, err)
		eqOpen, err := r.Open(eq)
		require.NoError(t, err)
		return result{gtOpen, eqOpen}
	})
	for _, res := range results {
		require.Equal(t, []uint32{1, 0, 0}, res.gt.ToSlice())
		require.Equal(t, []uint32{0, 1, 0}, res.eq.ToSlice())
	}
}

func TestCompareSignedValues(t *testing.T) {
	ids := [3]party.ID{"alice", "bob", "carol"}
	engines, err := protocol.NewReplicated3Cluster[int32](ids, [32]byte{7, 7, 7})
	require.NoError(t, err)

	a := vector.New([]int32{-5, -5, 10, -1})
	b := vector.New([]int32{-3, -5, -20, 1})

	shareInt32 := func(v vector.Vec[int32]) [3]share.Share[int32] {
		return runOnAll(engines, func(_ int, r *protocol.Replicated3[int32]) share.Share[int32] {
			in := v
			if r.Self() != ids[0] {
				in = vector.NewFilled[int32](v.Size(), 0)
			}
			s, err := r.SecretShareB(in, ids[0])
			require.NoError(t, err)
			return s
		})
	}
	sa := shareInt32(a)
	sb := shareInt32(b)

	type result struct{ gt, eq vector.Vec[int32] }
	results := runOnAll(engines, func(idx int, r *protocol.Replicated3[int32]) result {
		gt, eq, err := Compare(r, sa[idx], sb[idx])
		require.NoError(t, err)
		gtOpen, err := r.Open(gt)
		require.NoError(t, err)
		eqOpen, err := r.Open(eq)
		require.NoError(t, err)
		return result{gtOpen, eqOpen}
	})
	// -5>-3 false, -5==-5, 10>-20 true (opposite signs), -1>1 false (opposite signs)
	for _, res := range results {
		require.Equal(t, []int32{0, 0, 1, 0}, res.gt.ToSlice())
		require.Equal(t, []int32{0, 1, 0, 0}, res.eq.ToSlice())
	}
}

func TestNonRestoringDivide(t *testing.T) {
	ids, engines := newCluster(t)
	dividend := vector.New([]uint32{17, 100, 9})
	divisor := vector.New([]uint32{5, 9, 3})

	sa := shareArithmetic(t, ids, engines, dividend)
	sb := shareArithmetic(t, ids, engines, divisor)

	type result struct{ q, rem vector.Vec[uint32] }
	results := runOnAll(engines, func(idx int, r *protocol.Replicated3[uint32]) result {
		q, rem, err := NonRestoringDivide(r, sa[idx], sb[idx])
		require.NoError(t, err)
		qOpen, err := r.Open(q)
		require.NoError(t, err)
		remOpen, err := r.Open(rem)
		require.NoError(t, err)
		return result{qOpen, remOpen}
	})
	for _, res := range results {
		require.Equal(t, []uint32{3, 11, 3}, res.q.ToSlice())
		require.Equal(t, []uint32{2, 1, 0}, res.rem.ToSlice())
	}
}

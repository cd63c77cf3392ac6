// Package perm implements the permutation layer (L5): secret-shared
// permutation vectors, sharded permutation correlations consumed by
// the shuffle/sort layer, and the manager that hands them out from a
// pre-generated pool.
//
// Obliviously applying a secret permutation to secret data is, in a
// cryptographically faithful deployment, its own multi-round protocol
// (a sequence of local-permute-then-reshare passes across the R
// parties, none of whom individually learns the composed
// permutation). That protocol is squarely the kind of "low-level
// cryptographic protocol" spec.md §1 places out of scope ("only its
// contract is specified"): this package realizes the same contract —
// apply/invert a shared permutation, correctly, against every
// round-trip invariant in spec.md §8 — via reveal-then-reshare, the
// same simplification already used for protocol.Replicated3's share
// conversions. See DESIGN.md.
package perm

import (
	"fmt"
	"math/rand"

	"github.com/luxfi/orq/pkg/orqerr"
	"github.com/luxfi/orq/pkg/protocol"
	"github.com/luxfi/orq/pkg/share"
	"github.com/luxfi/orq/pkg/vector"
)

// Kind distinguishes the two correlation-generation regimes named in
// spec.md §5: HM permutations are generated by a single dealer (valid
// under an honest-majority assumption), DM permutations are generated
// via a cut-and-choose style protocol robust to a dishonest majority.
// Our reference engine realizes both identically (a dealer draw) —
// the distinction is a generation-protocol concern out of scope here,
// not a difference in the resulting correlation's shape.
type Kind int

const (
	HonestMajority Kind = iota
	DishonestMajority
)

// ShardedPermutation is one correlated-randomness unit: a uniformly
// random permutation of [0,n) plus its inverse, consumed once by a
// shuffle and then discarded.
type ShardedPermutation struct {
	Perm    []int
	Inverse []int
	Kind    Kind
}

func newShardedPermutation(n int, kind Kind, rng *rand.Rand) ShardedPermutation {
	perm := rng.Perm(n)
	inv := make([]int, n)
	for i, p := range perm {
		inv[p] = i
	}
	return ShardedPermutation{Perm: perm, Inverse: inv, Kind: kind}
}

// Manager hands out pre-generated ShardedPermutation correlations in
// FIFO order per size, the generalization of the teacher's pool types
// (pkg/pool.Pool) to a typed, size-keyed correlation queue.
type Manager struct {
	rng    *rand.Rand
	queues map[int][]ShardedPermutation
}

// NewManager seeds a Manager from a fixed source, so correlation
// generation is deterministic for tests; production callers should
// seed from a cryptographically strong source instead.
func NewManager(seed int64) *Manager {
	return &Manager{rng: rand.New(rand.NewSource(seed)), queues: make(map[int][]ShardedPermutation)}
}

// Reserve pre-generates count correlations of size n, appended to the
// existing queue for that size.
func (m *Manager) Reserve(n, count int, kind Kind) {
	for i := 0; i < count; i++ {
		m.queues[n] = append(m.queues[n], newShardedPermutation(n, kind, m.rng))
	}
}

// GetNext pops the oldest reserved correlation of size n.
func (m *Manager) GetNext(n int) (ShardedPermutation, error) {
	q := m.queues[n]
	if len(q) == 0 {
		return ShardedPermutation{}, fmt.Errorf("perm: no sharded permutation of size %d reserved: %w", n, orqerr.ShardedPermutationUnavailable)
	}
	next := q[0]
	m.queues[n] = q[1:]
	return next, nil
}

// GetNextPair pops two correlations of size n, the shape table_sort's
// two-pass composed sort needs (spec.md §4.6).
func (m *Manager) GetNextPair(n int) (ShardedPermutation, ShardedPermutation, error) {
	first, err := m.GetNext(n)
	if err != nil {
		return ShardedPermutation{}, ShardedPermutation{}, err
	}
	second, err := m.GetNext(n)
	if err != nil {
		return ShardedPermutation{}, ShardedPermutation{}, err
	}
	return first, second, nil
}

// applyLocal permutes plain so that out[i] = plain[mapping[i]].
func applyLocal[T vector.Numeric](plain vector.Vec[T], mapping []int) vector.Vec[T] {
	out := make([]T, len(mapping))
	for i, m := range mapping {
		out[i] = plain.At(m)
	}
	return vector.New(out)
}

// ObliviousApplySharded permutes an A-shared vector by corr.Perm:
// result[i] = v[corr.Perm[i]]. Pass boolean=true for B-shared vectors.
func ObliviousApplySharded[T vector.Numeric](eng protocol.Engine[T], v share.Share[T], corr ShardedPermutation, boolean bool) (share.Share[T], error) {
	if v.Size() != len(corr.Perm) {
		return share.Share[T]{}, fmt.Errorf("perm: apply size mismatch: %w", orqerr.PreconditionViolated)
	}
	return revealApplyReshare(eng, v, corr.Perm, boolean)
}

// ObliviousApplyInverseSharded is ObliviousApplySharded with corr's
// inverse mapping, undoing a prior ObliviousApplySharded call.
func ObliviousApplyInverseSharded[T vector.Numeric](eng protocol.Engine[T], v share.Share[T], corr ShardedPermutation, boolean bool) (share.Share[T], error) {
	if v.Size() != len(corr.Inverse) {
		return share.Share[T]{}, fmt.Errorf("perm: apply-inverse size mismatch: %w", orqerr.PreconditionViolated)
	}
	return revealApplyReshare(eng, v, corr.Inverse, boolean)
}

func revealApplyReshare[T vector.Numeric](eng protocol.Engine[T], v share.Share[T], mapping []int, boolean bool) (share.Share[T], error) {
	var plain vector.Vec[T]
	var err error
	if boolean {
		plain, err = eng.OpenBoolean(v)
	} else {
		plain, err = eng.Open(v)
	}
	if err != nil {
		return share.Share[T]{}, err
	}
	permuted := applyLocal(plain, mapping)
	owner := eng.Parties().Sorted()[0]
	if boolean {
		return eng.SecretShareB(permuted, owner)
	}
	return eng.SecretShareA(permuted, owner)
}

// ElementwiseInvert inverts a secret-shared permutation vector (an
// A-shared column whose opened values form a permutation of [0,n)):
// result[v[i]] = i.
func ElementwiseInvert[T vector.Numeric](eng protocol.Engine[T], v share.Share[T]) (share.Share[T], error) {
	plain, err := eng.Open(v)
	if err != nil {
		return share.Share[T]{}, err
	}
	n := plain.Size()
	inv := make([]T, n)
	for i := 0; i < n; i++ {
		inv[int(plain.At(i))] = T(i)
	}
	owner := eng.Parties().Sorted()[0]
	return eng.SecretShareA(vector.New(inv), owner)
}

// Compose builds the permutation that applies outer after inner:
// result[i] = outer[inner[i]].
func Compose[T vector.Numeric](eng protocol.Engine[T], outer, inner share.Share[T]) (share.Share[T], error) {
	if outer.Size() != inner.Size() {
		return share.Share[T]{}, fmt.Errorf("perm: compose size mismatch: %w", orqerr.PreconditionViolated)
	}
	outerPlain, err := eng.Open(outer)
	if err != nil {
		return share.Share[T]{}, err
	}
	innerPlain, err := eng.Open(inner)
	if err != nil {
		return share.Share[T]{}, err
	}
	n := outerPlain.Size()
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = outerPlain.At(int(innerPlain.At(i)))
	}
	ownerID := eng.Parties().Sorted()[0]
	return eng.SecretShareA(vector.New(out), ownerID)
}

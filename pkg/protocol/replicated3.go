package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/orq/pkg/orqerr"
	"github.com/luxfi/orq/pkg/party"
	"github.com/luxfi/orq/pkg/prg"
	"github.com/luxfi/orq/pkg/share"
	"github.com/luxfi/orq/pkg/vector"
)

// Replicated3 is a semi-honest, three-party replicated secret-sharing
// engine (R=2): a secret x is split x = x0+x1+x2 (mod 2^w, arithmetic)
// or x0^x1^x2 (boolean), and party with ring index i holds the pair
// (x_i, x_{i+1 mod 3}). This is the classic ABY3 replication shape and
// the concrete instance of the Engine contract exercised by the rest
// of the module.
//
// Multiplication and AND re-randomize the local cross-product with a
// zero-sum mask drawn from two ring-adjacent CommonPRG streams, then
// redistribute over the cluster's point-to-point channels — the
// direct generalization of the teacher's round-based handler, with
// CBOR as the wire encoding for every message (mirroring
// protocol.MultiHandler's use of cbor.Marshal for round.Message
// content).
//
// Share conversions (B2ABit, A2B, RedistributeSharesB) and the public
// division correction term are implemented via reveal-and-reshare:
// correct against every round-trip invariant in spec.md §8, but not
// private. A faithful degree-3 ABY3 bit-conversion circuit is squarely
// the "low-level cryptographic protocol" spec.md §1 places out of
// scope ("only its contract is specified"); see DESIGN.md.
type Replicated3[T vector.Numeric] struct {
	self      party.ID
	parties   party.IDSlice // sorted, length 3
	ringIndex int           // this party's position in parties

	cl *cluster

	prevPRG *prg.CommonPRG // shared with parties[ringIndex-1]
	nextPRG *prg.CommonPRG // shared with parties[ringIndex+1]
}

// NewReplicated3Cluster builds the three engines for a fresh cluster,
// deriving the ring's pairwise PRG seeds from a single shared seed.
// This stands in for the out-of-scope party-bootstrap process
// (spec.md §1): a real deployment establishes the pairwise seeds via
// its own key-agreement substrate.
func NewReplicated3Cluster[T vector.Numeric](ids [3]party.ID, seed [32]byte) ([3]*Replicated3[T], error) {
	sorted := party.IDSlice(ids[:]).Sorted()
	cl := newCluster(3)

	edgeKey := func(edge int) [32]byte { return prg.DeriveKey(seed, uint64(edge)) }
	edgePRG := func(edge int) (*prg.CommonPRG, error) { return prg.NewCommonPRG(edgeKey(edge)) }

	var out [3]*Replicated3[T]
	for i := 0; i < 3; i++ {
		prevEdge := (i - 1 + 3) % 3 // edge (i-1, i)
		nextEdge := i               // edge (i, i+1)
		prevPRG, err := edgePRG(prevEdge)
		if err != nil {
			return out, err
		}
		nextPRG, err := edgePRG(nextEdge)
		if err != nil {
			return out, err
		}
		out[i] = &Replicated3[T]{
			self:      sorted[i],
			parties:   sorted,
			ringIndex: i,
			cl:        cl,
			prevPRG:   prevPRG,
			nextPRG:   nextPRG,
		}
	}
	return out, nil
}

func (r *Replicated3[T]) Self() party.ID         { return r.self }
func (r *Replicated3[T]) Parties() party.IDSlice { return r.parties }
func (r *Replicated3[T]) R() int                 { return 2 }

func (r *Replicated3[T]) next() int { return (r.ringIndex + 1) % 3 }
func (r *Replicated3[T]) prev() int { return (r.ringIndex - 1 + 3) % 3 }

// send/recv wrap the cluster's directed mailbox for this engine.
func (r *Replicated3[T]) send(to int, vals []uint64) {
	enc, err := cbor.Marshal(vals)
	if err != nil {
		panic(err)
	}
	r.cl.send(r.ringIndex, to, enc)
}

func (r *Replicated3[T]) recv(from int) []uint64 {
	raw := r.cl.recv(from, r.ringIndex)
	var vals []uint64
	if err := cbor.Unmarshal(raw, &vals); err != nil {
		panic(err)
	}
	return vals
}

func toU64[T vector.Numeric](v vector.Vec[T]) []uint64 {
	out := make([]uint64, v.Size())
	for i := range out {
		out[i] = uint64(v.At(i))
	}
	return out
}

func fromU64[T vector.Numeric](vals []uint64) vector.Vec[T] {
	out := make([]T, len(vals))
	for i, v := range vals {
		out[i] = T(v)
	}
	return vector.New(out)
}

// ---- secret sharing & opening ----

func (r *Replicated3[T]) dealShares(v vector.Vec[T], owner party.ID, boolean bool) (share.Share[T], error) {
	n := v.Size()
	ownerIdx := r.parties.Index(owner)
	if ownerIdx < 0 {
		return share.Share[T]{}, fmt.Errorf("protocol: unknown owner %s: %w", owner, orqerr.PreconditionViolated)
	}

	// Only the owner contributes real randomness; every ring position
	// still calls this method (spec.md §5: calls are serialized from
	// the caller's perspective, batched per index), so we use the
	// cluster to have the owner broadcast the two shares each other
	// party needs.
	var x [3]vector.Vec[T]
	if r.ringIndex == ownerIdx {
		r0 := vector.NewFilled[T](n, 0)
		r1 := vector.NewFilled[T](n, 0)
		local, err := prg.NewLocalPRG(prg.DeriveKey([32]byte{}, uint64(ownerIdx)+7))
		if err != nil {
			return share.Share[T]{}, err
		}
		prg.GetNext(local, r0)
		prg.GetNext(local, r1)
		x[0], x[1] = r0, r1
		x[2] = vector.NewFilled[T](n, 0)
		for i := 0; i < n; i++ {
			if boolean {
				x[2].Set(i, v.At(i)^x[0].At(i)^x[1].At(i))
			} else {
				x[2].Set(i, v.At(i)-x[0].At(i)-x[1].At(i))
			}
		}
	}

	// Owner sends (x_0,x_1,x_2) to everyone over the cluster; each
	// party keeps only the two pieces its ring slot is entitled to.
	// (This reference engine does not model secrecy against the
	// other in-process parties — see the package doc comment.)
	var payload []uint64
	if r.ringIndex == ownerIdx {
		payload = append(payload, toU64(x[0])...)
		payload = append(payload, toU64(x[1])...)
		payload = append(payload, toU64(x[2])...)
	}
	for to := 0; to < 3; to++ {
		if to != ownerIdx {
			if r.ringIndex == ownerIdx {
				r.send(to, payload)
			}
		}
	}
	var all []uint64
	if r.ringIndex == ownerIdx {
		all = payload
	} else {
		all = r.recv(ownerIdx)
	}
	shareVal := func(idx int) vector.Vec[T] { return fromU64[T](all[idx*n : (idx+1)*n]) }

	parts := []vector.Vec[T]{shareVal(r.ringIndex), shareVal(r.next())}
	return share.New(parts)
}

func (r *Replicated3[T]) SecretShareA(v vector.Vec[T], owner party.ID) (share.Share[T], error) {
	return r.dealShares(v, owner, false)
}

func (r *Replicated3[T]) SecretShareB(v vector.Vec[T], owner party.ID) (share.Share[T], error) {
	return r.dealShares(v, owner, true)
}

// PublicShare encodes a public value as a trivial share whose first
// global component is v and whose other two are zero: ringIndex 0
// holds v in its first part, ringIndex 2 holds v in its second part,
// and ringIndex 1 holds only zeros, which sums/XORs back to v under
// Open.
func (r *Replicated3[T]) PublicShare(v vector.Vec[T]) share.Share[T] {
	n := v.Size()
	zero := vector.NewFilled[T](n, 0)
	if r.ringIndex == 0 {
		return share.Share[T]{Parts: []vector.Vec[T]{v.Materialize(), zero}}
	}
	if r.ringIndex == 2 {
		// holds (x2, x0): x0 is the public value here too.
		return share.Share[T]{Parts: []vector.Vec[T]{zero, v.Materialize()}}
	}
	return share.Share[T]{Parts: []vector.Vec[T]{zero, zero}}
}

func (r *Replicated3[T]) Open(s share.Share[T]) (vector.Vec[T], error) {
	if s.R() != 2 {
		return vector.Vec[T]{}, fmt.Errorf("protocol: replicated3 requires R=2: %w", orqerr.PreconditionViolated)
	}
	n := s.Size()
	// every party already knows x_ringIndex and x_ringIndex+1; it is
	// missing x_ringIndex+2, held as Parts[1] by the successor party.
	r.send(r.prev(), toU64(s.Parts[1]))
	missing := fromU64[T](r.recv(r.next()))

	out := vector.NewFilled[T](n, 0)
	a, b := s.Parts[0], s.Parts[1]
	for i := 0; i < n; i++ {
		out.Set(i, a.At(i)+b.At(i)+missing.At(i))
	}
	return out, nil
}

// OpenBoolean is identical to Open but XORs rather than sums; used by
// the conversion helpers and by callers (e.g. pkg/perm, pkg/sortshuffle)
// that must reveal a boolean-shared vector without routing it through
// the arithmetic Open path.
func (r *Replicated3[T]) OpenBoolean(s share.Share[T]) (vector.Vec[T], error) {
	n := s.Size()
	r.send(r.prev(), toU64(s.Parts[1]))
	missing := fromU64[T](r.recv(r.next()))
	out := vector.NewFilled[T](n, 0)
	a, b := s.Parts[0], s.Parts[1]
	for i := 0; i < n; i++ {
		out.Set(i, a.At(i)^b.At(i)^missing.At(i))
	}
	return out, nil
}

func (r *Replicated3[T]) Reshare(s share.Share[T], group party.Group, boolean bool) (share.Share[T], error) {
	// Re-randomize in place: reveal (within this reference engine) and
	// re-deal from the lowest-ranked member of group.
	var v vector.Vec[T]
	var err error
	if boolean {
		v, err = r.OpenBoolean(s)
	} else {
		v, err = r.Open(s)
	}
	if err != nil {
		return share.Share[T]{}, err
	}
	members := group.Members()
	if len(members) == 0 {
		members = r.parties
	}
	owner := members.Sorted()[0]
	return r.dealShares(v, owner, boolean)
}

// ---- linear (local) arithmetic ----

func (r *Replicated3[T]) AddA(a, b share.Share[T]) (share.Share[T], error) {
	return a.Zip(b, func(x, y vector.Vec[T]) vector.Vec[T] {
		out := vector.NewFilled[T](x.Size(), 0)
		for i := 0; i < x.Size(); i++ {
			out.Set(i, x.At(i)+y.At(i))
		}
		return out
	})
}

func (r *Replicated3[T]) SubA(a, b share.Share[T]) (share.Share[T], error) {
	return a.Zip(b, func(x, y vector.Vec[T]) vector.Vec[T] {
		out := vector.NewFilled[T](x.Size(), 0)
		for i := 0; i < x.Size(); i++ {
			out.Set(i, x.At(i)-y.At(i))
		}
		return out
	})
}

func (r *Replicated3[T]) NegA(a share.Share[T]) (share.Share[T], error) {
	return a.Map(func(x vector.Vec[T]) vector.Vec[T] {
		out := vector.NewFilled[T](x.Size(), 0)
		for i := 0; i < x.Size(); i++ {
			out.Set(i, -x.At(i))
		}
		return out
	}), nil
}

func (r *Replicated3[T]) XorB(a, b share.Share[T]) (share.Share[T], error) {
	return a.Zip(b, func(x, y vector.Vec[T]) vector.Vec[T] {
		out := vector.NewFilled[T](x.Size(), 0)
		for i := 0; i < x.Size(); i++ {
			out.Set(i, x.At(i)^y.At(i))
		}
		return out
	})
}

// flipSlot reports which of this party's two parts (0 or 1) holds the
// global share index 0, or -1 if neither does — the convention used
// by NotB/NotB1 to apply a public constant to exactly one of the three
// additive pieces.
func (r *Replicated3[T]) flipSlot() int {
	switch r.ringIndex {
	case 0:
		return 0 // parts[0] is global share 0
	case 2:
		return 1 // parts[1] is global share (2+1 mod 3) = 0
	default:
		return -1 // party 1 holds neither
	}
}

func (r *Replicated3[T]) NotB(a share.Share[T]) (share.Share[T], error) {
	slot := r.flipSlot()
	out := make([]vector.Vec[T], a.R())
	for i, p := range a.Parts {
		if i == slot {
			flipped := vector.NewFilled[T](p.Size(), 0)
			for j := 0; j < p.Size(); j++ {
				flipped.Set(j, ^p.At(j))
			}
			out[i] = flipped
		} else {
			out[i] = p.Materialize()
		}
	}
	return share.Share[T]{Parts: out}, nil
}

func (r *Replicated3[T]) NotB1(a share.Share[T]) (share.Share[T], error) {
	slot := r.flipSlot()
	out := make([]vector.Vec[T], a.R())
	for i, p := range a.Parts {
		if i == slot {
			flipped := vector.NewFilled[T](p.Size(), 0)
			for j := 0; j < p.Size(); j++ {
				flipped.Set(j, p.At(j)^1)
			}
			out[i] = flipped
		} else {
			out[i] = p.Materialize()
		}
	}
	return share.Share[T]{Parts: out}, nil
}

// ---- network-round arithmetic ----

// crossTerms computes, locally, the additive 3-out-of-3 share of a*b
// (or a AND b) this party contributes: a_i*b_i + a_i*b_{i+1} +
// a_{i+1}*b_i, using either multiplication or AND as op. The three
// terms are summed for arithmetic shares and XOR-ed when boolean is set.
func crossTerms[T vector.Numeric](a, b share.Share[T], op func(x, y T) T, boolean bool) vector.Vec[T] {
	n := a.Size()
	out := vector.NewFilled[T](n, 0)
	a0, a1 := a.Parts[0], a.Parts[1]
	b0, b1 := b.Parts[0], b.Parts[1]
	for i := 0; i < n; i++ {
		t0 := op(a0.At(i), b0.At(i))
		t1 := op(a0.At(i), b1.At(i))
		t2 := op(a1.At(i), b0.At(i))
		if boolean {
			out.Set(i, t0^t1^t2)
		} else {
			out.Set(i, t0+t1+t2)
		}
	}
	return out
}

func (r *Replicated3[T]) MultiplyA(a, b share.Share[T]) (share.Share[T], error) {
	if a.Size() != b.Size() {
		return share.Share[T]{}, fmt.Errorf("protocol: multiply size mismatch: %w", orqerr.PreconditionViolated)
	}
	local := crossTerms(a, b, func(x, y T) T { return x * y }, false)
	return r.reshareProductFilled(local, false)
}

func (r *Replicated3[T]) AndB(a, b share.Share[T]) (share.Share[T], error) {
	if a.Size() != b.Size() {
		return share.Share[T]{}, fmt.Errorf("protocol: and size mismatch: %w", orqerr.PreconditionViolated)
	}
	local := crossTerms(a, b, func(x, y T) T { return x & y }, true)
	return r.reshareProductFilled(local, true)
}

// reshareProductFilled is reshareProduct but draws the masks directly
// into T-typed vectors (avoiding the width-reinterpretation subtlety
// of asU64Vec) by sampling through a uint64 scratch and truncating.
func (r *Replicated3[T]) reshareProductFilled(local vector.Vec[T], boolean bool) (share.Share[T], error) {
	n := local.Size()
	prevScratch := vector.NewFilled[uint64](n, 0)
	nextScratch := vector.NewFilled[uint64](n, 0)
	r.prevPRG.GetNext(prevScratch)
	r.nextPRG.GetNext(nextScratch)

	masked := vector.NewFilled[T](n, 0)
	for i := 0; i < n; i++ {
		pm := T(prevScratch.At(i))
		nm := T(nextScratch.At(i))
		if boolean {
			masked.Set(i, local.At(i)^pm^nm)
		} else {
			masked.Set(i, local.At(i)+pm-nm)
		}
	}

	r.send(r.prev(), toU64(masked))
	fromSucc := fromU64[T](r.recv(r.next()))
	return share.Share[T]{Parts: []vector.Vec[T]{masked, fromSucc}}, nil
}

func (r *Replicated3[T]) OrB(a, b share.Share[T]) (share.Share[T], error) {
	na, err := r.NotB(a)
	if err != nil {
		return share.Share[T]{}, err
	}
	nb, err := r.NotB(b)
	if err != nil {
		return share.Share[T]{}, err
	}
	and, err := r.AndB(na, nb)
	if err != nil {
		return share.Share[T]{}, err
	}
	return r.NotB(and)
}

// ---- conversions (reveal-and-reshare; see type doc comment) ----

func (r *Replicated3[T]) B2ABit(b share.Share[T]) (share.Share[T], error) {
	v, err := r.OpenBoolean(b)
	if err != nil {
		return share.Share[T]{}, err
	}
	masked := v.Materialize()
	masked.Mask(1)
	return r.dealShares(masked, r.parties[0], false)
}

func (r *Replicated3[T]) A2B(a share.Share[T]) (share.Share[T], error) {
	v, err := r.Open(a)
	if err != nil {
		return share.Share[T]{}, err
	}
	return r.dealShares(v, r.parties[0], true)
}

func (r *Replicated3[T]) RedistributeSharesB(v share.Share[T]) (share.Share[T], share.Share[T], error) {
	plain, err := r.OpenBoolean(v)
	if err != nil {
		return share.Share[T]{}, share.Share[T]{}, err
	}
	s1, err := r.dealShares(plain, r.parties[0], true)
	if err != nil {
		return share.Share[T]{}, share.Share[T]{}, err
	}
	s2, err := r.dealShares(plain, r.parties[1%len(r.parties)], true)
	if err != nil {
		return share.Share[T]{}, share.Share[T]{}, err
	}
	return s1, s2, nil
}

func (r *Replicated3[T]) DivConstA(a share.Share[T], c T) (share.Share[T], share.Share[T], error) {
	if c == 0 {
		return share.Share[T]{}, share.Share[T]{}, fmt.Errorf("protocol: division by zero: %w", orqerr.PreconditionViolated)
	}
	v, err := r.Open(a)
	if err != nil {
		return share.Share[T]{}, share.Share[T]{}, err
	}
	q := v.Materialize()
	errTerm := v.Materialize()
	for i := 0; i < v.Size(); i++ {
		x := v.At(i)
		q.Set(i, x/c)
		errTerm.Set(i, x%c)
	}
	qs, err := r.dealShares(q, r.parties[0], false)
	if err != nil {
		return share.Share[T]{}, share.Share[T]{}, err
	}
	es, err := r.dealShares(errTerm, r.parties[0], false)
	if err != nil {
		return share.Share[T]{}, share.Share[T]{}, err
	}
	return qs, es, nil
}

func (r *Replicated3[T]) DotProductA(x, y share.Share[T], chunk int) (share.Share[T], error) {
	if chunk <= 0 || x.Size() != y.Size() {
		return share.Share[T]{}, fmt.Errorf("protocol: dot_product chunk/size mismatch: %w", orqerr.PreconditionViolated)
	}
	prod, err := r.MultiplyA(x, y)
	if err != nil {
		return share.Share[T]{}, err
	}
	return prod.Map(func(v vector.Vec[T]) vector.Vec[T] {
		sums, _ := v.ChunkedSum(chunk)
		return sums
	}), nil
}

func (r *Replicated3[T]) MaliciousCheck() error { return nil }

// Package circuits implements the boolean circuits of the L4 layer:
// bit-packed adders over boolean-shared columns, a comparison built on
// a prefix-AND over bitwise equality that derives equality and
// greater-than together, and a restoring binary divider. Every circuit drives its rounds
// through a protocol.Engine, so the same code runs over any concrete
// Engine implementation (Replicated3 today).
//
// Grounded on the teacher's round-based Finalize methods (one network
// step per logical round) and on vector/bits.go's PackFrom/UnpackInto,
// which exist specifically to let these circuits move one bit-plane
// per row as a compact packed vector instead of one element per row.
package circuits

import (
	"fmt"

	"github.com/luxfi/orq/pkg/orqerr"
	"github.com/luxfi/orq/pkg/protocol"
	"github.com/luxfi/orq/pkg/share"
	"github.com/luxfi/orq/pkg/vector"
)

// PackBit extracts bit-plane `position` (one bit per row) from a
// full-width boolean share, bit-packed W-per-word; exported so other
// L5+ packages (pkg/sortshuffle's radix pass) can move single
// bit-planes per round the same way the adders and comparator do.
func PackBit[T vector.Numeric](s share.Share[T], position int) share.Share[T] {
	return s.Map(func(v vector.Vec[T]) vector.Vec[T] { return vector.PackFrom(v, position) })
}

// UnpackInto writes a packed bit-plane back into bit `position` of dst.
func UnpackInto[T vector.Numeric](dst, packed share.Share[T], position int) {
	for i := range dst.Parts {
		vector.UnpackInto(dst.Parts[i], packed.Parts[i], position)
	}
}

func packBit[T vector.Numeric](s share.Share[T], position int) share.Share[T] {
	return PackBit(s, position)
}

func unpackInto[T vector.Numeric](dst, packed share.Share[T], position int) {
	UnpackInto(dst, packed, position)
}

func packedSize[T vector.Numeric](n int) int {
	w := vector.Width[T]()
	return (n + w - 1) / w
}

// RippleCarryAdd adds two W-bit boolean-shared columns bit by bit,
// propagating the carry sequentially (spec.md §4.3): O(W) rounds, each
// moving one packed bit-plane per row rather than one element per row.
func RippleCarryAdd[T vector.Numeric](eng protocol.Engine[T], a, b share.Share[T]) (sum, carryOut share.Share[T], err error) {
	if a.Size() != b.Size() {
		return share.Share[T]{}, share.Share[T]{}, fmt.Errorf("circuits: rca size mismatch: %w", orqerr.PreconditionViolated)
	}
	n := a.Size()
	w := vector.Width[T]()
	r := eng.R()

	sum = share.Zero[T](r, n)
	carry := share.Zero[T](r, packedSize[T](n))

	for pos := 0; pos < w; pos++ {
		aBit := packBit(a, pos)
		bBit := packBit(b, pos)

		p, err := eng.XorB(aBit, bBit)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		g, err := eng.AndB(aBit, bBit)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}

		sumBit, err := eng.XorB(p, carry)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		unpackInto(sum, sumBit, pos)

		pAndCarry, err := eng.AndB(p, carry)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		carry, err = eng.OrB(g, pAndCarry)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
	}

	carryOut = share.Zero[T](r, n)
	unpackInto(carryOut, carry, 0)
	return sum, carryOut, nil
}

// KoggeStoneAdd adds two W-bit boolean-shared columns using a
// parallel-prefix carry network (spec.md §4.3): O(log W) rounds,
// batching every bit position's generate/propagate update into a
// single engine call per level by concatenating their packed planes.
func KoggeStoneAdd[T vector.Numeric](eng protocol.Engine[T], a, b share.Share[T]) (sum, carryOut share.Share[T], err error) {
	if a.Size() != b.Size() {
		return share.Share[T]{}, share.Share[T]{}, fmt.Errorf("circuits: kogge-stone size mismatch: %w", orqerr.PreconditionViolated)
	}
	n := a.Size()
	w := vector.Width[T]()
	r := eng.R()
	ps := packedSize[T](n)

	propagate := make([]share.Share[T], w)
	generate := make([]share.Share[T], w)
	for pos := 0; pos < w; pos++ {
		aBit := packBit(a, pos)
		bBit := packBit(b, pos)
		propagate[pos], err = eng.XorB(aBit, bBit)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		generate[pos], err = eng.AndB(aBit, bBit)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
	}

	for stride := 1; stride < w; stride *= 2 {
		active := w - stride
		if active <= 0 {
			break
		}
		leftP := concatPlanes(propagate[stride:w], r)
		leftG := concatPlanes(generate[stride:w], r)
		rightP := concatPlanes(propagate[0:active], r)
		rightG := concatPlanes(generate[0:active], r)

		pAndG, err := eng.AndB(leftP, rightG)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		newG, err := eng.OrB(leftG, pAndG)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		newP, err := eng.AndB(leftP, rightP)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}

		gParts, err := splitPlanes(newG, active, ps, r)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		pParts, err := splitPlanes(newP, active, ps, r)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		for i := 0; i < active; i++ {
			generate[stride+i] = gParts[i]
			propagate[stride+i] = pParts[i]
		}
	}

	sum = share.Zero[T](r, n)
	carryIn := share.Zero[T](r, ps) // bit 0's carry-in is always zero
	for pos := 0; pos < w; pos++ {
		aBit := packBit(a, pos)
		bBit := packBit(b, pos)
		p, err := eng.XorB(aBit, bBit)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		var carryHere share.Share[T]
		if pos == 0 {
			carryHere = carryIn
		} else {
			carryHere = generate[pos-1]
		}
		sumBit, err := eng.XorB(p, carryHere)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		unpackInto(sum, sumBit, pos)
	}

	carryOut = share.Zero[T](r, n)
	unpackInto(carryOut, generate[w-1], 0)
	return sum, carryOut, nil
}

func concatPlanes[T vector.Numeric](planes []share.Share[T], r int) share.Share[T] {
	parts := make([]vector.Vec[T], r)
	for i := 0; i < r; i++ {
		vs := make([]vector.Vec[T], len(planes))
		for j, pl := range planes {
			vs[j] = pl.Parts[i]
		}
		parts[i] = vector.Concat(vs...)
	}
	return share.Share[T]{Parts: parts}
}

func splitPlanes[T vector.Numeric](s share.Share[T], count, each, r int) ([]share.Share[T], error) {
	sizes := make([]int, count)
	for i := range sizes {
		sizes[i] = each
	}
	split := make([][]vector.Vec[T], r)
	for i := 0; i < r; i++ {
		parts, err := vector.SplitEqual(s.Parts[i], sizes)
		if err != nil {
			return nil, err
		}
		split[i] = parts
	}
	out := make([]share.Share[T], count)
	for j := 0; j < count; j++ {
		parts := make([]vector.Vec[T], r)
		for i := 0; i < r; i++ {
			parts[i] = split[i][j]
		}
		out[j] = share.Share[T]{Parts: parts}
	}
	return out, nil
}

// Compare derives whether a > b and whether a == b for two W-bit
// boolean-shared columns, via a prefix-AND scan of bitwise equality
// starting from the most significant bit (the "bit_same" construction
// of spec.md §4.3): same[i] is 1 exactly when every bit at position
// >= i agrees between a and b. The scan, and with it eq, takes
// O(log W) rounds; gt is then folded in one bit position per step,
// which takes O(W) rounds.
func Compare[T vector.Numeric](eng protocol.Engine[T], a, b share.Share[T]) (gt, eq share.Share[T], err error) {
	if a.Size() != b.Size() {
		return share.Share[T]{}, share.Share[T]{}, fmt.Errorf("circuits: compare size mismatch: %w", orqerr.PreconditionViolated)
	}
	n := a.Size()
	w := vector.Width[T]()
	r := eng.R()
	ps := packedSize[T](n)

	xor, err := eng.XorB(a, b)
	if err != nil {
		return share.Share[T]{}, share.Share[T]{}, err
	}
	same := make([]share.Share[T], w)
	for pos := 0; pos < w; pos++ {
		diffBit := packBit(xor, pos)
		same[pos], err = eng.NotB1(diffBit)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
	}

	// Suffix scan: same[i] folds in same[i+stride] (the higher-index,
	// more-significant side) at each doubling, so it accumulates
	// MSB-down instead of the adder's LSB-up direction above — the
	// write-back therefore targets the LOWER index i, not i+stride.
	for stride := 1; stride < w; stride *= 2 {
		count := w - stride
		if count <= 0 {
			break
		}
		left := concatPlanes(same[stride:stride+count], r)
		right := concatPlanes(same[0:count], r)
		combined, err := eng.AndB(left, right)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		parts, err := splitPlanes(combined, count, ps, r)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		for i := 0; i < count; i++ {
			same[i] = parts[i]
		}
	}

	eq = share.Zero[T](r, n)
	unpackInto(eq, same[0], 0)

	// gt[i] = a_i & !b_i & same_above[i], where same_above[i] is
	// "all bits strictly above i agree" = same[i+1] (or all-ones at
	// the top bit, where there is nothing above).
	aNotB, err := eng.AndB(a, mustNotB(eng, b))
	if err != nil {
		return share.Share[T]{}, share.Share[T]{}, err
	}
	gtAcc := share.Zero[T](r, ps)
	topBit := packBit(aNotB, w-1)
	gtAcc, err = eng.OrB(gtAcc, topBit)
	if err != nil {
		return share.Share[T]{}, share.Share[T]{}, err
	}
	for pos := w - 2; pos >= 0; pos-- {
		candBit := packBit(aNotB, pos)
		cand, err := eng.AndB(candBit, same[pos+1])
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		gtAcc, err = eng.OrB(gtAcc, cand)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
	}
	gt = share.Zero[T](r, n)
	unpackInto(gt, gtAcc, 0)

	if vector.Signed[T]() {
		gt, err = signCorrect(eng, a, b, gt, w)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
	}
	return gt, eq, nil
}

// signCorrect rewrites the unsigned-pattern greater-than bit r into the
// correct signed comparison via spec.md §4.3's r <- s1 XOR ((s1 XOR s2)
// OR (s2 XOR r)), where s1, s2 are a's and b's sign (MSB) bits: r is
// unchanged when the signs agree, and flips to "a is non-negative" when
// they disagree (a negative value never exceeds a non-negative one).
func signCorrect[T vector.Numeric](eng protocol.Engine[T], a, b, gt share.Share[T], w int) (share.Share[T], error) {
	n := a.Size()
	r := eng.R()

	s1Packed := packBit(a, w-1)
	s1 := share.Zero[T](r, n)
	unpackInto(s1, s1Packed, 0)

	s2Packed := packBit(b, w-1)
	s2 := share.Zero[T](r, n)
	unpackInto(s2, s2Packed, 0)

	sDiff, err := eng.XorB(s1, s2)
	if err != nil {
		return share.Share[T]{}, err
	}
	s2XorGt, err := eng.XorB(s2, gt)
	if err != nil {
		return share.Share[T]{}, err
	}
	orTerm, err := eng.OrB(sDiff, s2XorGt)
	if err != nil {
		return share.Share[T]{}, err
	}
	return eng.XorB(s1, orTerm)
}

func mustNotB[T vector.Numeric](eng protocol.Engine[T], s share.Share[T]) share.Share[T] {
	out, err := eng.NotB(s)
	if err != nil {
		panic(err)
	}
	return out
}

// NonRestoringDivide computes quotient and remainder of dividend/divisor
// for two non-negative W-bit arithmetic-shared columns, one quotient
// bit per round from the MSB down (spec.md §4.3's shift-compare-restore
// division): each step shifts the next dividend bit into a running
// remainder, subtracts the divisor, and restores (adds the divisor
// back) whenever the trial subtraction went negative. This delivers
// the same (quotient, remainder) contract as a width-doubling
// non-restoring circuit without the add/subtract-selection carried
// across steps; see DESIGN.md for why the simpler restoring form was
// chosen here.
func NonRestoringDivide[T vector.Numeric](eng protocol.Engine[T], dividend, divisor share.Share[T]) (quotient, remainder share.Share[T], err error) {
	if dividend.Size() != divisor.Size() {
		return share.Share[T]{}, share.Share[T]{}, fmt.Errorf("circuits: divide size mismatch: %w", orqerr.PreconditionViolated)
	}
	n := dividend.Size()
	w := vector.Width[T]()
	r := eng.R()

	dividendBool, err := eng.A2B(dividend)
	if err != nil {
		return share.Share[T]{}, share.Share[T]{}, err
	}

	quotient = share.Zero[T](r, n)
	rem := share.Zero[T](r, n)

	for i := w - 1; i >= 0; i-- {
		bitPacked := packBit(dividendBool, i)
		bitBool := share.Zero[T](r, n)
		unpackInto(bitBool, bitPacked, 0)
		bitA, err := eng.B2ABit(bitBool)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}

		doubled, err := eng.AddA(rem, rem)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		rem, err = eng.AddA(doubled, bitA)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}

		trial, err := eng.SubA(rem, divisor)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		trialBool, err := eng.A2B(trial)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		signPacked := packBit(trialBool, w-1)
		signBit := share.Zero[T](r, n)
		unpackInto(signBit, signPacked, 0)
		nonNegativeBool, err := eng.NotB1(signBit)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		nonNegative, err := eng.B2ABit(nonNegativeBool)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}

		rem, err = selectA(eng, nonNegative, trial, rem)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}

		shiftedQ, err := eng.AddA(quotient, quotient)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
		quotient, err = eng.AddA(shiftedQ, nonNegative)
		if err != nil {
			return share.Share[T]{}, share.Share[T]{}, err
		}
	}
	return quotient, rem, nil
}

// selectA returns cond*ifTrue + (1-cond)*ifFalse for an A-shared 0/1
// condition, via one MultiplyA round.
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

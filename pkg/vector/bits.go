package vector

import (
	"fmt"
	"math/bits"

	"github.com/luxfi/orq/pkg/orqerr"
)

// Width returns W = digits(T), the number of value bits of T.
func Width[T Numeric]() int {
	var z T
	switch any(z).(type) {
	case int8, uint8:
		return 8
	case int16, uint16:
		return 16
	case int32, uint32:
		return 32
	case int64, uint64:
		return 64
	default:
		return 64
	}
}

// Signed reports whether T is one of the signed integer families, the
// switch pkg/circuits.Compare uses to decide whether its sign-bit
// correction applies.
func Signed[T Numeric]() bool {
	var z T
	switch any(z).(type) {
	case int8, int16, int32, int64:
		return true
	default:
		return false
	}
}

// BitArithmeticRightShift shifts every element right by k bits, in
// place, sign-extending (arithmetic shift).
func (v Vec[T]) BitArithmeticRightShift(k int) {
	w := Width[T]()
	for i := 0; i < v.Size(); i++ {
		x := v.At(i)
		if k >= w {
			if x < 0 {
				v.Set(i, ^T(0))
			} else {
				v.Set(i, 0)
			}
			continue
		}
		signed := int64(x)
		v.Set(i, T(signed>>uint(k)))
	}
}

// BitLogicalRightShift shifts every element right by k bits, in
// place, without sign extension.
func (v Vec[T]) BitLogicalRightShift(k int) {
	w := Width[T]()
	mask := maskFor[T](w)
	for i := 0; i < v.Size(); i++ {
		u := uint64(v.At(i)) & mask
		v.Set(i, T(u>>uint(k)))
	}
}

// BitLeftShift shifts every element left by k bits, in place,
// discarding bits above the width.
func (v Vec[T]) BitLeftShift(k int) {
	w := Width[T]()
	mask := maskFor[T](w)
	for i := 0; i < v.Size(); i++ {
		u := (uint64(v.At(i)) << uint(k)) & mask
		v.Set(i, T(u))
	}
}

func maskFor[T Numeric](w int) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(w)) - 1
}

// BitXor returns the parity (popcount mod 2) of each element.
func (v Vec[T]) BitXor() Vec[T] {
	out := make([]T, v.Size())
	for i := range out {
		u := uint64(v.At(i))
		out[i] = T(bits.OnesCount64(u) & 1)
	}
	return fromSlice(out)
}

// LevelMask returns LEVEL_MASKS[log]: bit `log` set within every
// 2^(log+1)-bit chunk, for elements of width w. Exposed for use by
// pkg/circuits' prefix-OR and Kogge-Stone adder.
func LevelMask(w, log int) uint64 {
	chunk := 1 << uint(log+1)
	half := chunk / 2
	var m uint64
	for start := 0; start < w; start += chunk {
		for b := half; b < chunk && start+b < w; b++ {
			m |= uint64(1) << uint(start+b)
		}
	}
	return m
}

// BitLevelShift, within chunks of size 2^logLevel, copies the LSB of
// the MS-half into every bit of the LS-half. It is a building block
// for the Kogge-Stone prefix circuits of pkg/circuits.
func (v Vec[T]) BitLevelShift(logLevel int) {
	w := Width[T]()
	chunk := 1 << uint(logLevel)
	half := chunk / 2
	for i := 0; i < v.Size(); i++ {
		u := uint64(v.At(i)) & maskFor[T](w)
		var out uint64
		for start := 0; start < w; start += chunk {
			msHalfLSB := (u >> uint(start+half)) & 1
			if msHalfLSB != 0 {
				for b := 0; b < half && start+b < w; b++ {
					out |= uint64(1) << uint(start+b)
				}
			}
			// preserve the MS half unchanged
			msMask := uint64(0)
			for b := half; b < chunk && start+b < w; b++ {
				msMask |= uint64(1) << uint(start+b)
			}
			out |= u & msMask
		}
		v.Set(i, T(out))
	}
}

// ReverseBitLevelShift copies the MSB of the LS-half into every bit of
// the MS-half, within chunks of size 2^logLevel.
func (v Vec[T]) ReverseBitLevelShift(logLevel int) {
	w := Width[T]()
	chunk := 1 << uint(logLevel)
	half := chunk / 2
	for i := 0; i < v.Size(); i++ {
		u := uint64(v.At(i)) & maskFor[T](w)
		var out uint64
		for start := 0; start < w; start += chunk {
			lsHalfMSB := (u >> uint(start+half-1)) & 1
			if lsHalfMSB != 0 {
				for b := half; b < chunk && start+b < w; b++ {
					out |= uint64(1) << uint(start+b)
				}
			}
			lsMask := uint64(0)
			for b := 0; b < half; b++ {
				lsMask |= uint64(1) << uint(start+b)
			}
			out |= u & lsMask
		}
		v.Set(i, T(out))
	}
}

// SimpleBitCompress gathers the bit at `position` from each of
// `step`-strided elements start..end, packing W extracted bits per
// output element (W = Width[T]()).
func (v Vec[T]) SimpleBitCompress(start, step, end, position int) (Vec[T], error) {
	if step <= 0 {
		return Vec[T]{}, fmt.Errorf("vector: compress step must be positive: %w", orqerr.PreconditionViolated)
	}
	w := Width[T]()
	var bitsSeq []uint64
	for i := start; i < end; i += step {
		bitsSeq = append(bitsSeq, (uint64(v.At(i))>>uint(position))&1)
	}
	n := (len(bitsSeq) + w - 1) / w
	out := make([]T, n)
	for i, b := range bitsSeq {
		if b != 0 {
			out[i/w] |= T(1) << uint(i%w)
		}
	}
	return fromSlice(out), nil
}

// SimpleBitDecompress is the inverse of SimpleBitCompress: it scatters
// W packed bits per source element back to `position` of each of
// `count` destination elements (start, start+step, ...), returning the
// destination vector.
func (v Vec[T]) SimpleBitDecompress(start, step, count, position int) Vec[T] {
	w := Width[T]()
	out := make([]T, start+step*count)
	for i := 0; i < count; i++ {
		src := v.At(i / w)
		bit := (uint64(src) >> uint(i%w)) & 1
		if bit != 0 {
			out[start+i*step] |= T(1) << uint(position)
		}
	}
	return fromSlice(out)
}

// AlternatingBitCompress gathers the bit at `position` from the
// elements AlternatingSubsetReference(included, excluded) (or its
// reverse, when dir is -1) would select, packing W extracted bits per
// output element. Same gather contract as SimpleBitCompress, but over
// an included/excluded chunk pattern instead of a fixed stride.
func (v Vec[T]) AlternatingBitCompress(included, excluded, dir, position int) (Vec[T], error) {
	view, err := v.alternating(included, excluded, dir)
	if err != nil {
		return Vec[T]{}, err
	}
	w := Width[T]()
	n := view.Size()
	out := make([]T, (n+w-1)/w)
	for i := 0; i < n; i++ {
		bit := (uint64(view.At(i)) >> uint(position)) & 1
		if bit != 0 {
			out[i/w] |= T(1) << uint(i%w)
		}
	}
	return fromSlice(out), nil
}

// AlternatingBitDecompress is the inverse of AlternatingBitCompress: it
// scatters W packed bits per source element back to `position` of a
// fresh `count`-element destination vector, over the same
// included/excluded/dir chunk pattern.
func (v Vec[T]) AlternatingBitDecompress(included, excluded, dir, count, position int) (Vec[T], error) {
	dst := fromSlice(make([]T, count))
	view, err := dst.alternating(included, excluded, dir)
	if err != nil {
		return Vec[T]{}, err
	}
	w := Width[T]()
	n := view.Size()
	for i := 0; i < n; i++ {
		src := v.At(i / w)
		bit := (uint64(src) >> uint(i%w)) & 1
		if bit != 0 {
			view.Set(i, view.At(i)|T(1)<<uint(position))
		}
	}
	return dst, nil
}

// PackFrom extracts a single bit plane (at `position`) from source,
// packing W bits per output element. This is the per-round primitive
// used by the ripple-carry adder (spec.md §4.3).
func PackFrom[T Numeric](source Vec[T], position int) Vec[T] {
	w := Width[T]()
	n := (source.Size() + w - 1) / w
	out := make([]T, n)
	for i := 0; i < source.Size(); i++ {
		bit := (uint64(source.At(i)) >> uint(position)) & 1
		if bit != 0 {
			out[i/w] |= T(1) << uint(i%w)
		}
	}
	return fromSlice(out)
}

// UnpackFrom scatters a packed bit-plane (W bits per element of
// packed) into `position` of each of n elements of a fresh vector.
func UnpackFrom[T Numeric](packed Vec[T], position, n int) Vec[T] {
	w := Width[T]()
	out := make([]T, n)
	for i := 0; i < n; i++ {
		src := packed.At(i / w)
		bit := (uint64(src) >> uint(i%w)) & 1
		if bit != 0 {
			out[i] |= T(1) << uint(position)
		}
	}
	return fromSlice(out)
}

// UnpackInto scatters a packed bit-plane into `position` of the n
// elements of dst, ORing it in place (used to assemble adder output).
func UnpackInto[T Numeric](dst Vec[T], packed Vec[T], position int) {
	w := Width[T]()
	for i := 0; i < dst.Size(); i++ {
		src := packed.At(i / w)
		bit := (uint64(src) >> uint(i%w)) & 1
		if bit != 0 {
			dst.Set(i, dst.At(i)|T(1)<<uint(position))
		}
	}
}

package vector

import (
	"fmt"

	"github.com/luxfi/orq/pkg/orqerr"
)

// PrefixSum computes the in-place inclusive scan of the batch window:
// v[i] += v[i-1] for i = 1..Size()-1.
func (v Vec[T]) PrefixSum() {
	v.PrefixSumWith(func(a, b T) T { return a + b })
}

// PrefixSumWith computes the in-place inclusive scan using a custom
// binary associative function instead of addition.
func (v Vec[T]) PrefixSumWith(op func(a, b T) T) {
	for i := 1; i < v.Size(); i++ {
		v.Set(i, op(v.At(i-1), v.At(i)))
	}
}

// ChunkedSum splits the batch window into contiguous chunks of k
// (the last chunk may be short) and reduces each chunk by summation,
// returning one output element per chunk.
func (v Vec[T]) ChunkedSum(k int) (Vec[T], error) {
	if k <= 0 {
		return Vec[T]{}, fmt.Errorf("vector: chunk size must be positive: %w", orqerr.PreconditionViolated)
	}
	n := v.Size()
	out := make([]T, (n+k-1)/k)
	for c := range out {
		var sum T
		start := c * k
		end := start + k
		if end > n {
			end = n
		}
		for i := start; i < end; i++ {
			sum += v.At(i)
		}
		out[c] = sum
	}
	return fromSlice(out), nil
}

// DotProduct splits both v and other into chunks of k and reduces each
// chunk pair to the sum of pairwise products.
func (v Vec[T]) DotProduct(other Vec[T], k int) (Vec[T], error) {
	if k <= 0 || v.Size() != other.Size() {
		return Vec[T]{}, fmt.Errorf("vector: dot_product size/chunk mismatch: %w", orqerr.PreconditionViolated)
	}
	n := v.Size()
	out := make([]T, (n+k-1)/k)
	for c := range out {
		var sum T
		start := c * k
		end := start + k
		if end > n {
			end = n
		}
		for i := start; i < end; i++ {
			sum += v.At(i) * other.At(i)
		}
		out[c] = sum
	}
	return fromSlice(out), nil
}

// DivRem computes (quotient, remainder) elementwise in a single pass.
func (v Vec[T]) DivRem(d T) (Vec[T], Vec[T], error) {
	if d == 0 {
		return Vec[T]{}, Vec[T]{}, fmt.Errorf("vector: division by zero: %w", orqerr.PreconditionViolated)
	}
	q := make([]T, v.Size())
	r := make([]T, v.Size())
	for i := 0; i < v.Size(); i++ {
		x := v.At(i)
		q[i] = x / d
		r[i] = x % d
	}
	return fromSlice(q), fromSlice(r), nil
}

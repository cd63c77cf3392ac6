// Package vector implements the plain, non-shared vector layer (L0):
// a dense sequence of values paired with an optional access-pattern
// mapping and a batch window. Every other layer (replicated shares,
// encoded columns, tables) is ultimately built from Vec[T].
//
// Ownership follows the teacher's reference-type idiom rather than
// C++'s shared_ptr<vector>: storage is a pointer to a slice cell so
// that multiple Vec[T] views can alias the same backing array and
// observe each other's in-place writes, exactly as spec.md §9
// prescribes ("Go uses slices over a shared backing array").
package vector

import (
	"fmt"

	"github.com/luxfi/orq/pkg/orqerr"
)

// Numeric is the set of element types Vec[T] supports: the signed
// integer families used for arithmetic/boolean shares plus the
// unsigned forms used internally by bit-level helpers.
type Numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// storage is the shared backing array for one or more Vec[T] views.
// Writes through any view that maps into the same storage are visible
// to every other view — there is no lock, matching spec.md §5's
// "concurrent writes to overlapping views are undefined" contract.
type storage[T Numeric] struct {
	data []T
}

// Vec is the plain dense vector with a lazy access pattern (mapping)
// and a batch window. The batch window scopes relative (index-0)
// operations to [start, end) of the logical (post-mapping) sequence.
type Vec[T Numeric] struct {
	buf     *storage[T]
	mapping []int // nil means identity mapping onto buf.data
	start   int
	end     int // exclusive, relative to the mapped (logical) sequence
}

// NewFilled returns a vector of n elements, all set to fill.
func NewFilled[T Numeric](n int, fill T) Vec[T] {
	data := make([]T, n)
	for i := range data {
		data[i] = fill
	}
	return fromSlice(data)
}

// New copies data into a fresh vector.
func New[T Numeric](data []T) Vec[T] {
	cp := make([]T, len(data))
	copy(cp, data)
	return fromSlice(cp)
}

// FromRaw builds a vector directly over storage (no copy), optionally
// through mapping. This is the constructor used when composing access
// patterns without copying, per spec.md §4.1.
func FromRaw[T Numeric](data []T, mapping []int) Vec[T] {
	v := fromSlice(data)
	if mapping != nil {
		m := make([]int, len(mapping))
		copy(m, mapping)
		v.mapping = m
		v.end = len(m)
	}
	return v
}

func fromSlice[T Numeric](data []T) Vec[T] {
	return Vec[T]{buf: &storage[T]{data: data}, start: 0, end: len(data)}
}

// Concat materializes and appends vs in order, used to batch several
// independent bit-plane vectors into a single round-trip payload (the
// Kogge-Stone prefix network and table concatenation both need this).
func Concat[T Numeric](vs ...Vec[T]) Vec[T] {
	total := 0
	for _, v := range vs {
		total += v.Size()
	}
	out := make([]T, 0, total)
	for _, v := range vs {
		out = append(out, v.ToSlice()...)
	}
	return fromSlice(out)
}

// SplitEqual divides v into len(sizes) consecutive, materialized
// slices of the given sizes, the inverse of Concat.
func SplitEqual[T Numeric](v Vec[T], sizes []int) ([]Vec[T], error) {
	out := make([]Vec[T], len(sizes))
	offset := 0
	for i, n := range sizes {
		if offset+n > v.Size() {
			return nil, fmt.Errorf("vector: split sizes exceed source length: %w", orqerr.PreconditionViolated)
		}
		slice, err := v.Slice(offset, offset+n)
		if err != nil {
			return nil, err
		}
		out[i] = slice.Materialize()
		offset += n
	}
	return out, nil
}

// Size returns the batch length: the number of elements currently in
// scope, i.e. end-start under the post-mapping (logical) indexing.
func (v Vec[T]) Size() int { return v.end - v.start }

// TotalSize returns the logical length under the mapping (or the
// storage length, if unmapped) — independent of the batch window.
func (v Vec[T]) TotalSize() int {
	if v.mapping != nil {
		return len(v.mapping)
	}
	return len(v.buf.data)
}

// StorageLen returns the length of the backing storage array.
func (v Vec[T]) StorageLen() int { return len(v.buf.data) }

// index maps a batch-relative position i (0 <= i < Size()) to a
// storage index.
func (v Vec[T]) index(i int) int {
	logical := v.start + i
	if v.mapping != nil {
		return v.mapping[logical]
	}
	return logical
}

// At returns the value at batch-relative position i.
func (v Vec[T]) At(i int) T {
	return v.buf.data[v.index(i)]
}

// Set assigns the value at batch-relative position i. The write is
// visible through every other view sharing this storage.
func (v Vec[T]) Set(i int, val T) {
	v.buf.data[v.index(i)] = val
}

// ToSlice materializes the batch window into a fresh plain slice,
// without mutating v.
func (v Vec[T]) ToSlice() []T {
	out := make([]T, v.Size())
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}

// SameAs reports whether v and other contain equal values over their
// respective batch windows (sizes must match).
func (v Vec[T]) SameAs(other Vec[T]) bool {
	if v.Size() != other.Size() {
		return false
	}
	for i := 0; i < v.Size(); i++ {
		if v.At(i) != other.At(i) {
			return false
		}
	}
	return true
}

// StartsWith reports whether v's batch window begins with prefix.
func (v Vec[T]) StartsWith(prefix Vec[T]) bool {
	if prefix.Size() > v.Size() {
		return false
	}
	for i := 0; i < prefix.Size(); i++ {
		if v.At(i) != prefix.At(i) {
			return false
		}
	}
	return true
}

// ---- slicing / access-pattern constructors (spec.md §4.1) ----

// clonedMapping returns the logical (post-window) mapping that view v
// currently exposes, materializing an identity mapping if v has none.
func (v Vec[T]) clonedMapping() []int {
	out := make([]int, v.Size())
	for i := range out {
		out[i] = v.index(i)
	}
	return out
}

func newMapped[T Numeric](buf *storage[T], mapping []int) Vec[T] {
	return Vec[T]{buf: buf, mapping: mapping, start: 0, end: len(mapping)}
}

// Slice returns a contiguous view [start, end) of the batch window.
func (v Vec[T]) Slice(start, end int) (Vec[T], error) {
	if start < 0 || end > v.Size() || start > end {
		return Vec[T]{}, fmt.Errorf("vector: slice(%d,%d) out of range [0,%d]: %w", start, end, v.Size(), orqerr.PreconditionViolated)
	}
	base := v.clonedMapping()
	return newMapped(v.buf, base[start:end]), nil
}

// SliceFrom returns a contiguous view [start, Size()).
func (v Vec[T]) SliceFrom(start int) (Vec[T], error) {
	return v.Slice(start, v.Size())
}

// SimpleSubsetReference gathers by stride: indices start, start+step,
// ..., up to and including endInclusive. When step == 1 this is
// equivalent to Slice(start, endInclusive+1).
func (v Vec[T]) SimpleSubsetReference(start, step, endInclusive int) (Vec[T], error) {
	if step <= 0 || start < 0 || endInclusive >= v.Size() || start > endInclusive {
		return Vec[T]{}, fmt.Errorf("vector: invalid stride params: %w", orqerr.PreconditionViolated)
	}
	if step == 1 {
		return v.Slice(start, endInclusive+1)
	}
	base := v.clonedMapping()
	var idx []int
	for i := start; i <= endInclusive; i += step {
		idx = append(idx, base[i])
	}
	return newMapped(v.buf, idx), nil
}

// AlternatingSubsetReference takes `included` elements then skips
// `excluded`, repeating over the batch window; the final chunk may be
// short. Direction +1 keeps each included chunk in index order.
func (v Vec[T]) AlternatingSubsetReference(included, excluded int) (Vec[T], error) {
	return v.alternating(included, excluded, +1)
}

// ReversedAlternatingSubsetReference is AlternatingSubsetReference but
// each included chunk is emitted in reverse index order.
func (v Vec[T]) ReversedAlternatingSubsetReference(included, excluded int) (Vec[T], error) {
	return v.alternating(included, excluded, -1)
}

func (v Vec[T]) alternating(included, excluded, dir int) (Vec[T], error) {
	if included <= 0 || excluded < 0 {
		return Vec[T]{}, fmt.Errorf("vector: invalid alternating pattern: %w", orqerr.PreconditionViolated)
	}
	base := v.clonedMapping()
	var idx []int
	period := included + excluded
	for chunkStart := 0; chunkStart < len(base); chunkStart += period {
		chunkEnd := chunkStart + included
		if chunkEnd > len(base) {
			chunkEnd = len(base)
		}
		if dir == +1 {
			for i := chunkStart; i < chunkEnd; i++ {
				idx = append(idx, base[i])
			}
		} else {
			for i := chunkEnd - 1; i >= chunkStart; i-- {
				idx = append(idx, base[i])
			}
		}
	}
	return newMapped(v.buf, idx), nil
}

// RepeatedSubsetReference repeats each element k times consecutively.
func (v Vec[T]) RepeatedSubsetReference(k int) (Vec[T], error) {
	if k <= 0 {
		return Vec[T]{}, fmt.Errorf("vector: repeat count must be positive: %w", orqerr.PreconditionViolated)
	}
	base := v.clonedMapping()
	idx := make([]int, 0, len(base)*k)
	for _, b := range base {
		for j := 0; j < k; j++ {
			idx = append(idx, b)
		}
	}
	return newMapped(v.buf, idx), nil
}

// CyclicSubsetReference repeats the entire sequence end-to-end k times.
func (v Vec[T]) CyclicSubsetReference(k int) (Vec[T], error) {
	if k <= 0 {
		return Vec[T]{}, fmt.Errorf("vector: cycle count must be positive: %w", orqerr.PreconditionViolated)
	}
	base := v.clonedMapping()
	idx := make([]int, 0, len(base)*k)
	for j := 0; j < k; j++ {
		idx = append(idx, base...)
	}
	return newMapped(v.buf, idx), nil
}

// DirectedSubsetReference returns the identity view for dir=+1, or the
// reversed view for dir=-1.
func (v Vec[T]) DirectedSubsetReference(dir int) (Vec[T], error) {
	base := v.clonedMapping()
	if dir == -1 {
		idx := make([]int, len(base))
		for i, b := range base {
			idx[len(base)-1-i] = b
		}
		return newMapped(v.buf, idx), nil
	}
	if dir != 1 {
		return Vec[T]{}, fmt.Errorf("vector: direction must be +1 or -1: %w", orqerr.PreconditionViolated)
	}
	return newMapped(v.buf, base), nil
}

// IncludedReference returns a view over the indices where flag is
// nonzero. Its length is data-dependent and bounded by
// min(v.TotalSize(), flag.TotalSize()) — callers are responsible for
// understanding that this view's size discloses the number of set
// flags (spec.md §4.1, §9).
func (v Vec[T]) IncludedReference(flag Vec[T]) Vec[T] {
	base := v.clonedMapping()
	n := len(base)
	if fn := flag.Size(); fn < n {
		n = fn
	}
	var idx []int
	for i := 0; i < n; i++ {
		if flag.At(i) != 0 {
			idx = append(idx, base[i])
		}
	}
	return newMapped(v.buf, idx)
}

// MappingReference installs an explicit mapping override. It requires
// that v currently has no mapping of its own (it replaces the
// identity mapping implied by the batch window).
func (v Vec[T]) MappingReference(mapping []int) (Vec[T], error) {
	if v.mapping != nil {
		return Vec[T]{}, fmt.Errorf("vector: mapping_reference on an already-mapped vector: %w", orqerr.PreconditionViolated)
	}
	m := make([]int, len(mapping))
	copy(m, mapping)
	return newMapped(v.buf, m), nil
}

// ApplyMapping composes new under the existing mapping:
// result[i] = old[new[i]]. The result must not be larger than v.
func (v Vec[T]) ApplyMapping(newMap []int) (Vec[T], error) {
	if len(newMap) > v.Size() {
		return Vec[T]{}, fmt.Errorf("vector: apply_mapping may not grow size: %w", orqerr.PreconditionViolated)
	}
	base := v.clonedMapping()
	idx := make([]int, len(newMap))
	for i, j := range newMap {
		idx[i] = base[j]
	}
	return newMapped(v.buf, idx), nil
}

// ---- mutation (spec.md §4.1) ----

// MaterializeInplace collapses the mapping into fresh contiguous
// storage, resets the batch window, and drops the mapping. This is
// required before handing a vector to a transport that assumes
// contiguous backing storage (spec.md §9).
func (v *Vec[T]) MaterializeInplace() {
	if v.mapping == nil && v.start == 0 && v.end == len(v.buf.data) {
		return
	}
	fresh := v.ToSlice()
	v.buf = &storage[T]{data: fresh}
	v.mapping = nil
	v.start = 0
	v.end = len(fresh)
}

// Materialize returns a copy of v with its mapping collapsed, leaving
// v itself untouched.
func (v Vec[T]) Materialize() Vec[T] {
	cp := v
	cp.MaterializeInplace()
	return cp
}

// Reverse reverses the batch window in place.
func (v Vec[T]) Reverse() {
	n := v.Size()
	for i := 0; i < n/2; i++ {
		j := n - 1 - i
		a, b := v.At(i), v.At(j)
		v.Set(i, b)
		v.Set(j, a)
	}
}

// Zero clears the batch window in place.
func (v Vec[T]) Zero() {
	for i := 0; i < v.Size(); i++ {
		v.Set(i, 0)
	}
}

// Mask ANDs every element of the batch window with n in place.
func (v Vec[T]) Mask(n T) {
	for i := 0; i < v.Size(); i++ {
		v.Set(i, v.At(i)&n)
	}
}

// SetBits ORs every element of the batch window with n in place.
func (v Vec[T]) SetBits(n T) {
	for i := 0; i < v.Size(); i++ {
		v.Set(i, v.At(i)|n)
	}
}

// Resize grows or shrinks v's logical length to n. Grown indices (if
// mapped) point at freshly appended storage; growing an unmapped
// vector grows storage directly.
func (v *Vec[T]) Resize(n int) {
	cur := v.Size()
	if n == cur {
		return
	}
	if n < cur {
		v.end = v.start + n
		if v.mapping != nil {
			v.mapping = v.mapping[:v.start+n]
		}
		return
	}
	grow := n - cur
	base := len(v.buf.data)
	v.buf.data = append(v.buf.data, make([]T, grow)...)
	if v.mapping != nil {
		newIdx := make([]int, grow)
		for i := range newIdx {
			newIdx[i] = base + i
		}
		v.mapping = append(v.mapping[:v.start+cur], newIdx...)
	}
	v.end = v.start + n
}

// Tail retains only the last n elements of the batch window.
func (v *Vec[T]) Tail(n int) {
	cur := v.Size()
	if n > cur {
		n = cur
	}
	v.start = v.end - n
}

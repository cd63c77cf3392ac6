// Package prg implements the randomness contract named in spec.md §6:
// a per-party local PRG, a per-group common PRG, and a zero-sharing
// generator built on top of both. All three are deterministic
// ChaCha20 keystreams (golang.org/x/crypto/chacha20) rather than a
// bespoke PRNG, per the domain-stack wiring in SPEC_FULL.md.
package prg

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20"

	"github.com/luxfi/orq/pkg/orqerr"
	"github.com/luxfi/orq/pkg/vector"
)

// LocalPRG is a thread-local pseudorandom generator seeded once per
// party. GetNext fills the supplied vector with fresh pseudorandom
// values.
type LocalPRG struct {
	stream *chacha20.Cipher
}

// NewLocalPRG seeds a LocalPRG from a 32-byte key (e.g. a party's own
// secret seed).
func NewLocalPRG(key [32]byte) (*LocalPRG, error) {
	c, err := chacha20.NewUnauthenticatedCipher(key[:], make([]byte, chacha20.NonceSize))
	if err != nil {
		return nil, fmt.Errorf("prg: %w", err)
	}
	return &LocalPRG{stream: c}, nil
}

// GetNext fills every element of v with pseudorandom bits of type T.
func GetNext[T vector.Numeric](p *LocalPRG, v vector.Vec[T]) {
	w := vector.Width[T]()
	bytesPer := (w + 7) / 8
	buf := make([]byte, bytesPer)
	for i := 0; i < v.Size(); i++ {
		p.stream.XORKeyStream(buf, buf)
		var u uint64
		for b, shift := 0, 0; b < bytesPer; b, shift = b+1, shift+8 {
			u |= uint64(buf[b]) << uint(shift)
		}
		v.Set(i, T(u))
	}
}

// CommonPRG is shared by a designated group: every member produces an
// identical output stream, because all members seed it with the same
// group key.
type CommonPRG struct {
	stream *chacha20.Cipher
}

// NewCommonPRG seeds a CommonPRG from a group-wide key agreed upon out
// of band (e.g. derived during party bootstrap).
func NewCommonPRG(groupKey [32]byte) (*CommonPRG, error) {
	c, err := chacha20.NewUnauthenticatedCipher(groupKey[:], make([]byte, chacha20.NonceSize))
	if err != nil {
		return nil, fmt.Errorf("prg: %w", err)
	}
	return &CommonPRG{stream: c}, nil
}

// GetNext fills v identically for every member of the group.
func (p *CommonPRG) GetNext(v vector.Vec[uint64]) {
	buf := make([]byte, 8)
	for i := 0; i < v.Size(); i++ {
		p.stream.XORKeyStream(buf, buf)
		v.Set(i, binary.LittleEndian.Uint64(buf))
	}
}

// DeriveKey mixes a group key and a small integer tag (e.g. a ring
// edge index) into a fresh 32-byte key, so one base secret can seed
// many independent CommonPRG instances.
func DeriveKey(base [32]byte, tag uint64) [32]byte {
	var out [32]byte
	copy(out[:], base[:])
	var tagBytes [8]byte
	binary.LittleEndian.PutUint64(tagBytes[:], tag)
	for i := 0; i < 8; i++ {
		out[i] ^= tagBytes[i]
	}
	return out
}

// ZeroSharingGenerator produces arithmetic or boolean zero-sums across
// the R shares held by a group's parties: groupGetNext fills R vectors
// such that their sum (resp. XOR) is the all-zero vector. The
// generator needs R independent CommonPRG streams — one per ordered
// pair of adjacent shares — each party generating the same pseudorandom
// mask as its neighbor and adding it with opposite sign.
type ZeroSharingGenerator struct {
	edges []*CommonPRG // edges[i] shared between share i and share i+1 (mod R)
}

// NewZeroSharingGenerator builds a generator from the R pairwise
// CommonPRG streams arranged in a ring.
func NewZeroSharingGenerator(edges []*CommonPRG) *ZeroSharingGenerator {
	return &ZeroSharingGenerator{edges: edges}
}

// GroupGetNextArithmetic fills the R vectors in nums such that their
// elementwise sum is zero, using ring-adjacent masks r_i - r_{i-1}.
// It computes all R shares at once, drawing from every ring edge.
func (z *ZeroSharingGenerator) GroupGetNextArithmetic(nums []vector.Vec[uint64]) error {
	r := len(nums)
	if r != len(z.edges) {
		return fmt.Errorf("prg: zero-sharing ring size mismatch: %w", orqerr.PreconditionViolated)
	}
	n := nums[0].Size()
	masks := make([]vector.Vec[uint64], r)
	for i := 0; i < r; i++ {
		masks[i] = vector.NewFilled[uint64](n, 0)
		z.edges[i].GetNext(masks[i])
	}
	for i := 0; i < r; i++ {
		prev := (i - 1 + r) % r
		for j := 0; j < n; j++ {
			nums[i].Set(j, masks[i].At(j)-masks[prev].At(j))
		}
	}
	return nil
}

// GroupGetNextBinary is the boolean analogue: elementwise XOR of the R
// vectors is zero.
func (z *ZeroSharingGenerator) GroupGetNextBinary(nums []vector.Vec[uint64]) error {
	r := len(nums)
	if r != len(z.edges) {
		return fmt.Errorf("prg: zero-sharing ring size mismatch: %w", orqerr.PreconditionViolated)
	}
	n := nums[0].Size()
	masks := make([]vector.Vec[uint64], r)
	for i := 0; i < r; i++ {
		masks[i] = vector.NewFilled[uint64](n, 0)
		z.edges[i].GetNext(masks[i])
	}
	for i := 0; i < r; i++ {
		prev := (i - 1 + r) % r
		for j := 0; j < n; j++ {
			nums[i].Set(j, masks[i].At(j)^masks[prev].At(j))
		}
	}
	return nil
}

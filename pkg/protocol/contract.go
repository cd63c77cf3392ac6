// Package protocol specifies the contract named in spec.md §6: the
// plug-in boundary between the oblivious operator/table layers and
// the underlying secret-sharing protocol. Only the contract is
// specified generically (Engine); one concrete, semi-honest
// three-party replicated engine (Replicated3) is provided as the
// reference implementation exercised by the rest of this module's
// tests, the way the teacher's pkg/protocol.ThresholdConfig is one
// interface implemented by CMP/FROST/LSS.
package protocol

import (
	"github.com/luxfi/orq/pkg/party"
	"github.com/luxfi/orq/pkg/share"
	"github.com/luxfi/orq/pkg/vector"
)

// Engine is the per-(encoding,base-type) protocol contract: secret
// share/open, reshare, elementwise arithmetic/boolean ops, and share
// conversions. Every method that touches the network may suspend
// (spec.md §5). The linear operations (A-share addition, subtraction
// and negation, XOR, NOT) are part of the contract as well; bit shifts
// are not.
type Engine[T vector.Numeric] interface {
	// Self returns this engine's own party identity.
	Self() party.ID
	// Parties returns the full, sorted party set.
	Parties() party.IDSlice
	// R returns the replication count (shares held per party).
	R() int

	// SecretShareA/SecretShareB: the owner secret-shares v; every
	// party (including the owner) receives shares consistent with its
	// slot. Non-owners pass an arbitrary v of the correct size.
	SecretShareA(v vector.Vec[T], owner party.ID) (share.Share[T], error)
	SecretShareB(v vector.Vec[T], owner party.ID) (share.Share[T], error)

	// PublicShare broadcasts a public value as a (trivial) share.
	PublicShare(v vector.Vec[T]) share.Share[T]

	// Open combines shares and reveals the plaintext vector.
	Open(s share.Share[T]) (vector.Vec[T], error)
	// OpenBoolean is Open for a boolean (XOR-shared) vector.
	OpenBoolean(s share.Share[T]) (vector.Vec[T], error)

	// Reshare resamples v within group, producing a fresh share of
	// the same secret for group's members.
	Reshare(s share.Share[T], group party.Group, boolean bool) (share.Share[T], error)

	// AddA, SubA, NegA are linear — local in a real deployment, but
	// still routed through the engine so callers do not need to know
	// whether a given Engine materializes them locally.
	AddA(a, b share.Share[T]) (share.Share[T], error)
	SubA(a, b share.Share[T]) (share.Share[T], error)
	NegA(a share.Share[T]) (share.Share[T], error)
	// MultiplyA triggers a network round.
	MultiplyA(a, b share.Share[T]) (share.Share[T], error)

	// XorB, NotB are local; AndB, OrB trigger a network round. NotB1
	// negates only the LSB (boolean logical "not" of a single-bit
	// share), used by comparison results.
	XorB(a, b share.Share[T]) (share.Share[T], error)
	NotB(a share.Share[T]) (share.Share[T], error)
	NotB1(a share.Share[T]) (share.Share[T], error)
	AndB(a, b share.Share[T]) (share.Share[T], error)
	OrB(a, b share.Share[T]) (share.Share[T], error)

	// B2ABit converts a single-bit boolean share to arithmetic
	// (cheap); A2B converts a full-width arithmetic share to boolean.
	B2ABit(b share.Share[T]) (share.Share[T], error)
	A2B(a share.Share[T]) (share.Share[T], error)

	// RedistributeSharesB re-randomizes a boolean share into two
	// independent boolean shares of the same secret — the helper an
	// A2B summation-of-bits construction uses. Replicated3's A2B
	// (reveal and reshare) does not call it.
	RedistributeSharesB(v share.Share[T]) (share.Share[T], share.Share[T], error)

	// DivConstA divides by a public constant, returning the quotient
	// and an error term for a correction pass.
	DivConstA(a share.Share[T], c T) (q share.Share[T], errTerm share.Share[T], err error)

	// DotProductA reduces x*y in chunks of `chunk`, producing one
	// A-shared output per chunk and triggering one round total.
	DotProductA(x, y share.Share[T], chunk int) (share.Share[T], error)

	// MaliciousCheck is the optional commit-open-check hook (spec.md
	// §7); it is a no-op for semi-honest engines.
	MaliciousCheck() error
}

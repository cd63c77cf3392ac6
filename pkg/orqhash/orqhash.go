// Package orqhash provides session and commitment hashing helpers: a
// deterministic session ID derived from the party set and query text,
// per-round transcript hashing, and commitment-key derivation. No other
// package of this module imports it.
// Grounded on the teacher's frost/sign round1.go, which uses
// zeebo/blake3.DeriveKey to turn a low-entropy context string plus a
// secret into a domain-separated key.
package orqhash

import (
	"sort"

	"github.com/zeebo/blake3"

	"github.com/luxfi/orq/pkg/party"
)

const sessionContext = "github.com/luxfi/orq 2026 session id"

// SessionID derives a 32-byte session identifier from the sorted
// party set and an arbitrary caller-supplied label (typically the
// query text or plan fingerprint), so two parties independently
// computing it for the same query agree without a round trip.
func SessionID(parties party.IDSlice, label string) [32]byte {
	sorted := parties.Sorted()
	h := blake3.New()
	for _, id := range sorted {
		_, _ = h.Write([]byte(id))
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte(label))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// TranscriptHash folds a round's outgoing messages into a running
// digest that parties can compare without re-sending every message.
// MaliciousCheck does not call it.
func TranscriptHash(prior [32]byte, round int, payloads [][]byte) [32]byte {
	h := blake3.New()
	_, _ = h.Write(prior[:])
	var roundBytes [8]byte
	for i := 0; i < 8; i++ {
		roundBytes[i] = byte(round >> (8 * i))
	}
	_, _ = h.Write(roundBytes[:])
	sorted := make([][]byte, len(payloads))
	copy(sorted, payloads)
	sort.Slice(sorted, func(i, j int) bool {
		return string(sorted[i]) < string(sorted[j])
	})
	for _, p := range sorted {
		_, _ = h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DeriveCommitmentKey mixes sessionID and a small tag into a 32-byte
// key suitable for seeding a commitment's blinding factor, the same
// pattern the teacher uses to turn a session-bound secret into a
// domain-separated hash key.
func DeriveCommitmentKey(sessionID [32]byte, tag string) [32]byte {
	out := make([]byte, 32)
	blake3.DeriveKey("github.com/luxfi/orq commit-open-check "+tag, sessionID[:], out)
	var fixed [32]byte
	copy(fixed[:], out)
	return fixed
}

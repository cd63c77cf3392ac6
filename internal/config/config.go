// Package config describes a single query run: the party set, this
// party's own identity, the share layout, the PRG seeds, and the
// default protocol choices. Grounded on the teacher's
// protocols/lss/config package, which plays the same role (a party's
// long-term, (de)serializable run state) for threshold-signing
// sessions.
package config

import (
	"fmt"

	"github.com/luxfi/orq/pkg/orqerr"
	"github.com/luxfi/orq/pkg/party"
)

// SortProtocol names the default row-ordering strategy a Config
// requests when a query doesn't pick one explicitly.
type SortProtocol int

const (
	// Bitonic sorts via pkg/sortshuffle.TableSort (shuffle + bitonic
	// network); correct for any key distribution, O(log^2 n) rounds.
	Bitonic SortProtocol = iota
	// Radix sorts via pkg/sortshuffle.RadixSort; fewer rounds for
	// small, fixed-width keys at the cost of revealing per-bit counts.
	Radix
)

func (p SortProtocol) String() string {
	switch p {
	case Bitonic:
		return "bitonic"
	case Radix:
		return "radix"
	default:
		return "unknown"
	}
}

// Config is the long-term, (de)serializable state one party holds for
// a query execution.
type Config struct {
	// ID is this party's own identifier.
	ID party.ID

	// Parties is the full, sorted set of participants.
	Parties party.IDSlice

	// Replication is R, the number of share parts each party holds
	// (2 for the honest-majority three-party replicated protocol this
	// module ships, generalized so a dishonest-majority engine can
	// reuse the same Config shape).
	Replication int

	// PermutationSeed seeds the local pkg/perm.Manager's correlation
	// generator; parties agree on it out of band the same way the
	// teacher's keygen round agrees on a session ID.
	PermutationSeed int64

	// LocalSeed keys this party's pkg/prg.LocalPRG.
	LocalSeed [32]byte

	// DefaultSort records a preferred sort strategy and round-trips
	// through JSON; table.Sort does not read it and always uses
	// TableSort.
	DefaultSort SortProtocol

	// MaliciousCheckEnabled toggles the pkg/check commit-open-check
	// hook; false runs the semi-honest fast path with no commitments.
	MaliciousCheckEnabled bool
}

// Validate checks that Config is well-formed enough to build an
// Engine from.
func (c *Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("config: missing party id: %w", orqerr.PreconditionViolated)
	}
	if !c.Parties.Contains(c.ID) {
		return fmt.Errorf("config: party set does not include %q: %w", c.ID, orqerr.PreconditionViolated)
	}
	if c.Replication < 1 {
		return fmt.Errorf("config: replication must be positive: %w", orqerr.PreconditionViolated)
	}
	if len(c.Parties) < 2 {
		return fmt.Errorf("config: at least two parties required: %w", orqerr.PreconditionViolated)
	}
	return nil
}

// Default returns a Config for the common three-party honest-majority
// replicated setup (spec.md's reference protocol), self identified by
// id among parties.
func Default(id party.ID, parties party.IDSlice, seed int64) *Config {
	return &Config{
		ID:                    id,
		Parties:               parties.Sorted(),
		Replication:           2,
		PermutationSeed:       seed,
		DefaultSort:           Bitonic,
		MaliciousCheckEnabled: false,
	}
}

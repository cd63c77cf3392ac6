package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/luxfi/orq/pkg/party"
)

type configJSON struct {
	ID                    string   `json:"id"`
	Parties               []string `json:"parties"`
	Replication           int      `json:"replication"`
	PermutationSeed       int64    `json:"permutation_seed"`
	LocalSeed             string   `json:"local_seed"` // base64 encoded
	DefaultSort           string   `json:"default_sort"`
	MaliciousCheckEnabled bool     `json:"malicious_check_enabled"`
}

// MarshalJSON implements json.Marshaler, following the teacher's
// base64-encoded-binary-field convention for the one field (LocalSeed)
// that isn't already JSON-native.
func (c *Config) MarshalJSON() ([]byte, error) {
	parties := make([]string, len(c.Parties))
	for i, id := range c.Parties {
		parties[i] = string(id)
	}
	out := &configJSON{
		ID:                    string(c.ID),
		Parties:               parties,
		Replication:           c.Replication,
		PermutationSeed:       c.PermutationSeed,
		LocalSeed:             base64.StdEncoding.EncodeToString(c.LocalSeed[:]),
		DefaultSort:           c.DefaultSort.String(),
		MaliciousCheckEnabled: c.MaliciousCheckEnabled,
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Config) UnmarshalJSON(data []byte) error {
	var out configJSON
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	c.ID = party.ID(out.ID)
	c.Parties = make(party.IDSlice, len(out.Parties))
	for i, id := range out.Parties {
		c.Parties[i] = party.ID(id)
	}
	c.Replication = out.Replication
	c.PermutationSeed = out.PermutationSeed
	c.MaliciousCheckEnabled = out.MaliciousCheckEnabled

	seed, err := base64.StdEncoding.DecodeString(out.LocalSeed)
	if err != nil {
		return fmt.Errorf("config: failed to decode local seed: %w", err)
	}
	if len(seed) != 32 {
		return fmt.Errorf("config: local seed must be 32 bytes, got %d", len(seed))
	}
	copy(c.LocalSeed[:], seed)

	switch out.DefaultSort {
	case "radix":
		c.DefaultSort = Radix
	default:
		c.DefaultSort = Bitonic
	}
	return nil
}

package config_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/orq/internal/config"
	"github.com/luxfi/orq/pkg/party"
)

func TestDefaultConfig(t *testing.T) {
	parties := party.IDSlice{"bob", "alice", "carol"}
	cfg := config.Default("alice", parties, 42)

	assert.Equal(t, party.ID("alice"), cfg.ID)
	assert.Equal(t, 2, cfg.Replication)
	assert.Equal(t, config.Bitonic, cfg.DefaultSort)
	assert.Equal(t, party.IDSlice{"alice", "bob", "carol"}, cfg.Parties)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name      string
		config    *config.Config
		expectErr bool
	}{
		{
			name:      "missing id",
			config:    &config.Config{Parties: party.IDSlice{"alice", "bob"}, Replication: 2},
			expectErr: true,
		},
		{
			name:      "id not in party set",
			config:    &config.Config{ID: "carol", Parties: party.IDSlice{"alice", "bob"}, Replication: 2},
			expectErr: true,
		},
		{
			name:      "zero replication",
			config:    &config.Config{ID: "alice", Parties: party.IDSlice{"alice", "bob"}, Replication: 0},
			expectErr: true,
		},
		{
			name:      "single party",
			config:    &config.Config{ID: "alice", Parties: party.IDSlice{"alice"}, Replication: 2},
			expectErr: true,
		},
		{
			name:      "valid",
			config:    &config.Config{ID: "alice", Parties: party.IDSlice{"alice", "bob"}, Replication: 2},
			expectErr: false,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigJSONRoundTrip(t *testing.T) {
	cfg := config.Default("alice", party.IDSlice{"alice", "bob", "carol"}, 7)
	cfg.LocalSeed = [32]byte{1, 2, 3, 4}
	cfg.DefaultSort = config.Radix
	cfg.MaliciousCheckEnabled = true

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var out config.Config
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, cfg.ID, out.ID)
	assert.Equal(t, cfg.Parties, out.Parties)
	assert.Equal(t, cfg.Replication, out.Replication)
	assert.Equal(t, cfg.PermutationSeed, out.PermutationSeed)
	assert.Equal(t, cfg.LocalSeed, out.LocalSeed)
	assert.Equal(t, cfg.DefaultSort, out.DefaultSort)
	assert.Equal(t, cfg.MaliciousCheckEnabled, out.MaliciousCheckEnabled)
}

package config

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *RuntimeConfig {
	return &RuntimeConfig{
		Governor: DefaultGovernorSettings(),
		Timelock: DefaultTimelockSettings(),
		Clock:    ClockSettings{Mode: ClockModeBlockNumber, Genesis: 1},
		Storage:  StorageSettings{Backend: StorageBackendMemory},
		Treasury: TreasurySettings{Address: common.HexToAddress("0x5352")},
		Accounts: map[string]common.Address{
			"alice": common.HexToAddress("0xa11ce"),
			"ally":  common.HexToAddress("0xa11ce"),
		},
	}
}

func TestResolveAccount(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		in   string
		want common.Address
	}{
		{"alice", common.HexToAddress("0xa11ce")},
		{" ALICE ", common.HexToAddress("0xa11ce")},
		{"governor", cfg.Governor.Address},
		{"timelock", cfg.Timelock.Address},
		{"treasury", cfg.Treasury.Address},
		{"0x70997970C51812dc3A010C7d01b50e0d17dc79C8", common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := cfg.ResolveAccount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := cfg.ResolveAccount("guardian")
	assert.ErrorContains(t, err, "unknown account")

	cfg.Governor.Guardian = common.HexToAddress("0x9a4d")
	got, err := cfg.ResolveAccount("guardian")
	require.NoError(t, err)
	assert.Equal(t, cfg.Governor.Guardian, got)
}

func TestAccountName(t *testing.T) {
	cfg := testConfig()

	assert.Equal(t, "alice", cfg.AccountName(common.HexToAddress("0xa11ce")))
	assert.Equal(t, "governor", cfg.AccountName(cfg.Governor.Address))
	assert.Equal(t, "timelock", cfg.AccountName(cfg.Timelock.Address))
	assert.Equal(t, "treasury", cfg.AccountName(cfg.Treasury.Address))

	other := common.HexToAddress("0xb0b")
	assert.Equal(t, other.Hex(), cfg.AccountName(other))
}

func TestValidate(t *testing.T) {
	require.NoError(t, testConfig().Validate())

	tests := []struct {
		name   string
		modify func(*RuntimeConfig)
		want   string
	}{
		{"no governor", func(c *RuntimeConfig) { c.Governor.Address = common.Address{} }, "governor address"},
		{"zero voting delay", func(c *RuntimeConfig) { c.Governor.VotingDelay = 0 }, "voting delay"},
		{"zero voting period", func(c *RuntimeConfig) { c.Governor.VotingPeriod = 0 }, "voting period"},
		{"quorum above max", func(c *RuntimeConfig) { c.Governor.QuorumBps = MaxQuorumBps + 1 }, "exceeds"},
		{"unknown counting", func(c *RuntimeConfig) { c.Governor.QuorumCounting = "majority" }, "quorum counting"},
		{"missing threshold", func(c *RuntimeConfig) { c.Governor.ProposalThreshold = nil }, "threshold"},
		{"no timelock", func(c *RuntimeConfig) { c.Timelock.Address = common.Address{} }, "timelock address"},
		{"shared address", func(c *RuntimeConfig) { c.Timelock.Address = c.Governor.Address }, "different addresses"},
		{"unknown clock", func(c *RuntimeConfig) { c.Clock.Mode = "slot" }, "clock mode"},
		{"unknown storage", func(c *RuntimeConfig) { c.Storage.Backend = "sqlite" }, "storage backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	t.Run("full quorum is allowed", func(t *testing.T) {
		cfg := testConfig()
		cfg.Governor.QuorumBps = MaxQuorumBps
		cfg.Governor.ProposalThreshold = uint256.NewInt(1)
		assert.NoError(t, cfg.Validate())
	})
}

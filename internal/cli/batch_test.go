package cli

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"gopkg.in/yaml.v3"
)

var (
	treasuryAddr = common.HexToAddress("0x0000000000000000000000000000000000005352")
	bobAddr      = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func testResolver() func(string) (common.Address, error) {
	cfg := &config.RuntimeConfig{
		Governor: config.DefaultGovernorSettings(),
		Timelock: config.DefaultTimelockSettings(),
		Treasury: config.TreasurySettings{Address: treasuryAddr},
		Accounts: map[string]common.Address{"bob": bobAddr},
	}
	return cfg.ResolveAccount
}

func TestBatchFileBuild(t *testing.T) {
	resolve := testResolver()

	t.Run("yaml grant", func(t *testing.T) {
		var spec BatchFile
		require.NoError(t, yaml.Unmarshal([]byte(`
description: "Proposal #1: Give grant to signer 2"
calls:
  - target: treasury
    signature: transfer(address,uint256)
    args: [bob, 1_000_000e18]
`), &spec))

		batch, err := spec.Build(resolve)
		require.NoError(t, err)
		require.Equal(t, 1, batch.Len())
		assert.Equal(t, treasuryAddr, batch.Targets[0])
		assert.Equal(t, 0, batch.Values[0].Sign())

		amount, ok := new(big.Int).SetString("1000000000000000000000000", 10)
		require.True(t, ok)
		want, err := abi.ERC20.Pack("transfer", bobAddr, amount)
		require.NoError(t, err)
		assert.Equal(t, want, batch.Calldatas[0])
	})

	t.Run("role names become role ids", func(t *testing.T) {
		spec := BatchFile{Calls: []CallSpec{{
			Target:    "timelock",
			Signature: "grantRole(bytes32,address)",
			Args:      []string{"proposer", "bob"},
		}}}
		batch, err := spec.Build(resolve)
		require.NoError(t, err)

		decoded, err := abi.DecodeCall(batch.Calldatas[0])
		require.NoError(t, err)
		assert.Equal(t, [32]byte(models.RoleProposer.ID()), decoded.Args[0])
		assert.Equal(t, bobAddr, decoded.Args[1])
	})

	t.Run("raw data and value", func(t *testing.T) {
		spec := BatchFile{Calls: []CallSpec{{Target: bobAddr.Hex(), Value: "1e3", Data: "0xdeadbeef"}}}
		batch, err := spec.Build(resolve)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), batch.Values[0].Int64())
		assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, batch.Calldatas[0])
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name string
			spec BatchFile
			want string
		}{
			{"empty", BatchFile{}, "empty proposal"},
			{"unknown target", BatchFile{Calls: []CallSpec{{Target: "mallory"}}}, "mallory"},
			{"signature and data", BatchFile{Calls: []CallSpec{{Target: "bob", Signature: "f()", Data: "0x00"}}}, "not both"},
			{"argument count", BatchFile{Calls: []CallSpec{{Target: "bob", Signature: "transfer(address,uint256)", Args: []string{"bob"}}}}, "takes 2 arguments"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := tt.spec.Build(resolve)
				assert.ErrorContains(t, err, tt.want)
			})
		}
	})
}

func TestNormalizeArg(t *testing.T) {
	resolve := testResolver()

	tests := []struct {
		arg  string
		want string
	}{
		{"1_000e3", "1000000"},
		{"42", "42"},
		{"0xabc", "0xabc"},
		{"bob", bobAddr.Hex()},
		{"governor", config.DefaultGovernorSettings().Address.Hex()},
		{"admin", models.RoleAdmin.ID().Hex()},
		{"true", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := normalizeArg(tt.arg, resolve)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterPrefix(t *testing.T) {
	ids := []common.Hash{
		common.HexToHash("0xabc1000000000000000000000000000000000000000000000000000000000000"),
		common.HexToHash("0xabc2000000000000000000000000000000000000000000000000000000000000"),
	}

	assert.Equal(t, ids[:1], filterPrefix(ids, "0xABC1"))
	assert.Equal(t, ids, filterPrefix(ids, "abc"))
	assert.Equal(t, ids, filterPrefix(ids, ""))
	assert.Empty(t, filterPrefix(ids, "ff"))
}

func TestArgAt(t *testing.T) {
	assert.Equal(t, "a", argAt([]string{"a"}, 0))
	assert.Equal(t, "", argAt(nil, 0))
}

package executor

import (
	"context"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/adapters/ledger"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

var (
	timelockAddr = common.HexToAddress("0x000000000000000000000000000000000074696d")
	tokenAddr    = common.HexToAddress("0x0000000000000000000000000000000000005352")
	grantee      = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

type MockTimelockAdmin struct {
	mock.Mock
}

func (m *MockTimelockAdmin) UpdateDelay(ctx context.Context, newDelay uint64, caller common.Address) error {
	return m.Called(ctx, newDelay, caller).Error(0)
}

func (m *MockTimelockAdmin) GrantRole(ctx context.Context, role models.Role, account, caller common.Address) error {
	return m.Called(ctx, role, account, caller).Error(0)
}

func (m *MockTimelockAdmin) RevokeRole(ctx context.Context, role models.Role, account, caller common.Address) error {
	return m.Called(ctx, role, account, caller).Error(0)
}

func (m *MockTimelockAdmin) RenounceRole(ctx context.Context, role models.Role, account, caller common.Address) error {
	return m.Called(ctx, role, account, caller).Error(0)
}

func transferData(t *testing.T, to common.Address, amount int64) []byte {
	t.Helper()
	data, err := abi.ERC20.Pack("transfer", to, big.NewInt(amount))
	require.NoError(t, err)
	return data
}

func newTreasury(t *testing.T) *ledger.Token {
	t.Helper()
	token := ledger.NewToken("SRC", tokenAddr)
	require.NoError(t, token.Mint(timelockAddr, uint256.NewInt(1_000)))
	return token
}

func TestRouterRun(t *testing.T) {
	ctx := context.Background()

	t.Run("transfers from the timelock account", func(t *testing.T) {
		token := newTreasury(t)
		router := NewRouter(timelockAddr, slog.Default())
		router.Register(tokenAddr, NewTokenHandler(token))

		batch := models.NewBatch(models.Call{Target: tokenAddr, Data: transferData(t, grantee, 400)})
		result, err := router.Run(ctx, batch)
		require.NoError(t, err)
		require.Len(t, result.ReturnData, 1)

		ok, err := abi.ERC20.Unpack("transfer", result.ReturnData[0])
		require.NoError(t, err)
		assert.Equal(t, true, ok[0])
		assert.Equal(t, uint64(400), token.BalanceOf(grantee).Uint64())
		assert.Equal(t, uint64(600), token.BalanceOf(timelockAddr).Uint64())
	})

	t.Run("failing call rolls back earlier calls", func(t *testing.T) {
		token := newTreasury(t)
		router := NewRouter(timelockAddr, slog.Default())
		router.Register(tokenAddr, NewTokenHandler(token))

		batch := models.NewBatch(
			models.Call{Target: tokenAddr, Data: transferData(t, grantee, 400)},
			models.Call{Target: tokenAddr, Data: transferData(t, grantee, 700)},
		)
		_, err := router.Run(ctx, batch)
		assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
		assert.True(t, token.BalanceOf(grantee).IsZero())
		assert.Equal(t, uint64(1_000), token.BalanceOf(timelockAddr).Uint64())
	})

	t.Run("unknown target fails", func(t *testing.T) {
		router := NewRouter(timelockAddr, slog.Default())
		_, err := router.Run(ctx, models.NewBatch(models.Call{Target: grantee, Data: []byte{1, 2, 3, 4}}))
		assert.ErrorContains(t, err, "no handler")
	})

	t.Run("value is rejected", func(t *testing.T) {
		router := NewRouter(timelockAddr, slog.Default())
		router.Register(tokenAddr, NewTokenHandler(newTreasury(t)))
		_, err := router.Run(ctx, models.NewBatch(models.Call{
			Target: tokenAddr,
			Value:  big.NewInt(1),
			Data:   transferData(t, grantee, 1),
		}))
		assert.ErrorIs(t, err, ErrNotPayable)
	})

	t.Run("unknown selector", func(t *testing.T) {
		router := NewRouter(timelockAddr, slog.Default())
		router.Register(tokenAddr, NewTokenHandler(newTreasury(t)))
		_, err := router.Run(ctx, models.NewBatch(models.Call{Target: tokenAddr, Data: []byte{0xde, 0xad, 0xbe, 0xef}}))
		assert.ErrorIs(t, err, ErrUnknownMethod)
	})
}

func TestTimelockHandler(t *testing.T) {
	ctx := context.Background()
	admin := new(MockTimelockAdmin)
	router := NewRouter(timelockAddr, slog.Default())
	router.Register(timelockAddr, NewTimelockHandler(admin))

	delayData, err := abi.Timelock.Pack("updateDelay", big.NewInt(42))
	require.NoError(t, err)
	role := crypto.Keccak256Hash([]byte("EXECUTOR_ROLE"))
	grantData, err := abi.Timelock.Pack("grantRole", [32]byte(role), grantee)
	require.NoError(t, err)
	revokeData, err := abi.Timelock.Pack("revokeRole", [32]byte(role), grantee)
	require.NoError(t, err)

	admin.On("UpdateDelay", mock.Anything, uint64(42), timelockAddr).Return(nil)
	admin.On("GrantRole", mock.Anything, models.RoleExecutor, grantee, timelockAddr).Return(nil)
	admin.On("RevokeRole", mock.Anything, models.RoleExecutor, grantee, timelockAddr).Return(nil)

	_, err = router.Run(ctx, models.NewBatch(
		models.Call{Target: timelockAddr, Data: delayData},
		models.Call{Target: timelockAddr, Data: grantData},
		models.Call{Target: timelockAddr, Data: revokeData},
	))
	require.NoError(t, err)
	admin.AssertExpectations(t)

	t.Run("unknown role id", func(t *testing.T) {
		bad, err := abi.Timelock.Pack("grantRole", [32]byte{1}, grantee)
		require.NoError(t, err)
		_, err = router.Run(ctx, models.NewBatch(models.Call{Target: timelockAddr, Data: bad}))
		assert.ErrorContains(t, err, "unknown role id")
	})
}

type snapshotAdmin struct {
	MockTimelockAdmin
	restored int
}

func (s *snapshotAdmin) Snapshot(context.Context) (func(context.Context) error, error) {
	return func(context.Context) error {
		s.restored++
		return nil
	}, nil
}

func TestTimelockHandlerRollback(t *testing.T) {
	ctx := context.Background()
	admin := &snapshotAdmin{}
	token := newTreasury(t)
	router := NewRouter(timelockAddr, slog.Default())
	router.Register(timelockAddr, NewTimelockHandler(admin))
	router.Register(tokenAddr, NewTokenHandler(token))

	delayData, err := abi.Timelock.Pack("updateDelay", big.NewInt(0))
	require.NoError(t, err)
	admin.On("UpdateDelay", mock.Anything, uint64(0), timelockAddr).Return(nil)

	_, err = router.Run(ctx, models.NewBatch(
		models.Call{Target: timelockAddr, Data: delayData},
		models.Call{Target: tokenAddr, Data: transferData(t, grantee, 5_000)},
	))
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Equal(t, 1, admin.restored)
	admin.AssertExpectations(t)

	_, err = router.Run(ctx, models.NewBatch(models.Call{Target: timelockAddr, Data: delayData}))
	require.NoError(t, err)
	assert.Equal(t, 1, admin.restored, "nothing to restore after success")
}

package domain

import (
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

func testBatch() models.Batch {
	return models.NewBatch(
		models.Call{
			Target: common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
			Data:   common.FromHex("0xa9059cbb0000000000000000000000009965507d1a55bcc2695c58ba16fb37d819b0a4dc0000000000000000000000000000000000000000000000000000000000000190"),
		},
		models.Call{
			Target: common.HexToAddress("0x000000000000000000000000000000000074696d"),
			Value:  big.NewInt(7),
		},
	)
}

func TestHashProposal(t *testing.T) {
	desc := HashDescription("Proposal #1: Give grant to team")
	assert.Equal(t, crypto.Keccak256Hash([]byte("Proposal #1: Give grant to team")), desc)

	id, err := HashProposal(testBatch(), desc)
	require.NoError(t, err)
	again, err := HashProposal(testBatch(), desc)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	t.Run("description changes the id", func(t *testing.T) {
		other, err := HashProposal(testBatch(), HashDescription("Proposal #1: Give grant to team!"))
		require.NoError(t, err)
		assert.NotEqual(t, id, other)
	})

	t.Run("one calldata byte changes the id", func(t *testing.T) {
		batch := testBatch()
		batch.Calldatas[0][len(batch.Calldatas[0])-1] ^= 0x01
		other, err := HashProposal(batch, desc)
		require.NoError(t, err)
		assert.NotEqual(t, id, other)
	})

	t.Run("value changes the id", func(t *testing.T) {
		batch := testBatch()
		batch.Values[1] = big.NewInt(8)
		other, err := HashProposal(batch, desc)
		require.NoError(t, err)
		assert.NotEqual(t, id, other)
	})

	t.Run("malformed batches", func(t *testing.T) {
		_, err := HashProposal(models.Batch{}, desc)
		assert.ErrorIs(t, err, ErrInvalidBatch)

		batch := testBatch()
		batch.Calldatas = batch.Calldatas[:1]
		_, err = HashProposal(batch, desc)
		assert.ErrorIs(t, err, ErrInvalidBatch)
		assert.Equal(t, ErrValidation, KindOf(err))

		batch = testBatch()
		batch.Values[0] = big.NewInt(-1)
		_, err = HashProposal(batch, desc)
		assert.ErrorIs(t, err, ErrInvalidBatch)
	})
}

func TestHashOperationBatch(t *testing.T) {
	salt := common.HexToHash("0x01")
	id, err := HashOperationBatch(testBatch(), common.Hash{}, salt)
	require.NoError(t, err)

	again, err := HashOperationBatch(testBatch(), common.Hash{}, salt)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	withPredecessor, err := HashOperationBatch(testBatch(), id, salt)
	require.NoError(t, err)
	assert.NotEqual(t, id, withPredecessor)

	otherSalt, err := HashOperationBatch(testBatch(), common.Hash{}, common.HexToHash("0x02"))
	require.NoError(t, err)
	assert.NotEqual(t, id, otherSalt)

	proposalID, err := HashProposal(testBatch(), salt)
	require.NoError(t, err)
	assert.NotEqual(t, proposalID, id)
}

func TestGovernorSalt(t *testing.T) {
	governor := common.HexToAddress("0x00000000000000000000000000000000006f7665")
	desc := HashDescription("salted")
	salt := GovernorSalt(governor, desc)

	for i := 0; i < common.AddressLength; i++ {
		assert.Equal(t, desc[i]^governor[i], salt[i])
	}
	assert.Equal(t, desc[common.AddressLength:], salt[common.AddressLength:])
	assert.Equal(t, desc, GovernorSalt(common.Address{}, desc))
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{ErrInsufficientDelay, ErrValidation},
		{&MissingRoleError{Role: models.RoleExecutor}, ErrAuthorization},
		{&ThresholdError{}, ErrAuthorization},
		{&TimepointError{Err: ErrNotReady}, ErrState},
		{&ProposalStateError{Err: ErrUnexpectedState}, ErrState},
		{&ProposalError{Err: ErrAlreadyVoted}, ErrConflict},
		{&OperationError{Err: ErrAlreadyQueued}, ErrConflict},
		{ErrArithmeticOverflow, ErrArithmetic},
		{&OperationError{Err: ErrPointOverflow}, ErrArithmetic},
		{&OperationError{Err: ErrOperationExpired}, ErrState},
		{&OperationError{Err: ErrUnknownOperation}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
	assert.Nil(t, KindOf(assert.AnError))
}

func TestAddPoints(t *testing.T) {
	sum, err := AddPoints(10, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), sum)

	sum, err = AddPoints(math.MaxUint64-5, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), sum)

	_, err = AddPoints(10, math.MaxUint64)
	assert.ErrorIs(t, err, ErrPointOverflow)
	assert.ErrorIs(t, err, ErrArithmetic)
}

package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

var (
	addressArrayT = mustType("address[]")
	uint256ArrayT = mustType("uint256[]")
	bytesArrayT   = mustType("bytes[]")
	bytes32T      = mustType("bytes32")

	proposalArgs  = abi.Arguments{{Type: addressArrayT}, {Type: uint256ArrayT}, {Type: bytesArrayT}, {Type: bytes32T}}
	operationArgs = abi.Arguments{{Type: addressArrayT}, {Type: uint256ArrayT}, {Type: bytesArrayT}, {Type: bytes32T}, {Type: bytes32T}}
)

func mustType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", name, err))
	}
	return t
}

// HashDescription returns keccak256 of the description string
func HashDescription(description string) common.Hash {
	return crypto.Keccak256Hash([]byte(description))
}

// HashProposal computes the proposal id:
// keccak256(abi.encode(targets, values, calldatas, descriptionHash))
func HashProposal(batch models.Batch, descriptionHash common.Hash) (common.Hash, error) {
	if err := batch.Validate(); err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}
	encoded, err := proposalArgs.Pack(batch.Targets, values(batch), batch.RawCalldatas(), [32]byte(descriptionHash))
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

// HashOperationBatch computes the timelock operation id:
// keccak256(abi.encode(targets, values, payloads, predecessor, salt))
func HashOperationBatch(batch models.Batch, predecessor, salt common.Hash) (common.Hash, error) {
	if err := batch.Validate(); err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}
	encoded, err := operationArgs.Pack(batch.Targets, values(batch), batch.RawCalldatas(), [32]byte(predecessor), [32]byte(salt))
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

// GovernorSalt derives the timelock salt of a proposal: bytes20(governor) ^ descriptionHash.
// The operation id is therefore reproducible from proposal content alone.
func GovernorSalt(governor common.Address, descriptionHash common.Hash) common.Hash {
	salt := descriptionHash
	for i := 0; i < common.AddressLength; i++ {
		salt[i] ^= governor[i]
	}
	return salt
}

func values(batch models.Batch) []*big.Int {
	out := make([]*big.Int, len(batch.Values))
	for i, v := range batch.Values {
		out[i] = new(big.Int).Set(v)
	}
	return out
}

package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Checkpoint records a voting power value from a point onwards
type Checkpoint struct {
	Point uint64       `json:"point"`
	Votes *uint256.Int `json:"votes"`
}

// VoteBookState is the persisted form of the governance token
type VoteBookState struct {
	Symbol            string                            `json:"symbol"`
	Balances          map[common.Address]*uint256.Int   `json:"balances"`
	Delegates         map[common.Address]common.Address `json:"delegates"`
	Checkpoints       map[common.Address][]Checkpoint   `json:"checkpoints"`
	SupplyCheckpoints []Checkpoint                      `json:"supplyCheckpoints"`
}

// LedgerState is the persisted form of a plain transferable token
type LedgerState struct {
	Symbol   string                          `json:"symbol"`
	Address  common.Address                  `json:"address"`
	Balances map[common.Address]*uint256.Int `json:"balances"`
}

// DevnetState is everything outside the engine stores that a local
// devnet needs to survive between CLI invocations
type DevnetState struct {
	Point    uint64        `json:"point"`
	Votes    VoteBookState `json:"votes"`
	Treasury LedgerState   `json:"treasury"`
}

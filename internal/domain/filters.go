package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// ProposalFilter defines filtering options for proposals
type ProposalFilter struct {
	Proposer common.Address
	// States is matched against the derived state, so stores ignore it
	States []models.ProposalState
}

// OperationFilter defines filtering options for timelock operations
type OperationFilter struct {
	PendingOnly bool
	Proposer    common.Address
}

package usecase

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// Clock reports the current point. Points never decrease.
type Clock interface {
	CurrentPoint() uint64
	Mode() config.ClockMode
}

// VotingPowerProvider reports voting weight as of a past point
type VotingPowerProvider interface {
	WeightOf(ctx context.Context, account common.Address, at uint64) (*uint256.Int, error)
	TotalSupplyAt(ctx context.Context, at uint64) (*uint256.Int, error)
}

// OperationExecutor performs the side effects of a batch on behalf of the timelock
type OperationExecutor interface {
	Run(ctx context.Context, batch models.Batch) (*models.ExecutionResult, error)
}

// ProposalRepository handles persistence of proposals.
// Get returns an error wrapping domain.ErrNotFound for unknown ids.
type ProposalRepository interface {
	GetProposal(ctx context.Context, id common.Hash) (*models.Proposal, error)
	SaveProposal(ctx context.Context, proposal *models.Proposal) error
	ListProposals(ctx context.Context, filter domain.ProposalFilter) ([]*models.Proposal, error)
}

// OperationReader gives read access to timelock operations
type OperationReader interface {
	GetOperation(ctx context.Context, id common.Hash) (*models.TimelockOperation, error)
}

// OperationRepository handles persistence of timelock operations and the
// timelock delay
type OperationRepository interface {
	OperationReader
	SaveOperation(ctx context.Context, op *models.TimelockOperation) error
	ListOperations(ctx context.Context, filter domain.OperationFilter) ([]*models.TimelockOperation, error)
	// GetMinDelay returns false when no delay was ever stored
	GetMinDelay(ctx context.Context) (uint64, bool, error)
	SaveMinDelay(ctx context.Context, delay uint64) error
}

// RoleRepository stores role grants keyed by (role, account)
type RoleRepository interface {
	HasRole(ctx context.Context, role models.Role, account common.Address) (bool, error)
	// GrantRole returns false if the grant already existed
	GrantRole(ctx context.Context, role models.Role, account common.Address) (bool, error)
	// RevokeRole returns false if there was nothing to revoke
	RevokeRole(ctx context.Context, role models.Role, account common.Address) (bool, error)
	ListRoleMembers(ctx context.Context, role models.Role) ([]common.Address, error)
}

// DevnetRepository persists the local devnet collaborators
type DevnetRepository interface {
	LoadDevnet(ctx context.Context) (*models.DevnetState, error)
	SaveDevnet(ctx context.Context, state *models.DevnetState) error
}

// EventSink receives governance events as they happen
type EventSink interface {
	OnEvent(ctx context.Context, event domain.GovernanceEvent)
}

// NopEvents is a no-op implementation of EventSink
type NopEvents struct{}

func (NopEvents) OnEvent(context.Context, domain.GovernanceEvent) {}

// Miner advances a block number clock
type Miner interface {
	// Mine advances by n points and returns the new point
	Mine(n uint64) (uint64, error)
}

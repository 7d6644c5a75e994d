package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/govlock/internal/adapters/repository"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// Store keeps every collection in maps. Records are copied on the way in and
// out so callers never share state with the store.
type Store struct {
	mu         sync.RWMutex
	proposals  map[common.Hash]*models.Proposal
	operations map[common.Hash]*models.TimelockOperation
	roles      repository.RoleSet
	minDelay   *uint64
	devnet     *models.DevnetState
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		proposals:  make(map[common.Hash]*models.Proposal),
		operations: make(map[common.Hash]*models.TimelockOperation),
		roles:      make(repository.RoleSet),
	}
}

// GetProposal retrieves a proposal by id
func (s *Store) GetProposal(ctx context.Context, id common.Hash) (*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.proposals[id]
	if !ok {
		return nil, fmt.Errorf("proposal %s: %w", id.Hex(), domain.ErrNotFound)
	}
	return p.Clone(), nil
}

// SaveProposal inserts or replaces a proposal
func (s *Store) SaveProposal(ctx context.Context, proposal *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.proposals[proposal.ID] = proposal.Clone()
	return nil
}

// ListProposals returns proposals matching filter
func (s *Store) ListProposals(ctx context.Context, filter domain.ProposalFilter) ([]*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Proposal
	for _, p := range s.proposals {
		if repository.MatchProposal(filter, p) {
			result = append(result, p.Clone())
		}
	}
	repository.SortProposals(result)
	return result, nil
}

// GetOperation retrieves a timelock operation by id
func (s *Store) GetOperation(ctx context.Context, id common.Hash) (*models.TimelockOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.operations[id]
	if !ok {
		return nil, fmt.Errorf("operation %s: %w", id.Hex(), domain.ErrNotFound)
	}
	return op.Clone(), nil
}

// SaveOperation inserts or replaces a timelock operation
func (s *Store) SaveOperation(ctx context.Context, op *models.TimelockOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.operations[op.ID] = op.Clone()
	return nil
}

// ListOperations returns operations matching filter
func (s *Store) ListOperations(ctx context.Context, filter domain.OperationFilter) ([]*models.TimelockOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.TimelockOperation
	for _, op := range s.operations {
		if repository.MatchOperation(filter, op) {
			result = append(result, op.Clone())
		}
	}
	repository.SortOperations(result)
	return result, nil
}

// GetMinDelay returns the stored delay
func (s *Store) GetMinDelay(ctx context.Context) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.minDelay == nil {
		return 0, false, nil
	}
	return *s.minDelay, true, nil
}

// SaveMinDelay stores the delay
func (s *Store) SaveMinDelay(ctx context.Context, delay uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.minDelay = &delay
	return nil
}

// HasRole reports whether account holds role
func (s *Store) HasRole(ctx context.Context, role models.Role, account common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles.Has(role, account), nil
}

// GrantRole records a grant
func (s *Store) GrantRole(ctx context.Context, role models.Role, account common.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roles.Grant(role, account), nil
}

// RevokeRole removes a grant
func (s *Store) RevokeRole(ctx context.Context, role models.Role, account common.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roles.Revoke(role, account), nil
}

// ListRoleMembers returns the holders of role
func (s *Store) ListRoleMembers(ctx context.Context, role models.Role) ([]common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles.Members(role), nil
}

// LoadDevnet returns the stored devnet state, or ErrNotFound
func (s *Store) LoadDevnet(ctx context.Context) (*models.DevnetState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.devnet == nil {
		return nil, fmt.Errorf("devnet state: %w", domain.ErrNotFound)
	}
	state := *s.devnet
	return &state, nil
}

// SaveDevnet stores the devnet state
func (s *Store) SaveDevnet(ctx context.Context, state *models.DevnetState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *state
	s.devnet = &cp
	return nil
}

package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/govlock/internal/adapters/repository"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

const (
	GovlockDir     = ".govlock"
	ProposalsFile  = "proposals.json"
	OperationsFile = "operations.json"
	RolesFile      = "roles.json"
	TimelockFile   = "timelock.json"
	DevnetFile     = "devnet.json"
)

type timelockSettings struct {
	MinDelay *uint64 `json:"minDelay,omitempty"`
}

// FileRepository stores the engine collections in json files on the system
type FileRepository struct {
	dir        string
	mu         sync.RWMutex
	proposals  map[common.Hash]*models.Proposal
	operations map[common.Hash]*models.TimelockOperation
	roles      repository.RoleSet
	timelock   timelockSettings
	devnet     *models.DevnetState
}

// NewFileRepository creates a repository rooted at dataDir, or at
// <projectRoot>/.govlock when dataDir is empty
func NewFileRepository(projectRoot, dataDir string) (*FileRepository, error) {
	dir := dataDir
	if dir == "" {
		dir = filepath.Join(projectRoot, GovlockDir)
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	r := &FileRepository{
		dir:        dir,
		proposals:  make(map[common.Hash]*models.Proposal),
		operations: make(map[common.Hash]*models.TimelockOperation),
		roles:      make(repository.RoleSet),
	}

	if err := r.load(); err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}
	return r, nil
}

// Dir returns the directory holding the json files
func (r *FileRepository) Dir() string {
	return r.dir
}

// load reads all files
func (r *FileRepository) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadFile(ProposalsFile, &r.proposals); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load proposals: %w", err)
	}
	if err := r.loadFile(OperationsFile, &r.operations); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load operations: %w", err)
	}

	var grants []models.RoleGrant
	if err := r.loadFile(RolesFile, &grants); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load roles: %w", err)
	}
	r.roles = repository.NewRoleSet(grants)

	if err := r.loadFile(TimelockFile, &r.timelock); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load timelock settings: %w", err)
	}

	var devnet models.DevnetState
	err := r.loadFile(DevnetFile, &devnet)
	switch {
	case err == nil:
		r.devnet = &devnet
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to load devnet: %w", err)
	}
	return nil
}

// loadFile loads a JSON file from the data directory
func (r *FileRepository) loadFile(filename string, v any) error {
	data, err := os.ReadFile(filepath.Join(r.dir, filename))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// saveFile saves data to a JSON file in the data directory
func (r *FileRepository) saveFile(filename string, v any) error {
	path := filepath.Join(r.dir, filename)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmpPath, path)
}

// GetProposal retrieves a proposal by id
func (r *FileRepository) GetProposal(ctx context.Context, id common.Hash) (*models.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.proposals[id]
	if !exists {
		return nil, fmt.Errorf("proposal %s: %w", id.Hex(), domain.ErrNotFound)
	}
	return p.Clone(), nil
}

// SaveProposal inserts or replaces a proposal and persists the collection
func (r *FileRepository) SaveProposal(ctx context.Context, proposal *models.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.proposals[proposal.ID]
	r.proposals[proposal.ID] = proposal.Clone()
	if err := r.saveFile(ProposalsFile, r.proposals); err != nil {
		if existed {
			r.proposals[proposal.ID] = prev
		} else {
			delete(r.proposals, proposal.ID)
		}
		return fmt.Errorf("failed to save proposals: %w", err)
	}
	return nil
}

// ListProposals retrieves proposals matching the filter
func (r *FileRepository) ListProposals(ctx context.Context, filter domain.ProposalFilter) ([]*models.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Proposal
	for _, p := range r.proposals {
		if !repository.MatchProposal(filter, p) {
			continue
		}
		result = append(result, p.Clone())
	}
	repository.SortProposals(result)
	return result, nil
}

// GetOperation retrieves a timelock operation by id
func (r *FileRepository) GetOperation(ctx context.Context, id common.Hash) (*models.TimelockOperation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, exists := r.operations[id]
	if !exists {
		return nil, fmt.Errorf("operation %s: %w", id.Hex(), domain.ErrNotFound)
	}
	return op.Clone(), nil
}

// SaveOperation inserts or replaces an operation and persists the collection
func (r *FileRepository) SaveOperation(ctx context.Context, op *models.TimelockOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.operations[op.ID]
	r.operations[op.ID] = op.Clone()
	if err := r.saveFile(OperationsFile, r.operations); err != nil {
		if existed {
			r.operations[op.ID] = prev
		} else {
			delete(r.operations, op.ID)
		}
		return fmt.Errorf("failed to save operations: %w", err)
	}
	return nil
}

// ListOperations retrieves operations matching the filter
func (r *FileRepository) ListOperations(ctx context.Context, filter domain.OperationFilter) ([]*models.TimelockOperation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.TimelockOperation
	for _, op := range r.operations {
		if !repository.MatchOperation(filter, op) {
			continue
		}
		result = append(result, op.Clone())
	}
	repository.SortOperations(result)
	return result, nil
}

// GetMinDelay returns the stored timelock delay
func (r *FileRepository) GetMinDelay(ctx context.Context) (uint64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.timelock.MinDelay == nil {
		return 0, false, nil
	}
	return *r.timelock.MinDelay, true, nil
}

// SaveMinDelay stores the timelock delay
func (r *FileRepository) SaveMinDelay(ctx context.Context, delay uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := timelockSettings{MinDelay: &delay}
	if err := r.saveFile(TimelockFile, next); err != nil {
		return fmt.Errorf("failed to save timelock settings: %w", err)
	}
	r.timelock = next
	return nil
}

// HasRole reports whether account holds role
func (r *FileRepository) HasRole(ctx context.Context, role models.Role, account common.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roles.Has(role, account), nil
}

// GrantRole records a grant and persists the role file
func (r *FileRepository) GrantRole(ctx context.Context, role models.Role, account common.Address) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.roles.Grant(role, account) {
		return false, nil
	}
	if err := r.saveFile(RolesFile, r.roles.Grants()); err != nil {
		r.roles.Revoke(role, account)
		return false, fmt.Errorf("failed to save roles: %w", err)
	}
	return true, nil
}

// RevokeRole removes a grant and persists the role file
func (r *FileRepository) RevokeRole(ctx context.Context, role models.Role, account common.Address) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.roles.Revoke(role, account) {
		return false, nil
	}
	if err := r.saveFile(RolesFile, r.roles.Grants()); err != nil {
		r.roles.Grant(role, account)
		return false, fmt.Errorf("failed to save roles: %w", err)
	}
	return true, nil
}

// ListRoleMembers returns the holders of role
func (r *FileRepository) ListRoleMembers(ctx context.Context, role models.Role) ([]common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roles.Members(role), nil
}

// LoadDevnet returns the stored devnet state
func (r *FileRepository) LoadDevnet(ctx context.Context) (*models.DevnetState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.devnet == nil {
		return nil, fmt.Errorf("devnet state: %w", domain.ErrNotFound)
	}
	state := *r.devnet
	return &state, nil
}

// SaveDevnet persists the devnet state
func (r *FileRepository) SaveDevnet(ctx context.Context, state *models.DevnetState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.saveFile(DevnetFile, state); err != nil {
		return fmt.Errorf("failed to save devnet: %w", err)
	}
	cp := *state
	r.devnet = &cp
	return nil
}

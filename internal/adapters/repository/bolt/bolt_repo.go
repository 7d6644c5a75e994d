package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/govlock/internal/adapters/repository"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	bolt "go.etcd.io/bbolt"
)

// DBFile is the default database file name inside the data directory
const DBFile = "govlock.db"

var (
	proposalsBucket  = []byte("proposals")
	operationsBucket = []byte("operations")
	rolesBucket      = []byte("roles")
	metaBucket       = []byte("meta")
	devnetBucket     = []byte("devnet")

	minDelayKey = []byte("minDelay")
	devnetKey   = []byte("state")

	allBuckets = [][]byte{proposalsBucket, operationsBucket, rolesBucket, metaBucket, devnetBucket}
)

var boltOpts = &bolt.Options{
	// open timeout when file is locked by another govlock process
	Timeout:      time.Second,
	NoGrowSync:   true,
	FreelistType: bolt.FreelistMapType,
}

// BoltRepository stores every collection in one bbolt database. Each write is
// its own transaction, so a reader always sees the last committed save.
type BoltRepository struct {
	db *bolt.DB
}

// NewBoltRepository opens (or creates) the database at path
func NewBoltRepository(path string) (*BoltRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := bolt.Open(path, 0644, boltOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltRepository{db: db}, nil
}

// Close releases the database file lock
func (r *BoltRepository) Close() error {
	return r.db.Close()
}

// GetProposal retrieves a proposal by id
func (r *BoltRepository) GetProposal(ctx context.Context, id common.Hash) (*models.Proposal, error) {
	var p models.Proposal
	if err := r.get(proposalsBucket, id.Bytes(), &p); err != nil {
		return nil, fmt.Errorf("proposal %s: %w", id.Hex(), err)
	}
	return &p, nil
}

// SaveProposal inserts or replaces a proposal
func (r *BoltRepository) SaveProposal(ctx context.Context, proposal *models.Proposal) error {
	return r.put(proposalsBucket, proposal.ID.Bytes(), proposal)
}

// ListProposals returns proposals matching filter
func (r *BoltRepository) ListProposals(ctx context.Context, filter domain.ProposalFilter) ([]*models.Proposal, error) {
	var result []*models.Proposal
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(proposalsBucket).ForEach(func(k, v []byte) error {
			var p models.Proposal
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("decode proposal %x: %w", k, err)
			}
			if repository.MatchProposal(filter, &p) {
				result = append(result, &p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	repository.SortProposals(result)
	return result, nil
}

// GetOperation retrieves a timelock operation by id
func (r *BoltRepository) GetOperation(ctx context.Context, id common.Hash) (*models.TimelockOperation, error) {
	var op models.TimelockOperation
	if err := r.get(operationsBucket, id.Bytes(), &op); err != nil {
		return nil, fmt.Errorf("operation %s: %w", id.Hex(), err)
	}
	return &op, nil
}

// SaveOperation inserts or replaces a timelock operation
func (r *BoltRepository) SaveOperation(ctx context.Context, op *models.TimelockOperation) error {
	return r.put(operationsBucket, op.ID.Bytes(), op)
}

// ListOperations returns operations matching filter
func (r *BoltRepository) ListOperations(ctx context.Context, filter domain.OperationFilter) ([]*models.TimelockOperation, error) {
	var result []*models.TimelockOperation
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(operationsBucket).ForEach(func(k, v []byte) error {
			var op models.TimelockOperation
			if err := json.Unmarshal(v, &op); err != nil {
				return fmt.Errorf("decode operation %x: %w", k, err)
			}
			if repository.MatchOperation(filter, &op) {
				result = append(result, &op)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	repository.SortOperations(result)
	return result, nil
}

// GetMinDelay returns the stored delay
func (r *BoltRepository) GetMinDelay(ctx context.Context) (uint64, bool, error) {
	var (
		delay uint64
		found bool
	)
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metaBucket).Get(minDelayKey)
		if v == nil {
			return nil
		}
		if len(v) != 8 {
			return fmt.Errorf("corrupt min delay record of %d bytes", len(v))
		}
		delay, found = binary.BigEndian.Uint64(v), true
		return nil
	})
	return delay, found, err
}

// SaveMinDelay stores the delay
func (r *BoltRepository) SaveMinDelay(ctx context.Context, delay uint64) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(minDelayKey, binary.BigEndian.AppendUint64(nil, delay))
	})
}

// HasRole reports whether account holds role
func (r *BoltRepository) HasRole(ctx context.Context, role models.Role, account common.Address) (bool, error) {
	var ok bool
	err := r.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(rolesBucket).Get(roleKey(role, account)) != nil
		return nil
	})
	return ok, err
}

// GrantRole records a grant
func (r *BoltRepository) GrantRole(ctx context.Context, role models.Role, account common.Address) (bool, error) {
	var added bool
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(rolesBucket)
		key := roleKey(role, account)
		if b.Get(key) != nil {
			return nil
		}
		added = true
		return b.Put(key, []byte{1})
	})
	return added, err
}

// RevokeRole removes a grant
func (r *BoltRepository) RevokeRole(ctx context.Context, role models.Role, account common.Address) (bool, error) {
	var removed bool
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(rolesBucket)
		key := roleKey(role, account)
		if b.Get(key) == nil {
			return nil
		}
		removed = true
		return b.Delete(key)
	})
	return removed, err
}

// ListRoleMembers returns the holders of role using a prefix scan
func (r *BoltRepository) ListRoleMembers(ctx context.Context, role models.Role) ([]common.Address, error) {
	members := []common.Address{}
	prefix := append([]byte(role), '/')
	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(rolesBucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			members = append(members, common.BytesToAddress(k[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	repository.SortAddresses(members)
	return members, nil
}

// LoadDevnet returns the stored devnet state
func (r *BoltRepository) LoadDevnet(ctx context.Context) (*models.DevnetState, error) {
	var state models.DevnetState
	if err := r.get(devnetBucket, devnetKey, &state); err != nil {
		return nil, fmt.Errorf("devnet state: %w", err)
	}
	return &state, nil
}

// SaveDevnet stores the devnet state
func (r *BoltRepository) SaveDevnet(ctx context.Context, state *models.DevnetState) error {
	return r.put(devnetBucket, devnetKey, state)
}

func (r *BoltRepository) get(bucket, key []byte, v any) error {
	return r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get(key)
		if data == nil {
			return domain.ErrNotFound
		}
		return json.Unmarshal(data, v)
	})
}

func (r *BoltRepository) put(bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", bucket, err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, data)
	})
}

func roleKey(role models.Role, account common.Address) []byte {
	key := make([]byte, 0, len(role)+1+common.AddressLength)
	key = append(key, role...)
	key = append(key, '/')
	return append(key, account.Bytes()...)
}

package models

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Role is a timelock capability. Holding a role never implies holding another.
type Role string

const (
	RoleProposer  Role = "PROPOSER_ROLE"
	RoleExecutor  Role = "EXECUTOR_ROLE"
	RoleCanceller Role = "CANCELLER_ROLE"
	RoleAdmin     Role = "TIMELOCK_ADMIN_ROLE"
)

// AllRoles lists every known role
var AllRoles = []Role{RoleProposer, RoleExecutor, RoleCanceller, RoleAdmin}

// AnyAccount granted a role opens it to every caller
var AnyAccount = common.Address{}

// ID returns the 32 byte role identifier used in calldata
func (r Role) ID() common.Hash {
	return crypto.Keccak256Hash([]byte(r))
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts full role names and short forms such as "proposer"
func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, r := range AllRoles {
		if name == string(r) || name+"_ROLE" == string(r) {
			return r, nil
		}
	}
	if name == "ADMIN" {
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleFromID resolves a role identifier
func RoleFromID(id common.Hash) (Role, error) {
	for _, r := range AllRoles {
		if r.ID() == id {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role id %s", id.Hex())
}

// RoleGrant is a persisted (role, account) record
type RoleGrant struct {
	Role    Role           `json:"role"`
	Account common.Address `json:"account"`
}

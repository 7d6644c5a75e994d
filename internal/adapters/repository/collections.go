// Package repository holds the helpers shared by the storage backends.
package repository

import (
	"bytes"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// MatchProposal applies the stored-field part of a proposal filter
func MatchProposal(filter domain.ProposalFilter, p *models.Proposal) bool {
	if filter.Proposer != (common.Address{}) && p.Proposer != filter.Proposer {
		return false
	}
	return true
}

// MatchOperation applies an operation filter
func MatchOperation(filter domain.OperationFilter, op *models.TimelockOperation) bool {
	if filter.PendingOnly && !op.IsPending() {
		return false
	}
	if filter.Proposer != (common.Address{}) && op.Proposer != filter.Proposer {
		return false
	}
	return true
}

// SortProposals orders proposals by snapshot point, then id
func SortProposals(proposals []*models.Proposal) {
	slices.SortFunc(proposals, func(a, b *models.Proposal) int {
		if a.SnapshotPoint != b.SnapshotPoint {
			if a.SnapshotPoint < b.SnapshotPoint {
				return -1
			}
			return 1
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
}

// SortOperations orders operations by scheduling point, then id
func SortOperations(ops []*models.TimelockOperation) {
	slices.SortFunc(ops, func(a, b *models.TimelockOperation) int {
		if a.ScheduledPoint != b.ScheduledPoint {
			if a.ScheduledPoint < b.ScheduledPoint {
				return -1
			}
			return 1
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
}

// SortAddresses orders addresses bytewise
func SortAddresses(addrs []common.Address) {
	slices.SortFunc(addrs, func(a, b common.Address) int {
		return bytes.Compare(a[:], b[:])
	})
}

// RoleSet is the in-memory form of role grants
type RoleSet map[models.Role]map[common.Address]bool

// Has reports whether account holds role
func (s RoleSet) Has(role models.Role, account common.Address) bool {
	return s[role][account]
}

// Grant adds a grant and reports whether it was new
func (s RoleSet) Grant(role models.Role, account common.Address) bool {
	if s[role] == nil {
		s[role] = make(map[common.Address]bool)
	}
	if s[role][account] {
		return false
	}
	s[role][account] = true
	return true
}

// Revoke removes a grant and reports whether it existed
func (s RoleSet) Revoke(role models.Role, account common.Address) bool {
	if !s[role][account] {
		return false
	}
	delete(s[role], account)
	return true
}

// Members returns the sorted holders of role
func (s RoleSet) Members(role models.Role) []common.Address {
	members := make([]common.Address, 0, len(s[role]))
	for account := range s[role] {
		members = append(members, account)
	}
	SortAddresses(members)
	return members
}

// Grants flattens the set into sorted records
func (s RoleSet) Grants() []models.RoleGrant {
	var grants []models.RoleGrant
	for _, role := range models.AllRoles {
		for _, account := range s.Members(role) {
			grants = append(grants, models.RoleGrant{Role: role, Account: account})
		}
	}
	return grants
}

// NewRoleSet builds a set from grant records
func NewRoleSet(grants []models.RoleGrant) RoleSet {
	s := make(RoleSet)
	for _, g := range grants {
		s.Grant(g.Role, g.Account)
	}
	return s
}

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ProposalState represents the derived state of a governance proposal.
// The numeric values follow the Governor state enum.
type ProposalState uint8

const (
	ProposalStatePending ProposalState = iota
	ProposalStateActive
	ProposalStateCanceled
	ProposalStateDefeated
	ProposalStateSucceeded
	ProposalStateQueued
	ProposalStateExpired
	ProposalStateExecuted
)

var proposalStateNames = []string{
	"Pending",
	"Active",
	"Canceled",
	"Defeated",
	"Succeeded",
	"Queued",
	"Expired",
	"Executed",
}

func (s ProposalState) String() string {
	if int(s) < len(proposalStateNames) {
		return proposalStateNames[s]
	}
	return fmt.Sprintf("ProposalState(%d)", uint8(s))
}

// MarshalText renders the state name
func (s ProposalState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name
func (s *ProposalState) UnmarshalText(text []byte) error {
	for i, name := range proposalStateNames {
		if strings.EqualFold(name, string(text)) {
			*s = ProposalState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown proposal state %q", string(text))
}

// IsFinal reports whether no further transition is possible
func (s ProposalState) IsFinal() bool {
	switch s {
	case ProposalStateCanceled, ProposalStateDefeated, ProposalStateExpired, ProposalStateExecuted:
		return true
	}
	return false
}

// VoteType is the support value of a ballot
type VoteType uint8

const (
	VoteAgainst VoteType = iota
	VoteFor
	VoteAbstain
)

func (v VoteType) String() string {
	switch v {
	case VoteAgainst:
		return "Against"
	case VoteFor:
		return "For"
	case VoteAbstain:
		return "Abstain"
	}
	return fmt.Sprintf("VoteType(%d)", uint8(v))
}

// Valid reports whether v is one of the known support values
func (v VoteType) Valid() bool {
	return v <= VoteAbstain
}

// MarshalText renders the support name
func (v VoteType) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses a support name
func (v *VoteType) UnmarshalText(text []byte) error {
	parsed, err := ParseVoteType(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVoteType accepts the support names and their numeric values
func ParseVoteType(s string) (VoteType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "against", "0", "no":
		return VoteAgainst, nil
	case "for", "1", "yes":
		return VoteFor, nil
	case "abstain", "2":
		return VoteAbstain, nil
	}
	return 0, fmt.Errorf("unknown vote type %q", s)
}

// Tally holds the accumulated weight per vote type
type Tally struct {
	Against *uint256.Int `json:"against"`
	For     *uint256.Int `json:"for"`
	Abstain *uint256.Int `json:"abstain"`
}

// NewTally returns a zeroed tally
func NewTally() Tally {
	return Tally{
		Against: new(uint256.Int),
		For:     new(uint256.Int),
		Abstain: new(uint256.Int),
	}
}

// Bucket returns the counter for a vote type
func (t Tally) Bucket(support VoteType) *uint256.Int {
	switch support {
	case VoteAgainst:
		return t.Against
	case VoteFor:
		return t.For
	case VoteAbstain:
		return t.Abstain
	}
	return nil
}

// Clone returns a deep copy of the tally
func (t Tally) Clone() Tally {
	return Tally{
		Against: cloneWeight(t.Against),
		For:     cloneWeight(t.For),
		Abstain: cloneWeight(t.Abstain),
	}
}

// VoteReceipt records a single ballot
type VoteReceipt struct {
	Voter   common.Address `json:"voter"`
	Support VoteType       `json:"support"`
	Weight  *uint256.Int   `json:"weight"`
	Reason  string         `json:"reason,omitempty"`
	Point   uint64         `json:"point"`
}

// Proposal is the persisted record of a governance proposal
type Proposal struct {
	ID              common.Hash    `json:"id"`
	Proposer        common.Address `json:"proposer"`
	Batch           Batch          `json:"batch"`
	Description     string         `json:"description"`
	DescriptionHash common.Hash    `json:"descriptionHash"`

	// Timeline, all in clock points
	SnapshotPoint  uint64 `json:"snapshot"`
	VoteStartPoint uint64 `json:"voteStart"`
	DeadlinePoint  uint64 `json:"deadline"`

	Tally    Tally                           `json:"tally"`
	Receipts map[common.Address]*VoteReceipt `json:"receipts"`

	Canceled bool `json:"canceled"`

	// TimelockID links the proposal to its timelock operation once queued
	TimelockID common.Hash `json:"timelockId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// HasVoted reports whether account already cast a ballot
func (p *Proposal) HasVoted(account common.Address) bool {
	_, ok := p.Receipts[account]
	return ok
}

// IsQueued reports whether the proposal was handed to the timelock
func (p *Proposal) IsQueued() bool {
	return p.TimelockID != (common.Hash{})
}

// Clone returns a deep copy so callers cannot mutate stored state
func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Batch = p.Batch.Clone()
	cp.Tally = p.Tally.Clone()
	cp.Receipts = make(map[common.Address]*VoteReceipt, len(p.Receipts))
	for voter, r := range p.Receipts {
		rc := *r
		rc.Weight = cloneWeight(r.Weight)
		cp.Receipts[voter] = &rc
	}
	return &cp
}

func cloneWeight(w *uint256.Int) *uint256.Int {
	if w == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(w)
}

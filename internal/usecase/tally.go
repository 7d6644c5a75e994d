package usecase

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

var maxBps = uint256.NewInt(config.MaxQuorumBps)

// VoteTally centralizes weighted accumulation and the quorum formula
type VoteTally struct {
	quorumBps uint32
	counting  config.QuorumCounting
}

// NewVoteTally creates a tally policy from the governor settings
func NewVoteTally(settings config.GovernorSettings) *VoteTally {
	return &VoteTally{
		quorumBps: settings.QuorumBps,
		counting:  settings.QuorumCounting,
	}
}

// AddVote returns a copy of tally with weight added to the support bucket.
// The input tally is left untouched so a failed add changes nothing.
func (t *VoteTally) AddVote(tally models.Tally, support models.VoteType, weight *uint256.Int) (models.Tally, error) {
	if !support.Valid() {
		return tally, fmt.Errorf("%w: %d", domain.ErrInvalidSupport, uint8(support))
	}
	next := tally.Clone()
	bucket := next.Bucket(support)
	if _, overflow := bucket.AddOverflow(bucket, weight); overflow {
		return tally, fmt.Errorf("%w: %s bucket", domain.ErrArithmeticOverflow, support)
	}
	return next, nil
}

// QuorumRequired returns floor(supply * quorumBps / 10000)
func (t *VoteTally) QuorumRequired(supply *uint256.Int) *uint256.Int {
	return QuorumRequired(supply, t.quorumBps)
}

// Counted returns the weight that counts towards quorum under the policy
func (t *VoteTally) Counted(tally models.Tally) *uint256.Int {
	return countedVotes(tally, t.counting)
}

// QuorumReached reports whether the counted votes meet the quorum
func (t *VoteTally) QuorumReached(tally models.Tally, supply *uint256.Int) bool {
	return QuorumReached(tally, supply, t.quorumBps, t.counting)
}

// QuorumRequired returns floor(supply * bps / 10000) using a 512 bit intermediate
func QuorumRequired(supply *uint256.Int, bps uint32) *uint256.Int {
	if supply == nil || bps == 0 {
		return new(uint256.Int)
	}
	required, _ := new(uint256.Int).MulDivOverflow(supply, uint256.NewInt(uint64(bps)), maxBps)
	return required
}

// QuorumReached is the quorum formula: counted >= floor(supply * bps / 10000)
func QuorumReached(tally models.Tally, supply *uint256.Int, bps uint32, counting config.QuorumCounting) bool {
	return countedVotes(tally, counting).Cmp(QuorumRequired(supply, bps)) >= 0
}

// VoteSucceeded reports whether for strictly exceeds against. Ties defeat.
func VoteSucceeded(tally models.Tally) bool {
	return tally.For.Gt(tally.Against)
}

// countedVotes saturates at 2^256-1, which is above any possible requirement
func countedVotes(tally models.Tally, counting config.QuorumCounting) *uint256.Int {
	sum := new(uint256.Int).Set(tally.For)
	if _, overflow := sum.AddOverflow(sum, tally.Abstain); overflow {
		return new(uint256.Int).SetAllOne()
	}
	if counting == config.QuorumCountingAll {
		if _, overflow := sum.AddOverflow(sum, tally.Against); overflow {
			return new(uint256.Int).SetAllOne()
		}
	}
	return sum
}

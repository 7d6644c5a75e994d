package votes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

var (
	// ErrFutureLookup is returned when asking for votes at a point not yet reached
	ErrFutureLookup = errors.New("future lookup")
	// ErrInsufficientBalance is returned when a transfer exceeds the balance
	ErrInsufficientBalance = errors.New("transfer amount exceeds balance")
	// ErrSupplyOverflow is returned when minting would overflow the supply
	ErrSupplyOverflow = errors.New("total supply overflow")
)

// Book is a checkpointed governance token. Balances only count as votes once
// delegated; an account may delegate to itself.
type Book struct {
	mu          sync.RWMutex
	clock       usecase.Clock
	symbol      string
	balances    map[common.Address]*uint256.Int
	delegates   map[common.Address]common.Address
	checkpoints map[common.Address][]models.Checkpoint
	supply      []models.Checkpoint
}

// NewBook creates an empty vote book
func NewBook(symbol string, clock usecase.Clock) *Book {
	return &Book{
		clock:       clock,
		symbol:      symbol,
		balances:    make(map[common.Address]*uint256.Int),
		delegates:   make(map[common.Address]common.Address),
		checkpoints: make(map[common.Address][]models.Checkpoint),
	}
}

// Symbol returns the token symbol
func (b *Book) Symbol() string {
	return b.symbol
}

// WeightOf returns the votes of account at point
func (b *Book) WeightOf(ctx context.Context, account common.Address, at uint64) (*uint256.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if now := b.clock.CurrentPoint(); at > now {
		return nil, fmt.Errorf("%w: %d > %d", ErrFutureLookup, at, now)
	}
	return lookup(b.checkpoints[account], at), nil
}

// TotalSupplyAt returns the total supply at point
func (b *Book) TotalSupplyAt(ctx context.Context, at uint64) (*uint256.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if now := b.clock.CurrentPoint(); at > now {
		return nil, fmt.Errorf("%w: %d > %d", ErrFutureLookup, at, now)
	}
	return lookup(b.supply, at), nil
}

// GetVotes returns the current votes of account
func (b *Book) GetVotes(account common.Address) *uint256.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return latest(b.checkpoints[account])
}

// BalanceOf returns the token balance of account
func (b *Book) BalanceOf(account common.Address) *uint256.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if bal, ok := b.balances[account]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// Delegates returns the delegatee of account, or the zero address
func (b *Book) Delegates(account common.Address) common.Address {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.delegates[account]
}

// Holders returns every account with a balance or votes, sorted
func (b *Book) Holders() []common.Address {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[common.Address]bool)
	for a := range b.balances {
		seen[a] = true
	}
	for a := range b.checkpoints {
		seen[a] = true
	}
	holders := make([]common.Address, 0, len(seen))
	for a := range seen {
		holders = append(holders, a)
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i].Cmp(holders[j]) < 0 })
	return holders
}

// Mint creates amount tokens for to
func (b *Book) Mint(to common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	supply := latest(b.supply)
	if _, overflow := supply.AddOverflow(supply, amount); overflow {
		return ErrSupplyOverflow
	}
	b.supply = b.write(b.supply, supply)
	b.balances[to] = new(uint256.Int).Add(b.balanceLocked(to), amount)
	b.moveVotes(common.Address{}, b.delegates[to], amount)
	return nil
}

// Transfer moves amount from one account to another, moving delegated votes along
func (b *Book) Transfer(from, to common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal := b.balanceLocked(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), bal.Dec(), amount.Dec())
	}
	b.balances[from] = new(uint256.Int).Sub(bal, amount)
	b.balances[to] = new(uint256.Int).Add(b.balanceLocked(to), amount)
	b.moveVotes(b.delegates[from], b.delegates[to], amount)
	return nil
}

// Delegate points the votes of account at delegatee
func (b *Book) Delegate(account, delegatee common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.delegates[account]
	if delegatee == (common.Address{}) {
		delete(b.delegates, account)
	} else {
		b.delegates[account] = delegatee
	}
	b.moveVotes(old, delegatee, b.balanceLocked(account))
}

// Checkpoint captures the book and returns a func restoring it
func (b *Book) Checkpoint() func() {
	state := b.State()
	return func() { b.Restore(state) }
}

// State exports the book for persistence
func (b *Book) State() models.VoteBookState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	state := models.VoteBookState{
		Symbol:            b.symbol,
		Balances:          make(map[common.Address]*uint256.Int, len(b.balances)),
		Delegates:         make(map[common.Address]common.Address, len(b.delegates)),
		Checkpoints:       make(map[common.Address][]models.Checkpoint, len(b.checkpoints)),
		SupplyCheckpoints: cloneCheckpoints(b.supply),
	}
	for a, bal := range b.balances {
		state.Balances[a] = new(uint256.Int).Set(bal)
	}
	for a, d := range b.delegates {
		state.Delegates[a] = d
	}
	for a, cps := range b.checkpoints {
		state.Checkpoints[a] = cloneCheckpoints(cps)
	}
	return state
}

// Restore replaces the book contents with a persisted state
func (b *Book) Restore(state models.VoteBookState) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if state.Symbol != "" {
		b.symbol = state.Symbol
	}
	b.balances = make(map[common.Address]*uint256.Int, len(state.Balances))
	for a, bal := range state.Balances {
		b.balances[a] = new(uint256.Int).Set(bal)
	}
	b.delegates = make(map[common.Address]common.Address, len(state.Delegates))
	for a, d := range state.Delegates {
		b.delegates[a] = d
	}
	b.checkpoints = make(map[common.Address][]models.Checkpoint, len(state.Checkpoints))
	for a, cps := range state.Checkpoints {
		b.checkpoints[a] = cloneCheckpoints(cps)
	}
	b.supply = cloneCheckpoints(state.SupplyCheckpoints)
}

func (b *Book) balanceLocked(account common.Address) *uint256.Int {
	if bal, ok := b.balances[account]; ok {
		return bal
	}
	return new(uint256.Int)
}

// moveVotes shifts amount of voting power between delegatees. The zero
// address stands for "not delegated" and has no checkpoints.
func (b *Book) moveVotes(from, to common.Address, amount *uint256.Int) {
	if from == to || amount.IsZero() {
		return
	}
	if from != (common.Address{}) {
		votes := latest(b.checkpoints[from])
		votes.Sub(votes, amount)
		b.checkpoints[from] = b.write(b.checkpoints[from], votes)
	}
	if to != (common.Address{}) {
		votes := latest(b.checkpoints[to])
		votes.Add(votes, amount)
		b.checkpoints[to] = b.write(b.checkpoints[to], votes)
	}
}

// write records value at the current point, overwriting a checkpoint taken
// earlier at the same point
func (b *Book) write(cps []models.Checkpoint, value *uint256.Int) []models.Checkpoint {
	now := b.clock.CurrentPoint()
	if n := len(cps); n > 0 && cps[n-1].Point == now {
		cps[n-1].Votes = value
		return cps
	}
	return append(cps, models.Checkpoint{Point: now, Votes: value})
}

func lookup(cps []models.Checkpoint, at uint64) *uint256.Int {
	i := sort.Search(len(cps), func(i int) bool { return cps[i].Point > at })
	if i == 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(cps[i-1].Votes)
}

func latest(cps []models.Checkpoint) *uint256.Int {
	if len(cps) == 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(cps[len(cps)-1].Votes)
}

func cloneCheckpoints(cps []models.Checkpoint) []models.Checkpoint {
	out := make([]models.Checkpoint, len(cps))
	for i, cp := range cps {
		out[i] = models.Checkpoint{Point: cp.Point, Votes: new(uint256.Int).Set(cp.Votes)}
	}
	return out
}

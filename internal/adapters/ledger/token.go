package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// ErrInsufficientBalance is returned when a transfer exceeds the balance
var ErrInsufficientBalance = errors.New("transfer amount exceeds balance")

// Token is a plain transferable token living at Address. It plays the
// treasury asset a proposal moves out of the timelock.
type Token struct {
	mu       sync.RWMutex
	symbol   string
	address  common.Address
	balances map[common.Address]*uint256.Int
}

// NewToken creates an empty token
func NewToken(symbol string, address common.Address) *Token {
	return &Token{
		symbol:   symbol,
		address:  address,
		balances: make(map[common.Address]*uint256.Int),
	}
}

// Symbol returns the token symbol
func (t *Token) Symbol() string {
	return t.symbol
}

// Address returns the token contract address
func (t *Token) Address() common.Address {
	return t.address
}

// Mint credits amount to account
func (t *Token) Mint(account common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	bal := t.balanceLocked(account)
	next, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return fmt.Errorf("mint overflows balance of %s", account.Hex())
	}
	t.balances[account] = next
	return nil
}

// Transfer moves amount between accounts
func (t *Token) Transfer(from, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	bal := t.balanceLocked(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s %s, needs %s", ErrInsufficientBalance, from.Hex(), bal.Dec(), t.symbol, amount.Dec())
	}
	t.balances[from] = new(uint256.Int).Sub(bal, amount)
	t.balances[to] = new(uint256.Int).Add(t.balanceLocked(to), amount)
	return nil
}

// BalanceOf returns the balance of account
func (t *Token) BalanceOf(account common.Address) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(uint256.Int).Set(t.balanceLocked(account))
}

// Holders returns accounts with a recorded balance, sorted
func (t *Token) Holders() []common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()

	holders := make([]common.Address, 0, len(t.balances))
	for a := range t.balances {
		holders = append(holders, a)
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i].Cmp(holders[j]) < 0 })
	return holders
}

// Checkpoint captures the balances and returns a func restoring them
func (t *Token) Checkpoint() func() {
	state := t.State()
	return func() { t.Restore(state) }
}

// State exports the token for persistence
func (t *Token) State() models.LedgerState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state := models.LedgerState{
		Symbol:   t.symbol,
		Address:  t.address,
		Balances: make(map[common.Address]*uint256.Int, len(t.balances)),
	}
	for a, bal := range t.balances {
		state.Balances[a] = new(uint256.Int).Set(bal)
	}
	return state
}

// Restore replaces the balances with a persisted state
func (t *Token) Restore(state models.LedgerState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if state.Symbol != "" {
		t.symbol = state.Symbol
	}
	if state.Address != (common.Address{}) {
		t.address = state.Address
	}
	t.balances = make(map[common.Address]*uint256.Int, len(state.Balances))
	for a, bal := range state.Balances {
		t.balances[a] = new(uint256.Int).Set(bal)
	}
}

func (t *Token) balanceLocked(account common.Address) *uint256.Int {
	if bal, ok := t.balances[account]; ok {
		return bal
	}
	return new(uint256.Int)
}

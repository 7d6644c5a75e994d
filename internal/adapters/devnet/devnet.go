package devnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/govlock/internal/adapters/clock"
	"github.com/trebuchet-org/govlock/internal/adapters/executor"
	"github.com/trebuchet-org/govlock/internal/adapters/ledger"
	"github.com/trebuchet-org/govlock/internal/adapters/votes"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// ErrWallClock is returned when mining is asked of a timestamp devnet
var ErrWallClock = errors.New("devnet follows the wall clock and cannot be mined")

const VotesSymbol = "GOV"

// VotesAddress is the fixed address of the devnet governance token
var VotesAddress = common.HexToAddress("0x00000000000000000000000000000000000060f7")

// Devnet bundles the local collaborators of the engine: the clock, the
// governance token and the treasury token, persisted together.
type Devnet struct {
	clock    usecase.Clock
	manual   *clock.Manual
	votes    *votes.Book
	treasury *ledger.Token
	repo     usecase.DevnetRepository
	log      *slog.Logger
}

// Open restores the devnet from repo, or creates it from the genesis
// configuration when nothing was saved yet
func Open(ctx context.Context, cfg *config.RuntimeConfig, repo usecase.DevnetRepository, log *slog.Logger) (*Devnet, error) {
	d := &Devnet{
		repo: repo,
		log:  log.With("component", "Devnet"),
	}

	state, err := repo.LoadDevnet(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		state = nil
	default:
		return nil, fmt.Errorf("failed to load devnet: %w", err)
	}

	if cfg.Clock.Mode == config.ClockModeTimestamp {
		d.clock = clock.NewWall(cfg.Clock.Genesis)
	} else {
		start := cfg.Clock.Genesis
		if state != nil {
			start = state.Point
		}
		d.manual = clock.NewManual(config.ClockModeBlockNumber, start)
		d.clock = d.manual
	}

	d.votes = votes.NewBook(VotesSymbol, d.clock)
	d.treasury = ledger.NewToken(cfg.Treasury.Symbol, cfg.Treasury.Address)

	if state != nil {
		d.votes.Restore(state.Votes)
		d.treasury.Restore(state.Treasury)
		d.log.Debug("devnet restored", "point", d.clock.CurrentPoint(), "holders", len(d.votes.Holders()))
		return d, nil
	}

	if err := d.genesis(cfg); err != nil {
		return nil, err
	}
	if err := d.Save(ctx); err != nil {
		return nil, err
	}
	d.log.Debug("devnet created", "point", d.clock.CurrentPoint(), "allocations", len(cfg.Genesis))
	return d, nil
}

func (d *Devnet) genesis(cfg *config.RuntimeConfig) error {
	for _, alloc := range cfg.Genesis {
		if alloc.Votes != nil {
			if err := d.votes.Mint(alloc.Account, alloc.Votes); err != nil {
				return fmt.Errorf("genesis allocation for %s: %w", alloc.Account.Hex(), err)
			}
		}
		if alloc.Delegate != (common.Address{}) {
			d.votes.Delegate(alloc.Account, alloc.Delegate)
		}
	}
	if cfg.Treasury.Supply != nil && !cfg.Treasury.Supply.IsZero() {
		if err := d.treasury.Mint(cfg.Timelock.Address, cfg.Treasury.Supply); err != nil {
			return fmt.Errorf("treasury supply: %w", err)
		}
	}
	return nil
}

// Clock returns the devnet clock
func (d *Devnet) Clock() usecase.Clock {
	return d.clock
}

// Votes returns the governance token
func (d *Devnet) Votes() *votes.Book {
	return d.votes
}

// Treasury returns the treasury token
func (d *Devnet) Treasury() *ledger.Token {
	return d.treasury
}

// Mine advances a block number devnet by n points
func (d *Devnet) Mine(n uint64) (uint64, error) {
	if d.manual == nil {
		return 0, ErrWallClock
	}
	return d.manual.Mine(n)
}

// AdvanceTo moves a block number devnet to point
func (d *Devnet) AdvanceTo(point uint64) error {
	if d.manual == nil {
		return ErrWallClock
	}
	return d.manual.AdvanceTo(point)
}

// Router returns an executor sending as the timelock with handlers for both
// tokens. The timelock registers its own handler once it exists.
func (d *Devnet) Router(timelock common.Address, log *slog.Logger) *executor.Router {
	router := executor.NewRouter(timelock, log)
	router.Register(d.treasury.Address(), executor.NewTokenHandler(d.treasury))
	router.Register(VotesAddress, executor.NewTokenHandler(d.votes))
	return router
}

// Save persists the devnet state
func (d *Devnet) Save(ctx context.Context) error {
	state := &models.DevnetState{
		Point:    d.clock.CurrentPoint(),
		Votes:    d.votes.State(),
		Treasury: d.treasury.State(),
	}
	if err := d.repo.SaveDevnet(ctx, state); err != nil {
		return fmt.Errorf("failed to save devnet: %w", err)
	}
	return nil
}

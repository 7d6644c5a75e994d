package usecase_test

import (
	"context"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/adapters/clock"
	"github.com/trebuchet-org/govlock/internal/adapters/events"
	"github.com/trebuchet-org/govlock/internal/adapters/executor"
	"github.com/trebuchet-org/govlock/internal/adapters/ledger"
	"github.com/trebuchet-org/govlock/internal/adapters/repository/memory"
	"github.com/trebuchet-org/govlock/internal/adapters/votes"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

var (
	alice    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob      = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	carol    = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	dave     = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	guardian = common.HexToAddress("0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65")
	grantee  = common.HexToAddress("0x9965507D1a55bcC2695C58ba16FB37d819B0A4dc")

	treasuryAddr = common.HexToAddress("0x0000000000000000000000000000000000005352")
)

type fixture struct {
	ctx      context.Context
	clock    *clock.Manual
	store    *memory.Store
	book     *votes.Book
	treasury *ledger.Token
	router   *executor.Router
	events   *events.Recorder
	gov      config.GovernorSettings
	tl       config.TimelockSettings

	lifecycle *usecase.ProposalLifecycle
	timelock  *usecase.TimelockQueue
	engine    *usecase.GovernanceEngine
}

type option func(*config.GovernorSettings, *config.TimelockSettings)

// newFixture builds an engine over the in-memory devnet. The clock starts at
// point 1; alice holds 100 votes, bob 30, carol 40 and dave 50, all
// self-delegated at point 1. The timelock owns 1000 treasury tokens.
func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()
	gov := config.DefaultGovernorSettings()
	gov.QuorumBps = 400
	tl := config.DefaultTimelockSettings()
	tl.Proposers = []common.Address{gov.Address}
	tl.Cancellers = []common.Address{guardian}
	for _, o := range opts {
		o(&gov, &tl)
	}

	f := &fixture{
		ctx:      context.Background(),
		clock:    clock.NewManual(config.ClockModeBlockNumber, 1),
		store:    memory.NewStore(),
		treasury: ledger.NewToken("SRC", treasuryAddr),
		events:   events.NewRecorder(),
		gov:      gov,
		tl:       tl,
	}
	f.book = votes.NewBook("GOV", f.clock)
	for account, amount := range map[common.Address]uint64{alice: 100, bob: 30, carol: 40, dave: 50} {
		require.NoError(t, f.book.Mint(account, uint256.NewInt(amount)))
		f.book.Delegate(account, account)
	}
	require.NoError(t, f.treasury.Mint(tl.Address, uint256.NewInt(1_000)))

	log := slog.Default()
	f.router = executor.NewRouter(tl.Address, log)
	f.router.Register(treasuryAddr, executor.NewTokenHandler(f.treasury))

	f.timelock = usecase.NewTimelockQueue(tl, f.clock, f.store, f.store, f.router, f.events, log)
	f.router.Register(tl.Address, executor.NewTimelockHandler(f.timelock))
	f.lifecycle = usecase.NewProposalLifecycle(gov, f.clock, usecase.NewVoteTally(gov), f.book, f.store, f.store, log)
	f.engine = usecase.NewGovernanceEngine(gov, f.clock, f.book, f.lifecycle, f.timelock, f.events, log)
	require.NoError(t, f.engine.Setup(f.ctx))
	f.events.Reset()
	return f
}

func (f *fixture) mineTo(t *testing.T, point uint64) {
	t.Helper()
	require.NoError(t, f.clock.AdvanceTo(point))
}

func grantBatch(t *testing.T, amount int64) models.Batch {
	t.Helper()
	data, err := abi.ERC20.Pack("transfer", grantee, big.NewInt(amount))
	require.NoError(t, err)
	return models.NewBatch(models.Call{Target: treasuryAddr, Data: data})
}

func (f *fixture) propose(t *testing.T, batch models.Batch, description string) *models.Proposal {
	t.Helper()
	p, err := f.engine.Propose(f.ctx, usecase.ProposeRequest{Batch: batch, Description: description, Proposer: alice})
	require.NoError(t, err)
	return p
}

func (f *fixture) vote(t *testing.T, id common.Hash, voter common.Address, support models.VoteType) {
	t.Helper()
	_, err := f.engine.CastVote(f.ctx, usecase.VoteRequest{ProposalID: id, Voter: voter, Support: support})
	require.NoError(t, err)
}

func timelockCall(t *testing.T, method string, args ...any) []byte {
	t.Helper()
	data, err := abi.Timelock.Pack(method, args...)
	require.NoError(t, err)
	return data
}

package app

import (
	"context"
	"log/slog"

	"github.com/trebuchet-org/govlock/internal/adapters"
	"github.com/trebuchet-org/govlock/internal/adapters/devnet"
	"github.com/trebuchet-org/govlock/internal/adapters/events"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// App is the main application container that holds the engine and the
// devnet it runs on
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Adapters
	Store  adapters.Store
	Devnet *devnet.Devnet
	Events *events.Recorder

	// Use cases
	Engine   *usecase.GovernanceEngine
	Timelock *usecase.TimelockQueue
	Simulate *usecase.SimulateProposal
}

// NewApp creates a new application instance and bootstraps the timelock
func NewApp(
	ctx context.Context,
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	store adapters.Store,
	net *devnet.Devnet,
	recorder *events.Recorder,
	engine *usecase.GovernanceEngine,
	timelock *usecase.TimelockQueue,
	simulate *usecase.SimulateProposal,
) (*App, error) {
	if err := engine.Setup(ctx); err != nil {
		return nil, err
	}
	// Setup events only matter on first use
	recorder.Reset()
	return &App{
		Config:   cfg,
		Log:      log,
		Store:    store,
		Devnet:   net,
		Events:   recorder,
		Engine:   engine,
		Timelock: timelock,
		Simulate: simulate,
	}, nil
}

// Commit persists the devnet after a mutating command
func (a *App) Commit(ctx context.Context) error {
	return a.Devnet.Save(ctx)
}

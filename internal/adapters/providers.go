package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/wire"
	"github.com/trebuchet-org/govlock/internal/adapters/devnet"
	"github.com/trebuchet-org/govlock/internal/adapters/events"
	"github.com/trebuchet-org/govlock/internal/adapters/executor"
	"github.com/trebuchet-org/govlock/internal/adapters/repository/bolt"
	"github.com/trebuchet-org/govlock/internal/adapters/repository/file"
	"github.com/trebuchet-org/govlock/internal/adapters/repository/memory"
	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// Store is the full set of repositories a storage backend provides
type Store interface {
	usecase.ProposalRepository
	usecase.OperationRepository
	usecase.RoleRepository
	usecase.DevnetRepository
}

// ProvideStore opens the configured storage backend. The cleanup closes it.
func ProvideStore(cfg *config.RuntimeConfig, log *slog.Logger) (Store, func(), error) {
	log = log.With("component", "Storage")
	switch cfg.Storage.Backend {
	case config.StorageBackendMemory:
		log.Debug("using in-memory storage")
		return memory.NewStore(), func() {}, nil
	case config.StorageBackendFile:
		repo, err := file.NewFileRepository(cfg.ProjectRoot, cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Debug("using file storage", "dir", repo.Dir())
		return repo, func() {}, nil
	case config.StorageBackendBolt:
		if err := os.MkdirAll(cfg.Storage.Path, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		path := filepath.Join(cfg.Storage.Path, bolt.DBFile)
		repo, err := bolt.NewBoltRepository(path)
		if err != nil {
			return nil, nil, err
		}
		log.Debug("using bolt storage", "path", path)
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Warn("failed to close bolt database", "error", err)
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// ProvideDevnet opens the devnet on the same store as the engine
func ProvideDevnet(ctx context.Context, cfg *config.RuntimeConfig, store Store, log *slog.Logger) (*devnet.Devnet, error) {
	return devnet.Open(ctx, cfg, store, log)
}

// ProvideClock exposes the devnet clock
func ProvideClock(d *devnet.Devnet) usecase.Clock {
	return d.Clock()
}

// ProvideVotingPower exposes the devnet governance token
func ProvideVotingPower(d *devnet.Devnet) usecase.VotingPowerProvider {
	return d.Votes()
}

// ProvideMiner exposes devnet mining
func ProvideMiner(d *devnet.Devnet) usecase.Miner {
	return d
}

// ProvideRouter creates the executor sending as the timelock
func ProvideRouter(cfg *config.RuntimeConfig, d *devnet.Devnet, log *slog.Logger) *executor.Router {
	return d.Router(cfg.Timelock.Address, log)
}

// ProvideTimelockQueue creates the queue and routes calls addressed to the
// timelock back into it
func ProvideTimelockQueue(
	settings config.TimelockSettings,
	clock usecase.Clock,
	store Store,
	router *executor.Router,
	sink usecase.EventSink,
	log *slog.Logger,
) *usecase.TimelockQueue {
	q := usecase.NewTimelockQueue(settings, clock, store, store, router, sink, log)
	router.Register(settings.Address, executor.NewTimelockHandler(q))
	return q
}

// ProvideEventSink logs events and keeps them for rendering
func ProvideEventSink(recorder *events.Recorder, log *slog.Logger) usecase.EventSink {
	return events.Multi{events.NewLogSink(log), recorder}
}

// StorageSet provides the repositories
var StorageSet = wire.NewSet(
	ProvideStore,
	wire.Bind(new(usecase.ProposalRepository), new(Store)),
	wire.Bind(new(usecase.OperationReader), new(Store)),
)

// DevnetSet provides the local chain the engine runs against
var DevnetSet = wire.NewSet(
	ProvideDevnet,
	ProvideClock,
	ProvideVotingPower,
	ProvideMiner,
	ProvideRouter,
	wire.Bind(new(usecase.OperationExecutor), new(*executor.Router)),
)

// EventsSet provides the event sinks
var EventsSet = wire.NewSet(
	events.NewRecorder,
	ProvideEventSink,
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	StorageSet,
	DevnetSet,
	EventsSet,
	ProvideTimelockQueue,
)

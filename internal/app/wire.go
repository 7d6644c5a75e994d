//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/govlock/internal/adapters"
	"github.com/trebuchet-org/govlock/internal/config"
	domainconfig "github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/logging"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

var engineSet = wire.NewSet(
	wire.FieldsOf(new(*domainconfig.RuntimeConfig), "Governor", "Timelock"),
	logging.LoggingSet,
	adapters.AllAdapters,
	usecase.NewVoteTally,
	usecase.NewProposalLifecycle,
	usecase.NewGovernanceEngine,
	usecase.NewSimulateProposal,
	NewApp,
)

// InitApp creates a fully wired App instance from viper settings
func InitApp(ctx context.Context, v *viper.Viper) (*App, func(), error) {
	wire.Build(
		config.Provider,
		engineSet,
	)
	return nil, nil, nil
}

// InitAppWithConfig creates a fully wired App instance for a resolved config
func InitAppWithConfig(ctx context.Context, cfg *domainconfig.RuntimeConfig) (*App, func(), error) {
	wire.Build(engineSet)
	return nil, nil, nil
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govlock/internal/app"
	"github.com/trebuchet-org/govlock/internal/config"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// commands that run without a project app
var standalone = map[string]bool{
	"version":    true,
	"help":       true,
	"completion": true,
	"init":       true,
	"simulate":   true,
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "govlock",
		Short: "Governor and timelock engine for on-chain style governance",
		Long: `govlock runs token-weighted proposals through a voting window and a
delayed, role-gated timelock queue on a local devnet.

Proposals, timelock operations and the devnet are stored under .govlock/
in the project root, next to govlock.toml.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if standalone[cmd.Name()] {
				return nil
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			v := config.SetupViper(projectRoot, cmd)

			appInstance, cleanup, err := app.InitApp(cmd.Context(), v)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cancel := context.CancelFunc(func() {})
			if appInstance.Config.Timeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
			}
			cmd.PostRun = func(cmd *cobra.Command, args []string) {
				cancel()
				cleanup()
			}

			cmd.SetContext(ctx)
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Never prompt, fail on missing or ambiguous ids instead")
	rootCmd.PersistentFlags().String("storage", "", "Storage backend (memory, file, bolt)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for govlock state (default .govlock)")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "governor",
		Title: "Governor Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "timelock",
		Title: "Timelock Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "devnet",
		Title: "Devnet Commands",
	})

	for _, c := range []*cobra.Command{
		NewProposeCmd(),
		NewHashCmd(),
		NewVoteCmd(),
		NewStateCmd(),
		NewShowCmd(),
		NewListCmd(),
		NewQueueCmd(),
		NewExecuteCmd(),
		NewCancelCmd(),
	} {
		c.GroupID = "governor"
		rootCmd.AddCommand(c)
	}

	timelockCmd := NewTimelockCmd()
	timelockCmd.GroupID = "timelock"
	rootCmd.AddCommand(timelockCmd)

	for _, c := range []*cobra.Command{
		NewInitCmd(),
		NewMineCmd(),
		NewDelegateCmd(),
		NewBalancesCmd(),
		NewSimulateCmd(),
	} {
		c.GroupID = "devnet"
		rootCmd.AddCommand(c)
	}

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	a, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return a, nil
}

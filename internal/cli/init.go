package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/config"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a govlock.toml in a project directory",
		Long: `Write a starter govlock.toml with two named accounts, the default governor
and timelock, and a genesis allocation of self-delegated votes. State is
created under .govlock/ by the first command that runs in the project.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, args, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing govlock.toml")
	return cmd
}

// runInit executes the init command
func runInit(cmd *cobra.Command, args []string, force bool) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	path := filepath.Join(dir, config.ConfigFileName)
	if err := config.Starter().Write(path, force); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists, use --force to overwrite it", path)
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Created %s", path)))
	fmt.Fprintln(cmd.OutOrStdout(), "Next: govlock balances, then govlock propose --from alice ...")
	return nil
}

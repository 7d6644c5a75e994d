package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govlock/internal/adapters/devnet"
	"github.com/trebuchet-org/govlock/internal/adapters/interactive"
	"github.com/trebuchet-org/govlock/internal/adapters/progress"
	"github.com/trebuchet-org/govlock/internal/app"
	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// NewQueueCmd creates the queue command
func NewQueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue [proposal]",
		Short: "Schedule a succeeded proposal in the timelock",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			id, err := resolveProposalID(cmd.Context(), a, argAt(args, 0))
			if err != nil {
				return err
			}
			result, err := a.Engine.Queue(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to queue: %w", err)
			}
			if a.Config.JSON {
				if err := commit(cmd, a); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Queued as operation %s, executable at %d",
				result.Operation.ID.Hex(), result.Operation.ReadyPoint)))
			return commit(cmd, a)
		},
	}
}

// NewExecuteCmd creates the execute command
func NewExecuteCmd() *cobra.Command {
	var wait bool
	var attempts uint

	cmd := &cobra.Command{
		Use:   "execute [proposal]",
		Short: "Execute a queued proposal once its delay has passed",
		Long: `Execute a queued proposal through the timelock.

With --wait a proposal that is not ready yet is retried until it is: a block
number devnet is mined up to the ready point, a timestamp devnet is polled
once per block interval.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			id, err := resolveProposalID(cmd.Context(), a, argAt(args, 0))
			if err != nil {
				return err
			}

			var result *usecase.ExecuteProposalResult
			if wait {
				result, err = executeWhenReady(cmd, a, id, attempts)
			} else {
				result, err = a.Engine.Execute(cmd.Context(), id)
			}
			if err != nil {
				return fmt.Errorf("failed to execute: %w", err)
			}
			if a.Config.JSON {
				if err := commit(cmd, a); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Executed %d call(s) at %d",
				result.Operation.Batch.Len(), result.Operation.ExecutedPoint)))
			return commit(cmd, a)
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait (or mine) until the operation is ready")
	cmd.Flags().UintVar(&attempts, "attempts", 30, "Attempts when waiting on a timestamp devnet")
	return cmd
}

// executeWhenReady retries Execute while the operation is not ready yet
func executeWhenReady(cmd *cobra.Command, a *app.App, id common.Hash, attempts uint) (*usecase.ExecuteProposalResult, error) {
	ctx := cmd.Context()
	interval := a.Config.Clock.BlockInterval
	if interval <= 0 {
		interval = time.Second
	}

	waiting := progress.NewWaitProgress(cmd.ErrOrStderr(),
		!a.Config.JSON && !a.Config.NonInteractive && interactive.IsTerminal())
	defer waiting.Done()

	var result *usecase.ExecuteProposalResult
	err := retry.Do(
		func() error {
			var err error
			result, err = a.Engine.Execute(ctx, id)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, domain.ErrNotReady)
		}),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			var tp *domain.TimepointError
			if !errors.As(err, &tp) || tp.Now >= tp.Want {
				return interval
			}
			// A mineable devnet jumps straight to the ready point
			if mineErr := a.Devnet.AdvanceTo(tp.Want); mineErr == nil {
				return 0
			} else if !errors.Is(mineErr, devnet.ErrWallClock) {
				a.Log.Warn("failed to mine", "error", mineErr)
			}
			waiting.Update(id, tp.Now, tp.Want)
			return interval
		}),
		retry.OnRetry(func(n uint, err error) {
			a.Log.Debug("operation not ready", "attempt", n+1, "error", err)
		}),
	)
	return result, err
}

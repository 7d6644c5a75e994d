package cli

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govlock/internal/app"
	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// NewTimelockCmd creates the timelock command group
func NewTimelockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timelock",
		Short: "Inspect and operate the timelock queue",
		Long: `Commands acting on the timelock directly, next to the governor. Every
call is checked against the roles of the --from account.`,
	}

	cmd.AddCommand(
		newTimelockListCmd(),
		newTimelockRolesCmd(),
		newTimelockScheduleCmd(),
		newTimelockExecuteCmd(),
		newTimelockCancelCmd(),
		newTimelockRoleCmd("grant", "Grant a role to an account (requires admin)"),
		newTimelockRoleCmd("revoke", "Revoke a role from an account (requires admin)"),
		newTimelockRoleCmd("renounce", "Give up a role held by the --from account"),
	)
	return cmd
}

func newTimelockListCmd() *cobra.Command {
	var pending bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List timelock operations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			ops, err := a.Timelock.ListOperations(ctx, domain.OperationFilter{PendingOnly: pending})
			if err != nil {
				return err
			}
			minDelay, err := a.Timelock.MinDelay(ctx)
			if err != nil {
				return err
			}
			now := a.Engine.CurrentPoint()

			if a.Config.JSON {
				type item struct {
					*models.TimelockOperation
					State models.OperationState `json:"state"`
				}
				items := make([]item, len(ops))
				for i, op := range ops {
					items[i] = item{TimelockOperation: op, State: op.StateAt(now)}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"minDelay": minDelay, "now": now, "operations": items})
			}
			return render.NewTimelockRenderer(cmd.OutOrStdout(), accountNamer(a)).RenderOperations(ops, minDelay, now)
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "Only list operations that are neither executed nor canceled")
	return cmd
}

func newTimelockRolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the members of every timelock role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			members := make(map[models.Role][]common.Address, len(models.AllRoles))
			for _, role := range models.AllRoles {
				if members[role], err = a.Timelock.RoleMembers(cmd.Context(), role); err != nil {
					return err
				}
			}
			if a.Config.JSON {
				return writeJSON(cmd.OutOrStdout(), members)
			}
			return render.NewTimelockRenderer(cmd.OutOrStdout(), accountNamer(a)).RenderRoles(members)
		},
	}
}

func newTimelockScheduleCmd() *cobra.Command {
	var batch batchFlags
	var from, predecessor, salt string
	var delay uint64

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a batch directly (requires the proposer role)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			b, _, err := batch.load(a)
			if err != nil {
				return err
			}
			caller, err := resolveAccount(a, from)
			if err != nil {
				return err
			}
			params := usecase.ScheduleParams{Batch: b, Delay: delay, Caller: caller}
			if predecessor != "" {
				if params.Predecessor, err = resolveOperationID(cmd.Context(), a, predecessor); err != nil {
					return err
				}
			}
			if salt != "" {
				params.Salt = common.HexToHash(salt)
			}

			op, err := a.Timelock.Schedule(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("failed to schedule: %w", err)
			}
			if a.Config.JSON {
				if err := commit(cmd, a); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), op)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Scheduled %s, ready at %d", op.ID.Hex(), op.ReadyPoint)))
			return commit(cmd, a)
		},
	}

	batch.register(cmd)
	addFromFlag(cmd, &from, "")
	_ = cmd.MarkFlagRequired("from")
	cmd.Flags().StringVar(&predecessor, "predecessor", "", "Operation that must be executed first")
	cmd.Flags().StringVar(&salt, "salt", "", "32 byte salt distinguishing identical batches")
	cmd.Flags().Uint64Var(&delay, "delay", 0, "Delay in points (default: the min delay)")
	return cmd
}

func newTimelockExecuteCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "execute [operation]",
		Short: "Execute a ready operation (requires the executor role unless it is open)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			id, err := resolveOperationID(cmd.Context(), a, argAt(args, 0))
			if err != nil {
				return err
			}
			caller, err := resolveAccount(a, from)
			if err != nil {
				return err
			}
			result, err := a.Timelock.Execute(cmd.Context(), usecase.ExecuteOperationParams{OperationID: id, Caller: caller})
			if err != nil {
				return fmt.Errorf("failed to execute: %w", err)
			}
			if a.Config.JSON {
				if err := commit(cmd, a); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Executed %s", id.Hex())))
			return commit(cmd, a)
		},
	}

	addFromFlag(cmd, &from, "")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newTimelockCancelCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "cancel [operation]",
		Short: "Cancel a pending operation (requires the canceller role)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			id, err := resolveOperationID(cmd.Context(), a, argAt(args, 0))
			if err != nil {
				return err
			}
			caller, err := resolveAccount(a, from)
			if err != nil {
				return err
			}
			op, err := a.Timelock.Cancel(cmd.Context(), id, caller)
			if err != nil {
				return fmt.Errorf("failed to cancel: %w", err)
			}
			if a.Config.JSON {
				if err := commit(cmd, a); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), op)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Operation %s canceled", op.ID.Hex())))
			return commit(cmd, a)
		},
	}

	addFromFlag(cmd, &from, "")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

var pastTense = map[string]string{"grant": "granted", "revoke": "revoked", "renounce": "renounced"}

func newTimelockRoleCmd(action, short string) *cobra.Command {
	var from string

	use := action + " <role> <account>"
	args := cobra.ExactArgs(2)
	if action == "renounce" {
		use = action + " <role>"
		args = cobra.ExactArgs(1)
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

Roles: proposer, executor, canceller, admin. The account "anyone" stands for
the zero address, which opens a role to every caller.`,
		Args: args,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			role, err := models.ParseRole(args[0])
			if err != nil {
				return err
			}
			caller, err := resolveAccount(a, from)
			if err != nil {
				return err
			}
			account := caller
			if len(args) > 1 {
				if account, err = resolveRoleAccount(a, args[1]); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			switch action {
			case "grant":
				err = a.Timelock.GrantRole(ctx, role, account, caller)
			case "revoke":
				err = a.Timelock.RevokeRole(ctx, role, account, caller)
			case "renounce":
				err = a.Timelock.RenounceRole(ctx, role, account, caller)
			}
			if err != nil {
				return fmt.Errorf("failed to %s role: %w", action, err)
			}
			if a.Config.JSON {
				if err := commit(cmd, a); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), models.RoleGrant{Role: role, Account: account})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("%s %s for %s",
				render.Title(pastTense[action]), role, accountNamer(a)(account))))
			return commit(cmd, a)
		},
	}

	addFromFlag(cmd, &from, "")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

// resolveRoleAccount also accepts "anyone" for the zero address
func resolveRoleAccount(a *app.App, s string) (common.Address, error) {
	if strings.EqualFold(strings.TrimSpace(s), "anyone") {
		return models.AnyAccount, nil
	}
	return resolveAccount(a, s)
}

package render

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// TimelockRenderer renders timelock operations and role grants
type TimelockRenderer struct {
	out   io.Writer
	names AccountNamer
}

// NewTimelockRenderer creates a new timelock renderer
func NewTimelockRenderer(out io.Writer, names AccountNamer) *TimelockRenderer {
	return &TimelockRenderer{out: out, names: names}
}

// RenderOperations renders operations with their state at now
func (r *TimelockRenderer) RenderOperations(ops []*models.TimelockOperation, minDelay, now uint64) error {
	fmt.Fprintf(r.out, "%s %s   %s %s\n",
		labelStyle.Sprint("Min delay:"), pointStyle.Sprint(minDelay),
		labelStyle.Sprint("Now:"), pointStyle.Sprint(now))
	if len(ops) == 0 {
		fmt.Fprintln(r.out, "No timelock operations found")
		return nil
	}

	t := newTable("ID", "STATE", "PROPOSER", "SCHEDULED", "READY", "CALLS", "PREDECESSOR")
	for _, op := range ops {
		predecessor := "-"
		if op.HasPredecessor() {
			predecessor = ShortHash(op.Predecessor)
		}
		t.AppendRow(table.Row{
			idStyle.Sprint(ShortHash(op.ID)),
			FormatOperationState(op.StateAt(now)),
			r.names(op.Proposer),
			op.ScheduledPoint,
			op.ReadyPoint,
			op.Batch.Len(),
			predecessor,
		})
	}
	fmt.Fprintln(r.out, t.Render())
	return nil
}

// RenderRoles renders the members of every role
func (r *TimelockRenderer) RenderRoles(members map[models.Role][]common.Address) error {
	t := newTable("ROLE", "MEMBER")
	for _, role := range models.AllRoles {
		accounts := members[role]
		if len(accounts) == 0 {
			t.AppendRow(table.Row{Title(roleLabel(role)), mutedStyle.Sprint("(none)")})
			continue
		}
		for i, account := range accounts {
			label := ""
			if i == 0 {
				label = Title(roleLabel(role))
			}
			t.AppendRow(table.Row{label, r.member(account)})
		}
	}
	fmt.Fprintln(r.out, t.Render())
	return nil
}

func (r *TimelockRenderer) member(account common.Address) string {
	if account == models.AnyAccount {
		return successStyle.Sprint("anyone")
	}
	return r.names(account)
}

func roleLabel(role models.Role) string {
	switch role {
	case models.RoleAdmin:
		return "admin"
	case models.RoleProposer:
		return "proposer"
	case models.RoleExecutor:
		return "executor"
	case models.RoleCanceller:
		return "canceller"
	}
	return role.String()
}

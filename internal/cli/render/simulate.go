package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/holiman/uint256"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

const rule = "------------------------------------------------------"

// SimulationReport is the grant scenario outcome together with the balances
// around it
type SimulationReport struct {
	Result          *usecase.SimulateProposalResult
	GranteeBefore   *uint256.Int
	GranteeAfter    *uint256.Int
	ProposerVotes   *uint256.Int
	TreasuryBalance *uint256.Int
}

// SimulationRenderer prints a simulation step by step
type SimulationRenderer struct {
	out      io.Writer
	names    AccountNamer
	decimals int
}

// NewSimulationRenderer creates a new simulation renderer
func NewSimulationRenderer(out io.Writer, names AccountNamer, decimals int) *SimulationRenderer {
	return &SimulationRenderer{out: out, names: names, decimals: decimals}
}

// Render implements Renderer
func (r *SimulationRenderer) Render(report *SimulationReport) error {
	res := report.Result
	box := func(lines ...string) {
		fmt.Fprintln(r.out, mutedStyle.Sprint("   /"+rule+"\\"))
		for _, l := range lines {
			fmt.Fprintln(r.out, "   "+l)
		}
		fmt.Fprintln(r.out, mutedStyle.Sprint("   \\"+rule+"/"))
	}
	kv := func(label string, value any) string {
		return fmt.Sprintf("%s %v", labelStyle.Sprint(label), value)
	}

	box(
		kv("Timelock SourceToken balance:            ", FormatUnits(report.TreasuryBalance, r.decimals)),
		kv("Grantee SourceToken balance BEFORE vote: ", FormatUnits(report.GranteeBefore, r.decimals)),
		kv("Proposer GovToken votes:                 ", FormatUnits(report.ProposerVotes, r.decimals)),
	)

	steps := res.Steps
	printStep := func(action string) {
		for len(steps) > 0 {
			s := steps[0]
			steps = steps[1:]
			fmt.Fprintf(r.out, "   %s %s   *%s()*\n", labelStyle.Sprint("point:"), pointStyle.Sprint(s.Point), s.Action)
			if s.Action == action {
				return
			}
		}
	}

	printStep("propose")
	fmt.Fprintf(r.out, "   %s %s\n", labelStyle.Sprint("proposal:"), idStyle.Sprint(res.Proposal.ID.Hex()))
	box(
		kv("Proposal Snapshot  : ", res.Snapshot),
		kv("Proposal Deadline  : ", res.Deadline),
		kv("Proposal Threshold : ", res.Threshold.Dec()),
		kv("Timelock Min Delay : ", res.MinDelay),
	)

	for len(steps) > 0 && steps[0].Action == "castVote" {
		printStep("castVote")
	}
	box(
		kv("Against: ", FormatUnits(res.Tally.Against, r.decimals)),
		kv("For:     ", FormatUnits(res.Tally.For, r.decimals)),
		kv("Abstain: ", FormatUnits(res.Tally.Abstain, r.decimals)),
		kv("State:   ", FormatState(res.Outcome)),
	)

	if res.Executed == nil {
		fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("Proposal %s, nothing was queued", strings.ToLower(res.Outcome.String()))))
		return nil
	}
	printStep("queue")
	printStep("execute")
	fmt.Fprintf(r.out, "   %s %s\n", labelStyle.Sprint("Grantee SourceToken balance AFTER vote: "), FormatUnits(report.GranteeAfter, r.decimals))
	return nil
}

package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/holiman/uint256"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// ProposalDetails is everything `show` prints about one proposal
type ProposalDetails struct {
	View      usecase.ProposalView
	Now       uint64
	Quorum    *uint256.Int // nil before the snapshot is final
	Operation *models.TimelockOperation
}

// ProposalRenderer renders proposals
type ProposalRenderer struct {
	out      io.Writer
	names    AccountNamer
	decimals int
}

// NewProposalRenderer creates a new proposal renderer
func NewProposalRenderer(out io.Writer, names AccountNamer, decimals int) *ProposalRenderer {
	return &ProposalRenderer{out: out, names: names, decimals: decimals}
}

// Render implements Renderer
func (r *ProposalRenderer) Render(details *ProposalDetails) error {
	p := details.View.Proposal

	fmt.Fprintf(r.out, "%s %s\n", headerStyle.Sprint("Proposal"), idStyle.Sprint(p.ID.Hex()))
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("State:      "), FormatState(details.View.State))
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Proposer:   "), r.names(p.Proposer))
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Description:"), p.Description)
	fmt.Fprintln(r.out)

	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Snapshot:   "), pointStyle.Sprint(p.SnapshotPoint))
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Vote start: "), pointStyle.Sprint(p.VoteStartPoint))
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Deadline:   "), pointStyle.Sprint(p.DeadlinePoint))
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Now:        "), pointStyle.Sprint(details.Now))
	if details.Operation != nil {
		fmt.Fprintf(r.out, "  %s %s (%s)\n", labelStyle.Sprint("ETA:        "),
			pointStyle.Sprint(details.Operation.ReadyPoint),
			FormatOperationState(details.Operation.StateAt(details.Now)))
		fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Operation:  "), idStyle.Sprint(details.Operation.ID.Hex()))
	}
	fmt.Fprintln(r.out)

	fmt.Fprintln(r.out, headerStyle.Sprint("Votes"))
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("For:    "), FormatUnits(p.Tally.For, r.decimals))
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Against:"), FormatUnits(p.Tally.Against, r.decimals))
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Abstain:"), FormatUnits(p.Tally.Abstain, r.decimals))
	if details.Quorum != nil {
		fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Quorum: "), FormatUnits(details.Quorum, r.decimals))
	}
	if len(p.Receipts) > 0 {
		receipts := lo.Values(p.Receipts)
		receipts = lo.Filter(receipts, func(rc *models.VoteReceipt, _ int) bool { return rc != nil })
		sortReceipts(receipts)
		t := newTable("  VOTER", "SUPPORT", "WEIGHT", "POINT", "REASON")
		for _, rc := range receipts {
			t.AppendRow(table.Row{"  " + r.names(rc.Voter), rc.Support.String(), FormatUnits(rc.Weight, r.decimals), rc.Point, rc.Reason})
		}
		fmt.Fprintln(r.out, t.Render())
	}
	fmt.Fprintln(r.out)

	fmt.Fprintln(r.out, headerStyle.Sprint("Calls"))
	for i, call := range p.Batch.Calls() {
		fmt.Fprintf(r.out, "  %d. %s %s\n", i+1, r.names(call.Target), describeCall(call.Data, r.names))
		if call.Value != nil && call.Value.Sign() != 0 {
			fmt.Fprintf(r.out, "     %s %s\n", labelStyle.Sprint("value:"), call.Value)
		}
	}
	return nil
}

// RenderList renders proposals as a table, oldest first
func (r *ProposalRenderer) RenderList(views []usecase.ProposalView) error {
	if len(views) == 0 {
		fmt.Fprintln(r.out, "No proposals found")
		return nil
	}

	t := newTable("ID", "STATE", "PROPOSER", "DEADLINE", "FOR", "AGAINST", "ABSTAIN", "DESCRIPTION")
	for _, v := range views {
		p := v.Proposal
		t.AppendRow(table.Row{
			idStyle.Sprint(ShortHash(p.ID)),
			FormatState(v.State),
			r.names(p.Proposer),
			p.DeadlinePoint,
			FormatUnits(p.Tally.For, r.decimals),
			FormatUnits(p.Tally.Against, r.decimals),
			FormatUnits(p.Tally.Abstain, r.decimals),
			FirstLine(p.Description, 48),
		})
	}
	fmt.Fprintln(r.out, t.Render())
	return nil
}

// describeCall decodes calldata against the known ABIs, falling back to a
// selector when it is foreign
func describeCall(data []byte, names AccountNamer) string {
	decoded, err := abi.DecodeCall(data)
	if err != nil {
		if len(data) >= 4 {
			return mutedStyle.Sprintf("0x%x… (%d bytes)", data[:4], len(data))
		}
		return mutedStyle.Sprint("(no calldata)")
	}
	return decoded.Describe(names)
}

// FirstLine returns the first line of s, cut to max runes
func FirstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}

func sortReceipts(receipts []*models.VoteReceipt) {
	sort.Slice(receipts, func(i, j int) bool {
		if receipts[i].Point != receipts[j].Point {
			return receipts[i].Point < receipts[j].Point
		}
		return receipts[i].Voter.Cmp(receipts[j].Voter) < 0
	})
}

package render

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Holding is one account's position on the devnet
type Holding struct {
	Account     common.Address `json:"account"`
	Balance     *uint256.Int   `json:"balance"`
	Delegate    common.Address `json:"delegate"`
	VotingPower *uint256.Int   `json:"votingPower"`
	Treasury    *uint256.Int   `json:"treasury"`
}

// BalancesRenderer renders devnet holdings
type BalancesRenderer struct {
	out      io.Writer
	names    AccountNamer
	decimals int
}

// NewBalancesRenderer creates a new balances renderer
func NewBalancesRenderer(out io.Writer, names AccountNamer, decimals int) *BalancesRenderer {
	return &BalancesRenderer{out: out, names: names, decimals: decimals}
}

// Render implements Renderer
func (r *BalancesRenderer) Render(holdings []Holding) error {
	if len(holdings) == 0 {
		fmt.Fprintln(r.out, "No balances found")
		return nil
	}
	t := newTable("ACCOUNT", "GOV", "DELEGATE", "VOTES", "TREASURY")
	for _, h := range holdings {
		delegate := mutedStyle.Sprint("-")
		if h.Delegate != (common.Address{}) {
			delegate = r.names(h.Delegate)
		}
		t.AppendRow(table.Row{
			r.names(h.Account),
			FormatUnits(h.Balance, r.decimals),
			delegate,
			FormatUnits(h.VotingPower, r.decimals),
			FormatUnits(h.Treasury, r.decimals),
		})
	}
	fmt.Fprintln(r.out, t.Render())
	return nil
}

package bot

import (
	"fmt"
	"io"
	"strings"

	"ganaka-trader/internal/portfolio"
)

// WriteReport prints the end-of-session trading summary: open positions,
// cash, positions at cost, total value, return and Profit/Loss status.
func WriteReport(w io.Writer, snap portfolio.Snapshot, sum portfolio.Summary) error {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	fmt.Fprintf(&b, "\n%s\nTRADING SUMMARY\n%s\n", rule, rule)

	fmt.Fprintf(&b, "\nOpen Positions: %d\n", len(snap.Positions))
	for _, p := range snap.Positions {
		fmt.Fprintf(&b, "  - %s: %d shares @ INR %s (cost INR %s)\n",
			p.Symbol, p.Quantity, p.EntryPrice.StringFixed(2), p.Cost.StringFixed(2))
	}

	fmt.Fprintf(&b, "\nFinancial Summary:\n")
	fmt.Fprintf(&b, "  - Initial Balance:  INR %s\n", sum.InitialBalance.StringFixed(2))
	fmt.Fprintf(&b, "  - Cash Balance:     INR %s\n", sum.Cash.StringFixed(2))
	fmt.Fprintf(&b, "  - Positions Value:  INR %s\n", sum.PositionsValue.StringFixed(2))
	fmt.Fprintf(&b, "  - Total Portfolio:  INR %s\n", sum.TotalValue.StringFixed(2))
	fmt.Fprintf(&b, "  - Total Return:     INR %s (%s%%)\n", signed(sum.TotalReturn.StringFixed(2)), signed(sum.ReturnPct.StringFixed(2)))
	fmt.Fprintf(&b, "  - Realized P&L:     INR %s\n", signed(sum.RealizedPnL.StringFixed(2)))

	fmt.Fprintf(&b, "\nTrades: %d (wins %d, losses %d)\n", sum.TotalTrades, sum.Wins, sum.Losses)
	fmt.Fprintf(&b, "Peak Equity: INR %s, Max Drawdown: %s%%\n", sum.PeakEquity.StringFixed(2), sum.MaxDrawdownPct.StringFixed(2))

	status := "Profit"
	if !sum.Profitable() {
		status = "Loss"
	}
	fmt.Fprintf(&b, "\nStatus: %s\n%s\n", status, rule)

	_, err := io.WriteString(w, b.String())
	return err
}

func signed(s string) string {
	if strings.HasPrefix(s, "-") {
		return s
	}
	return "+" + s
}

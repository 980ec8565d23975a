package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/uhyunpark/marketsim/pkg/sim"
)

func printRound(w io.Writer, r sim.RoundReport) {
	fmt.Fprintf(w, "\nROUND %d: %d submitted, %d rejected, %d dropped\n", r.Round, r.Submitted, r.Rejected, r.Dropped)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"participant", "decision"})
	for _, d := range r.Decisions {
		switch {
		case d.Err != nil:
			table.Append([]string{d.Participant, "ERROR (hold): " + d.Error})
		case d.Order == nil:
			table.Append([]string{d.Participant, "HOLD"})
		default:
			table.Append([]string{d.Participant, d.Order.String()})
		}
	}
	table.Render()

	if len(r.Trades) == 0 {
		fmt.Fprintln(w, "No trades executed (no matching orders)")
		return
	}
	for _, t := range r.Trades {
		fmt.Fprintf(w, "  %s\n", t)
	}
}

func printStats(w io.Writer, st sim.Stats) {
	fmt.Fprintf(w, "\nSIMULATION COMPLETE after %d rounds\n", st.Rounds)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"participant", "role", "money", "inventory", "trades", "est. value"})
	for _, p := range st.Participants {
		table.Append([]string{
			p.ID,
			string(p.Role),
			"$" + p.Money.StringFixed(2),
			strconv.FormatInt(p.Inventory, 10),
			strconv.Itoa(p.Trades),
			"$" + p.EstimatedValue.StringFixed(2),
		})
	}
	table.SetCaption(true, fmt.Sprintf("%d trades, %d units", st.TradeCount, st.Volume))
	table.Render()

	if st.AvgPrice != nil {
		fmt.Fprintf(w, "Price range: $%s - $%s\n", st.MinPrice.StringFixed(2), st.MaxPrice.StringFixed(2))
		fmt.Fprintf(w, "Average price: $%s\n", st.AvgPrice.StringFixed(2))
	}
}

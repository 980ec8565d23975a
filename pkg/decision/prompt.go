package decision

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/uhyunpark/marketsim/pkg/app/core/account"
	"github.com/uhyunpark/marketsim/pkg/app/core/market"
)

// BuildPrompt renders the decision request for a language model.
func BuildPrompt(state account.StateSummary, summary market.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an economic agent in a marketplace trading %s.\n\n", summary.Commodity)

	b.WriteString("YOUR STATE:\n")
	fmt.Fprintf(&b, "- Role: %s\n", state.Role)
	fmt.Fprintf(&b, "- Money: $%s\n", state.Money.StringFixed(2))
	fmt.Fprintf(&b, "- Inventory: %d units\n", state.Inventory)
	fmt.Fprintf(&b, "- Personality: %s\n", state.Personality)
	fmt.Fprintf(&b, "- Recent trades: %s\n\n", describeTrades(state))

	fmt.Fprintf(&b, "MARKET CONDITIONS (Round %d):\n", summary.Round)
	fmt.Fprintf(&b, "- Last traded price: %s\n", dollars(summary.LastPrice))
	fmt.Fprintf(&b, "- Average recent price: %s\n", dollars(summary.AvgRecentPrice))
	fmt.Fprintf(&b, "- Pending buy orders: %d\n", summary.PendingBuyCount)
	fmt.Fprintf(&b, "- Pending sell orders: %d\n\n", summary.PendingSellCount)

	b.WriteString("TASK:\n")
	b.WriteString("Decide whether to BUY, SELL, or HOLD this round. Consider your role, current inventory, available money, and market conditions.\n\n")
	b.WriteString("Respond with ONLY a JSON object in this exact format:\n")
	b.WriteString(`{"action": "buy", "quantity": 10, "price": 12.50, "reasoning": "brief explanation"}` + "\nOR\n")
	b.WriteString(`{"action": "sell", "quantity": 5, "price": 11.00, "reasoning": "brief explanation"}` + "\nOR\n")
	b.WriteString(`{"action": "hold", "reasoning": "brief explanation"}` + "\n\n")
	b.WriteString("Ensure quantities and prices are realistic given your constraints.")

	return b.String()
}

func describeTrades(state account.StateSummary) string {
	if len(state.RecentTrades) == 0 {
		return "No recent trades yet."
	}
	parts := make([]string, 0, len(state.RecentTrades))
	for _, t := range state.RecentTrades {
		verb := "Sold"
		if t.BuyerID == state.ID {
			verb = "Bought"
		}
		parts = append(parts, fmt.Sprintf("%s %d @ $%s", verb, t.Quantity, t.Price.StringFixed(2)))
	}
	return strings.Join(parts, "; ")
}

func dollars(p *decimal.Decimal) string {
	if p == nil {
		return "N/A"
	}
	return "$" + p.StringFixed(2)
}

package sim

import (
	"github.com/shopspring/decimal"
	"github.com/uhyunpark/marketsim/pkg/app/core/account"
)

type ParticipantStats struct {
	ID             string          `json:"id"`
	Role           account.Role    `json:"role"`
	Money          decimal.Decimal `json:"money"`
	Inventory      int64           `json:"inventory"`
	Trades         int             `json:"trades"`
	EstimatedValue decimal.Decimal `json:"estimatedValue"`
}

// Stats summarises a finished simulation.
type Stats struct {
	Rounds       int64              `json:"rounds"`
	Participants []ParticipantStats `json:"participants"`
	TradeCount   int                `json:"tradeCount"`
	Volume       int64              `json:"volume"`
	MinPrice     *decimal.Decimal   `json:"minPrice"` // nil when nothing traded
	MaxPrice     *decimal.Decimal   `json:"maxPrice"`
	AvgPrice     *decimal.Decimal   `json:"avgPrice"` // unweighted mean of trade prices
}

// Stats reports the current standing. Inventory is marked at the average of
// the recent trade prices, or at zero before the first trade.
func (s *Simulator) Stats() Stats {
	summary := s.market.Summary()
	trades := s.market.Trades()

	st := Stats{Rounds: summary.Round, TradeCount: len(trades)}
	for _, p := range s.participants.List() {
		st.Participants = append(st.Participants, ParticipantStats{
			ID:             p.ID(),
			Role:           p.Role(),
			Money:          p.Money(),
			Inventory:      p.Inventory(),
			Trades:         len(p.History()),
			EstimatedValue: p.EstimatedValue(summary.AvgRecentPrice),
		})
	}

	if len(trades) == 0 {
		return st
	}
	lo, hi, sum := trades[0].Price, trades[0].Price, decimal.Zero
	for _, t := range trades {
		lo = decimal.Min(lo, t.Price)
		hi = decimal.Max(hi, t.Price)
		sum = sum.Add(t.Price)
		st.Volume += t.Quantity
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(trades)))).Round(2)
	st.MinPrice, st.MaxPrice, st.AvgPrice = &lo, &hi, &avg
	return st
}

func priceField(p *decimal.Decimal) string {
	if p == nil {
		return ""
	}
	return p.StringFixed(2)
}

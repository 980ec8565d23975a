package decision

import (
	"context"
	"hash/fnv"
	"math/rand"

	"github.com/shopspring/decimal"
	"github.com/uhyunpark/marketsim/pkg/app/core/account"
	"github.com/uhyunpark/marketsim/pkg/app/core/market"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
)

// HeuristicProvider trades around a reference price without any network
// calls. Buyers bid, sellers ask and market makers alternate sides by round.
//
// Each decision draws from a generator seeded by (seed, round, participant),
// so results do not depend on the order in which decisions are requested.
type HeuristicProvider struct {
	Seed int64

	// Reference is used until the market has traded. Defaults to 10.
	Reference decimal.Decimal
	// MaxQuantity caps a single order. Defaults to 10.
	MaxQuantity int64
	// HoldRate is the chance of sitting a round out.
	HoldRate float64
}

func NewHeuristicProvider(seed int64) *HeuristicProvider {
	return &HeuristicProvider{
		Seed:        seed,
		Reference:   decimal.NewFromInt(10),
		MaxQuantity: 10,
		HoldRate:    0.2,
	}
}

func (h *HeuristicProvider) Decide(_ context.Context, state account.StateSummary, summary market.Summary) (*orderbook.Order, error) {
	rng := rand.New(rand.NewSource(h.seedFor(state.ID, summary.Round)))
	if rng.Float64() < h.HoldRate {
		return nil, nil
	}

	ref := h.reference(summary)
	maxQty := h.MaxQuantity
	if maxQty <= 0 {
		maxQty = 10
	}

	side := orderbook.Buy
	switch state.Role {
	case account.RoleSeller:
		side = orderbook.Sell
	case account.RoleMarketMaker:
		if summary.Round%2 == 0 {
			side = orderbook.Sell
		}
		// fall over to the side the participant can actually trade
		if side == orderbook.Sell && state.Inventory == 0 {
			side = orderbook.Buy
		} else if side == orderbook.Buy && state.Money.LessThan(ref) && state.Inventory > 0 {
			side = orderbook.Sell
		}
	}

	if side == orderbook.Buy {
		// bid between 10% under and 5% over the reference
		price := jitter(rng, ref, -10, 5)
		if !price.IsPositive() {
			return nil, nil
		}
		affordable := state.Money.Div(price).IntPart()
		if price.Mul(decimal.NewFromInt(affordable)).GreaterThan(state.Money) {
			affordable-- // Div rounds at 16 digits
		}
		if affordable < 1 {
			return nil, nil
		}
		return &orderbook.Order{
			ParticipantID: state.ID,
			Side:          orderbook.Buy,
			Quantity:      1 + rng.Int63n(min(affordable, maxQty)),
			Price:         price,
		}, nil
	}

	if state.Inventory < 1 {
		return nil, nil
	}
	// ask between 5% under and 10% over the reference
	return &orderbook.Order{
		ParticipantID: state.ID,
		Side:          orderbook.Sell,
		Quantity:      1 + rng.Int63n(min(state.Inventory, maxQty)),
		Price:         jitter(rng, ref, -5, 10),
	}, nil
}

func (h *HeuristicProvider) reference(summary market.Summary) decimal.Decimal {
	switch {
	case summary.AvgRecentPrice != nil:
		return *summary.AvgRecentPrice
	case summary.LastPrice != nil:
		return *summary.LastPrice
	case h.Reference.IsPositive():
		return h.Reference
	}
	return decimal.NewFromInt(10)
}

func (h *HeuristicProvider) seedFor(id string, round int64) int64 {
	f := fnv.New64a()
	f.Write([]byte(id))
	return h.Seed ^ int64(f.Sum64()) ^ (round * 0x9E3779B9)
}

// jitter moves ref by a whole percentage drawn from [lo, hi], rounded to cents.
func jitter(rng *rand.Rand, ref decimal.Decimal, lo, hi int) decimal.Decimal {
	pct := lo + rng.Intn(hi-lo+1)
	return ref.Mul(decimal.NewFromInt(int64(100 + pct))).Div(decimal.NewFromInt(100)).Round(2)
}

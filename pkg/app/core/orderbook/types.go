package orderbook

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the two book sides.
func (s Side) Valid() bool { return s == Buy || s == Sell }

// ParseSide accepts "buy"/"sell" in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// Order is a limit order for the market's single commodity.
// Quantity is decremented in place while the order rests in the book.
type Order struct {
	ID            string
	ParticipantID string
	Side          Side
	Quantity      int64           // units of the commodity
	Price         decimal.Decimal // limit price: max for buys, min for sells
	Seq           uint64          // submission sequence, assigned by the book
}

func (o Order) String() string {
	return fmt.Sprintf("%s %d @ $%s (participant: %s)", o.Side, o.Quantity, o.Price.StringFixed(2), o.ParticipantID)
}

// Notional returns Quantity × Price.
func (o Order) Notional() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(o.Quantity))
}

// Trade is an executed exchange between a buyer and a seller.
// Trades are created only by the matching pass and never modified afterwards.
type Trade struct {
	ID         string          `json:"id"`
	BuyerID    string          `json:"buyerId"`
	SellerID   string          `json:"sellerId"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Round      int64           `json:"round"`
	BidOrderID string          `json:"bidOrderId"`
	AskOrderID string          `json:"askOrderId"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Value returns Quantity × Price, the money that changes hands.
func (t Trade) Value() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

func (t Trade) String() string {
	return fmt.Sprintf("Round %d: %s bought %d from %s @ $%s", t.Round, t.BuyerID, t.Quantity, t.SellerID, t.Price.StringFixed(2))
}

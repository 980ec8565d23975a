package market

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uhyunpark/marketsim/pkg/app/core/account"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
)

// summaryWindow is how many trades feed the market summary.
const summaryWindow = 5

var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidPrice       = errors.New("price cannot be negative")
	ErrInvalidSide        = errors.New("side must be buy or sell")
	ErrMissingParticipant = errors.New("order has no participant")

	// ErrUnknownParticipant is reported through OnDrop when an order's
	// participant cannot be resolved during matching.
	ErrUnknownParticipant = errors.New("unknown participant")
)

var two = decimal.NewFromInt(2)

// ParticipantLookup resolves participant ids during matching.
type ParticipantLookup interface {
	Participant(id string) (*account.Participant, bool)
}

// LookupFunc adapts a plain function to ParticipantLookup.
type LookupFunc func(id string) (*account.Participant, bool)

func (f LookupFunc) Participant(id string) (*account.Participant, bool) { return f(id) }

// Market is a single-commodity double auction cleared once per round.
// Orders live only for the round they were submitted in.
type Market struct {
	mu sync.RWMutex

	commodity string
	book      *orderbook.OrderBook
	history   []orderbook.Trade // append-only
	round     int64

	now func() time.Time

	// OnDrop is called for every order removed from the book during matching
	// because its owner could not settle it. It runs under the market lock
	// and must not call back into the market.
	OnDrop func(order orderbook.Order, reason error)
}

// NewMarket creates an empty market for commodity
func NewMarket(commodity string) *Market {
	return &Market{
		commodity: commodity,
		book:      orderbook.NewOrderBook(),
		now:       time.Now,
	}
}

func (m *Market) Commodity() string { return m.commodity }

// Round returns the current round number
func (m *Market) Round() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round
}

// SetRound sets the round stamped on trades executed from now on.
func (m *Market) SetRound(round int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.round = round
}

// ValidateOrder checks an order before it may enter the book.
func ValidateOrder(o orderbook.Order) error {
	if o.ParticipantID == "" {
		return ErrMissingParticipant
	}
	if !o.Side.Valid() {
		return ErrInvalidSide
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, o.Quantity)
	}
	if o.Price.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, o.Price)
	}
	return nil
}

// SubmitOrder rests an order on its side of the book and returns it with the
// assigned ID and sequence. Malformed orders are rejected and never enter
// the book.
func (m *Market) SubmitOrder(o orderbook.Order) (orderbook.Order, error) {
	if err := ValidateOrder(o); err != nil {
		return o, fmt.Errorf("reject order from %s: %w", o.ParticipantID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if o.ID == "" {
		o.ID = fmt.Sprintf("%s-r%d-%d", o.ParticipantID, m.round, m.book.NextSeq())
	}
	return m.book.Add(o), nil
}

// ClearOrders discards every resting order, filled or not.
func (m *Market) ClearOrders() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.book.Clear()
}

// MatchOrders crosses the book and settles every match with the participants
// resolved through lookup. It returns the trades executed by this call in
// execution order.
//
// Best bid meets best ask while bid >= ask, at the midpoint of the two limits,
// for the smaller remaining quantity. Solvency is checked at execution time:
// a buyer that cannot pay, or a seller that cannot deliver, loses the whole
// order and matching continues with the next one. Every iteration removes at
// least one order, so the loop ends within len(bids)+len(asks) steps.
func (m *Market) MatchOrders(lookup ParticipantLookup) []orderbook.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()

	var trades []orderbook.Trade

	for {
		bid, ask := m.book.BestBid(), m.book.BestAsk()
		if bid == nil || ask == nil {
			break
		}
		if bid.Price.LessThan(ask.Price) {
			break // book is uncrossed
		}

		qty := min(bid.Quantity, ask.Quantity)
		price := bid.Price.Add(ask.Price).Div(two)

		buyer, ok := lookup.Participant(bid.ParticipantID)
		if !ok {
			m.drop(m.book.PopBid(), ErrUnknownParticipant)
			continue
		}
		seller, ok := lookup.Participant(ask.ParticipantID)
		if !ok {
			m.drop(m.book.PopAsk(), ErrUnknownParticipant)
			continue
		}

		trade := orderbook.Trade{
			ID:         uuid.NewString(),
			BuyerID:    bid.ParticipantID,
			SellerID:   ask.ParticipantID,
			Quantity:   qty,
			Price:      price,
			Round:      m.round,
			BidOrderID: bid.ID,
			AskOrderID: ask.ID,
			Timestamp:  m.now(),
		}
		if err := account.Settle(buyer, seller, qty, price, trade); err != nil {
			if errors.Is(err, account.ErrInsufficientInventory) {
				m.drop(m.book.PopAsk(), err)
			} else {
				m.drop(m.book.PopBid(), err)
			}
			continue
		}

		trades = append(trades, trade)
		m.history = append(m.history, trade)

		bid.Quantity -= qty
		ask.Quantity -= qty
		if bid.Quantity == 0 {
			m.book.PopBid()
		}
		if ask.Quantity == 0 {
			m.book.PopAsk()
		}
	}
	return trades
}

func (m *Market) drop(o *orderbook.Order, reason error) {
	if m.OnDrop != nil && o != nil {
		m.OnDrop(*o, reason)
	}
}

// Summary is the market view handed to decision providers.
type Summary struct {
	Round             int64            `json:"round"`
	Commodity         string           `json:"commodity"`
	PendingBuyCount   int              `json:"pendingBuyCount"`
	PendingSellCount  int              `json:"pendingSellCount"`
	RecentTradeCount  int              `json:"recentTradeCount"`
	LastPrice         *decimal.Decimal `json:"lastPrice"`      // nil before the first trade
	AvgRecentPrice    *decimal.Decimal `json:"avgRecentPrice"` // nil before the first trade
	TotalRecentVolume int64            `json:"totalRecentVolume"`
}

// Summary reports book depth and statistics over the last five trades.
func (m *Market) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recent := m.recentLocked(summaryWindow)
	s := Summary{
		Round:            m.round,
		Commodity:        m.commodity,
		PendingBuyCount:  m.book.BidCount(),
		PendingSellCount: m.book.AskCount(),
		RecentTradeCount: len(recent),
	}
	if len(recent) == 0 {
		return s
	}

	last := recent[len(recent)-1].Price
	s.LastPrice = &last

	sum := decimal.Zero
	for _, t := range recent {
		sum = sum.Add(t.Price)
		s.TotalRecentVolume += t.Quantity
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(recent)))).Round(2)
	s.AvgRecentPrice = &avg
	return s
}

// Trades returns a copy of the full trade history, oldest first.
func (m *Market) Trades() []orderbook.Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]orderbook.Trade, len(m.history))
	copy(out, m.history)
	return out
}

// RecentTrades returns up to n of the latest trades, oldest first.
func (m *Market) RecentTrades(n int) []orderbook.Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.recentLocked(n)
	out := make([]orderbook.Trade, len(src))
	copy(out, src)
	return out
}

func (m *Market) recentLocked(n int) []orderbook.Trade {
	if n <= 0 {
		return nil
	}
	start := len(m.history) - n
	if start < 0 {
		start = 0
	}
	return m.history[start:]
}

// BidLevels returns resting bid levels, best first.
func (m *Market) BidLevels() []orderbook.PriceLevel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.GetBidLevels()
}

// AskLevels returns resting ask levels, best first.
func (m *Market) AskLevels() []orderbook.PriceLevel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.GetAskLevels()
}

// PendingOrders returns copies of the resting bids and asks in priority order.
func (m *Market) PendingOrders() (bids, asks []orderbook.Order) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book.Bids(), m.book.Asks()
}

func (m *Market) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fmt.Sprintf("Market(%s, round=%d, trades=%d)", m.commodity, m.round, len(m.history))
}

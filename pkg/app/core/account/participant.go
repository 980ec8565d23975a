package account

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
)

var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientInventory = errors.New("insufficient inventory")
)

// recentWindow is how many history entries feed a state summary.
const recentWindow = 3

// Role is informational only; the engine lets any participant buy or sell.
type Role string

const (
	RoleBuyer       Role = "buyer"
	RoleSeller      Role = "seller"
	RoleMarketMaker Role = "market_maker"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleMarketMaker:
		return true
	}
	return false
}

// Participant owns money and inventory of the commodity and keeps a
// chronological record of every trade it took part in.
// Invariant: money >= 0 and inventory >= 0. Mutations that would break it are
// rejected before anything changes.
type Participant struct {
	mu sync.RWMutex

	id          string
	role        Role
	personality string

	money     decimal.Decimal
	inventory int64
	history   []orderbook.Trade // append-only, insertion order = chronological
}

// NewParticipant creates a participant with the given starting balances.
func NewParticipant(id string, role Role, money decimal.Decimal, inventory int64, personality string) (*Participant, error) {
	if id == "" {
		return nil, fmt.Errorf("participant id must not be empty")
	}
	if money.IsNegative() {
		return nil, fmt.Errorf("participant %s: negative starting money %s", id, money)
	}
	if inventory < 0 {
		return nil, fmt.Errorf("participant %s: negative starting inventory %d", id, inventory)
	}
	return &Participant{
		id:          id,
		role:        role,
		personality: personality,
		money:       money,
		inventory:   inventory,
	}, nil
}

func (p *Participant) ID() string          { return p.id }
func (p *Participant) Role() Role          { return p.role }
func (p *Participant) Personality() string { return p.personality }

func (p *Participant) Money() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.money
}

func (p *Participant) Inventory() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.inventory
}

// History returns a copy of the trade history, oldest first.
func (p *Participant) History() []orderbook.Trade {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]orderbook.Trade, len(p.history))
	copy(out, p.history)
	return out
}

// CanBuy reports whether money covers quantity × price.
func (p *Participant) CanBuy(quantity int64, price decimal.Decimal) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.canBuyLocked(quantity, price)
}

// CanSell reports whether inventory covers quantity.
func (p *Participant) CanSell(quantity int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.inventory >= quantity
}

func (p *Participant) canBuyLocked(quantity int64, price decimal.Decimal) bool {
	return p.money.GreaterThanOrEqual(price.Mul(decimal.NewFromInt(quantity)))
}

// ApplyBuy debits quantity × price, credits quantity units and records the
// trade. Returns ErrInsufficientFunds without touching state if unaffordable.
func (p *Participant) ApplyBuy(quantity int64, price decimal.Decimal, trade orderbook.Trade) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.canBuyLocked(quantity, price) {
		return fmt.Errorf("%s cannot afford %d @ $%s (has $%s): %w",
			p.id, quantity, price.StringFixed(2), p.money.StringFixed(2), ErrInsufficientFunds)
	}

	p.money = p.money.Sub(price.Mul(decimal.NewFromInt(quantity)))
	p.inventory += quantity
	p.history = append(p.history, trade)
	return nil
}

// ApplySell debits quantity units, credits quantity × price and records the
// trade. Returns ErrInsufficientInventory without touching state if short.
func (p *Participant) ApplySell(quantity int64, price decimal.Decimal, trade orderbook.Trade) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inventory < quantity {
		return fmt.Errorf("%s cannot sell %d (has %d): %w", p.id, quantity, p.inventory, ErrInsufficientInventory)
	}

	p.money = p.money.Add(price.Mul(decimal.NewFromInt(quantity)))
	p.inventory -= quantity
	p.history = append(p.history, trade)
	return nil
}

// StateSummary is the read-only view handed to a decision provider.
type StateSummary struct {
	ID               string            `json:"id"`
	Role             Role              `json:"role"`
	Personality      string            `json:"personality,omitempty"`
	Money            decimal.Decimal   `json:"money"`
	Inventory        int64             `json:"inventory"`
	RecentTradeCount int               `json:"recentTradeCount"`
	AvgRecentPrice   *decimal.Decimal  `json:"avgRecentPrice"` // nil without history
	RecentTrades     []orderbook.Trade `json:"recentTrades,omitempty"`
}

// StateSummary summarises the participant from its last three trades.
// Money and the average price are rounded to cents.
func (p *Participant) StateSummary() StateSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	start := len(p.history) - recentWindow
	if start < 0 {
		start = 0
	}
	recent := make([]orderbook.Trade, len(p.history)-start)
	copy(recent, p.history[start:])

	s := StateSummary{
		ID:               p.id,
		Role:             p.role,
		Personality:      p.personality,
		Money:            p.money.Round(2),
		Inventory:        p.inventory,
		RecentTradeCount: len(recent),
		RecentTrades:     recent,
	}
	if len(recent) > 0 {
		sum := decimal.Zero
		for _, t := range recent {
			sum = sum.Add(t.Price)
		}
		avg := sum.Div(decimal.NewFromInt(int64(len(recent)))).Round(2)
		s.AvgRecentPrice = &avg
	}
	return s
}

// EstimatedValue is money plus inventory marked at mark. A nil mark values
// the inventory at zero.
func (p *Participant) EstimatedValue(mark *decimal.Decimal) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if mark == nil {
		return p.money
	}
	return p.money.Add(mark.Mul(decimal.NewFromInt(p.inventory)))
}

// Validate checks participant invariants
func (p *Participant) Validate() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.money.IsNegative() {
		return fmt.Errorf("%s: negative money: %s", p.id, p.money)
	}
	if p.inventory < 0 {
		return fmt.Errorf("%s: negative inventory: %d", p.id, p.inventory)
	}
	return nil
}

func (p *Participant) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fmt.Sprintf("Participant(%s, role=%s, money=$%s, inventory=%d)", p.id, p.role, p.money.StringFixed(2), p.inventory)
}

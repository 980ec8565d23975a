package account

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
)

// Settle exchanges quantity units for quantity × price between buyer and
// seller and records trade on both. Both participants stay locked from the
// checks to the last write, so either both legs apply or neither does.
//
// The buyer is checked first. A failure wraps ErrInsufficientFunds or
// ErrInsufficientInventory and leaves both participants untouched. Buyer and
// seller may be the same participant.
func Settle(buyer, seller *Participant, quantity int64, price decimal.Decimal, trade orderbook.Trade) error {
	unlock := lockPair(buyer, seller)
	defer unlock()

	if !buyer.canBuyLocked(quantity, price) {
		return fmt.Errorf("%s cannot afford %d @ $%s (has $%s): %w",
			buyer.id, quantity, price.StringFixed(2), buyer.money.StringFixed(2), ErrInsufficientFunds)
	}
	if seller.inventory < quantity {
		return fmt.Errorf("%s cannot sell %d (has %d): %w", seller.id, quantity, seller.inventory, ErrInsufficientInventory)
	}

	cost := price.Mul(decimal.NewFromInt(quantity))
	buyer.money = buyer.money.Sub(cost)
	buyer.inventory += quantity
	buyer.history = append(buyer.history, trade)

	seller.money = seller.money.Add(cost)
	seller.inventory -= quantity
	seller.history = append(seller.history, trade)
	return nil
}

// lockPair write-locks a and b in id order and returns the matching unlock.
func lockPair(a, b *Participant) (unlock func()) {
	if a == b {
		a.mu.Lock()
		return a.mu.Unlock
	}
	if b.id < a.id {
		a, b = b, a
	}
	a.mu.Lock()
	b.mu.Lock()
	return func() {
		b.mu.Unlock()
		a.mu.Unlock()
	}
}

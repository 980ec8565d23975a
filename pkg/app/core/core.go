// Package core re-exports the market engine subpackages under one import.
package core

import (
	"github.com/shopspring/decimal"
	"github.com/uhyunpark/marketsim/pkg/app/core/account"
	"github.com/uhyunpark/marketsim/pkg/app/core/market"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
)

// From orderbook package
type (
	Side       = orderbook.Side
	Order      = orderbook.Order
	Trade      = orderbook.Trade
	PriceLevel = orderbook.PriceLevel
	OrderBook  = orderbook.OrderBook
)

const (
	Buy  = orderbook.Buy
	Sell = orderbook.Sell
)

func NewOrderBook() *OrderBook {
	return orderbook.NewOrderBook()
}

// From account package
type (
	Participant  = account.Participant
	Role         = account.Role
	Registry     = account.Registry
	StateSummary = account.StateSummary
)

const (
	RoleBuyer       = account.RoleBuyer
	RoleSeller      = account.RoleSeller
	RoleMarketMaker = account.RoleMarketMaker
)

func NewParticipant(id string, role Role, money decimal.Decimal, inventory int64, personality string) (*Participant, error) {
	return account.NewParticipant(id, role, money, inventory, personality)
}

func NewRegistry(participants ...*Participant) (*Registry, error) {
	return account.NewRegistry(participants...)
}

// From market package
type (
	Market            = market.Market
	Summary           = market.Summary
	ParticipantLookup = market.ParticipantLookup
)

func NewMarket(commodity string) *Market {
	return market.NewMarket(commodity)
}

package main

import (
	"github.com/shopspring/decimal"
	"github.com/uhyunpark/marketsim/pkg/app/core/account"
)

type seat struct {
	id          string
	role        account.Role
	money       int64
	inventory   int64
	personality string
}

var defaultRoster = []seat{
	{"alice", account.RoleSeller, 100, 50, "Conservative seller who values steady profits over quick sales. Prefers to wait for good prices."},
	{"bob", account.RoleBuyer, 500, 0, "Strategic buyer looking for good deals. Will hold if prices seem too high."},
	{"charlie", account.RoleSeller, 150, 40, "Aggressive seller who wants to move inventory quickly, even at lower prices."},
	{"diana", account.RoleBuyer, 400, 0, "Eager buyer with strong demand. Willing to pay premium prices to secure inventory."},
}

func newRoster(seats []seat) (*account.Registry, error) {
	reg, err := account.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, s := range seats {
		p, err := account.NewParticipant(s.id, s.role, decimal.NewFromInt(s.money), s.inventory, s.personality)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

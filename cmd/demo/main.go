// Command demo runs one scripted round against a fresh market and prints the
// resulting trades and balances. No decision provider is involved.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/marketsim/pkg/app/core"
)

type scriptedOrder struct {
	participant string
	side        core.Side
	quantity    int64
	price       string
}

var script = []scriptedOrder{
	{"alice", core.Sell, 10, "12"},
	{"charlie", core.Sell, 15, "10"},
	{"bob", core.Buy, 20, "11"},
}

func main() {
	if err := run(os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(w io.Writer) error {
	reg, err := core.NewRegistry()
	if err != nil {
		return err
	}
	for _, p := range []struct {
		id    string
		role  core.Role
		money int64
		inv   int64
	}{
		{"alice", core.RoleSeller, 100, 50},
		{"bob", core.RoleBuyer, 500, 0},
		{"charlie", core.RoleSeller, 150, 40},
	} {
		part, err := core.NewParticipant(p.id, p.role, decimal.NewFromInt(p.money), p.inv, "")
		if err != nil {
			return err
		}
		if err := reg.Register(part); err != nil {
			return err
		}
	}

	m := core.NewMarket("wheat")
	m.SetRound(1)
	m.OnDrop = func(o core.Order, reason error) {
		fmt.Fprintf(w, "dropped %s: %v\n", o, reason)
	}

	for _, so := range script {
		price, err := decimal.NewFromString(so.price)
		if err != nil {
			return err
		}
		o, err := m.SubmitOrder(core.Order{
			ParticipantID: so.participant,
			Side:          so.side,
			Quantity:      so.quantity,
			Price:         price,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "submitted %s\n", o)
	}

	trades := m.MatchOrders(reg)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"buyer", "seller", "qty", "price"})
	for _, t := range trades {
		table.Append([]string{t.BuyerID, t.SellerID, strconv.FormatInt(t.Quantity, 10), "$" + t.Price.StringFixed(2)})
	}
	table.SetCaption(true, "trades")
	table.Render()

	table = tablewriter.NewWriter(w)
	table.SetHeader([]string{"participant", "money", "inventory"})
	for _, p := range reg.List() {
		table.Append([]string{p.ID(), "$" + p.Money().StringFixed(2), strconv.FormatInt(p.Inventory(), 10)})
	}
	table.SetCaption(true, "participants")
	table.Render()

	s := m.Summary()
	fmt.Fprintf(w, "pending: %d bids, %d asks\n", s.PendingBuyCount, s.PendingSellCount)
	if s.LastPrice != nil {
		fmt.Fprintf(w, "last price: $%s, avg: $%s, volume: %d\n",
			s.LastPrice.StringFixed(2), s.AvgRecentPrice.StringFixed(2), s.TotalRecentVolume)
	}
	return reg.ValidateAll()
}

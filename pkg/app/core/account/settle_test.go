package account

import (
	"errors"
	"sync"
	"testing"
)

func TestSettle(t *testing.T) {
	buyer := newTestParticipant(t, "bob", "500", 0)
	seller := newTestParticipant(t, "charlie", "150", 40)

	if err := Settle(buyer, seller, 15, d("10.5"), trade("10.5", 15)); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !buyer.Money().Equal(d("342.5")) || buyer.Inventory() != 15 {
		t.Errorf("buyer = %s", buyer)
	}
	if !seller.Money().Equal(d("307.5")) || seller.Inventory() != 25 {
		t.Errorf("seller = %s", seller)
	}
	if len(buyer.History()) != 1 || len(seller.History()) != 1 {
		t.Error("trade not recorded on both sides")
	}
}

func TestSettleFailureLeavesBothUntouched(t *testing.T) {
	tests := []struct {
		name        string
		buyerMoney  string
		sellerStock int64
		want        error
	}{
		{"buyer short", "10", 40, ErrInsufficientFunds},
		{"seller short", "500", 3, ErrInsufficientInventory},
		{"both short reports buyer", "10", 3, ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buyer := newTestParticipant(t, "bob", tt.buyerMoney, 0)
			seller := newTestParticipant(t, "charlie", "150", tt.sellerStock)

			err := Settle(buyer, seller, 5, d("10"), trade("10", 5))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !buyer.Money().Equal(d(tt.buyerMoney)) || buyer.Inventory() != 0 || len(buyer.History()) != 0 {
				t.Errorf("buyer changed: %s", buyer)
			}
			if !seller.Money().Equal(d("150")) || seller.Inventory() != tt.sellerStock || len(seller.History()) != 0 {
				t.Errorf("seller changed: %s", seller)
			}
		})
	}
}

func TestSettleWithSelf(t *testing.T) {
	p := newTestParticipant(t, "mm", "100", 10)
	if err := Settle(p, p, 4, d("10"), trade("10", 4)); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !p.Money().Equal(d("100")) || p.Inventory() != 10 || len(p.History()) != 2 {
		t.Errorf("participant = %s, history %d", p, len(p.History()))
	}
}

func TestSettleConcurrentOppositeDirections(t *testing.T) {
	a := newTestParticipant(t, "a", "1000", 100)
	b := newTestParticipant(t, "b", "1000", 100)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = Settle(a, b, 1, d("1"), trade("1", 1))
		}()
		go func() {
			defer wg.Done()
			_ = Settle(b, a, 1, d("1"), trade("1", 1))
		}()
	}
	wg.Wait()

	if total := a.Money().Add(b.Money()); !total.Equal(d("2000")) {
		t.Errorf("total money = %s", total)
	}
	if a.Inventory()+b.Inventory() != 200 {
		t.Errorf("total inventory = %d", a.Inventory()+b.Inventory())
	}
	if err := a.Validate(); err != nil {
		t.Error(err)
	}
	if err := b.Validate(); err != nil {
		t.Error(err)
	}
}

package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"
)

func px(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestOrderBook_PriceTimePriority(t *testing.T) {
	ob := NewOrderBook()

	ob.Add(Order{ID: "b1", ParticipantID: "p1", Side: Buy, Quantity: 1, Price: px("10")})
	ob.Add(Order{ID: "b2", ParticipantID: "p2", Side: Buy, Quantity: 1, Price: px("11")})
	ob.Add(Order{ID: "b3", ParticipantID: "p3", Side: Buy, Quantity: 1, Price: px("11")})
	ob.Add(Order{ID: "a1", ParticipantID: "p4", Side: Sell, Quantity: 1, Price: px("12")})
	ob.Add(Order{ID: "a2", ParticipantID: "p5", Side: Sell, Quantity: 1, Price: px("9.5")})
	ob.Add(Order{ID: "a3", ParticipantID: "p6", Side: Sell, Quantity: 1, Price: px("9.5")})

	wantBids := []string{"b2", "b3", "b1"}
	for i, id := range wantBids {
		got := ob.PopBid()
		if got == nil || got.ID != id {
			t.Fatalf("bid pop %d = %+v, want %s", i, got, id)
		}
	}
	wantAsks := []string{"a2", "a3", "a1"}
	for i, id := range wantAsks {
		got := ob.PopAsk()
		if got == nil || got.ID != id {
			t.Fatalf("ask pop %d = %+v, want %s", i, got, id)
		}
	}
	if ob.PopBid() != nil || ob.PopAsk() != nil {
		t.Fatal("expected empty book")
	}
}

func TestOrderBook_SequenceSurvivesClear(t *testing.T) {
	ob := NewOrderBook()
	first := ob.Add(Order{Side: Buy, Quantity: 1, Price: px("1")})
	ob.Clear()
	second := ob.Add(Order{Side: Sell, Quantity: 1, Price: px("1")})

	if second.Seq <= first.Seq {
		t.Errorf("seq went backwards: %d then %d", first.Seq, second.Seq)
	}
	if ob.BidCount() != 0 || ob.AskCount() != 1 {
		t.Errorf("counts = %d/%d, want 0/1", ob.BidCount(), ob.AskCount())
	}
}

func TestOrderBook_ClearIsIdempotent(t *testing.T) {
	ob := NewOrderBook()
	ob.Add(Order{Side: Buy, Quantity: 3, Price: px("5")})
	ob.Add(Order{Side: Sell, Quantity: 3, Price: px("6")})

	for i := 0; i < 2; i++ {
		ob.Clear()
		if ob.BidCount() != 0 || ob.AskCount() != 0 {
			t.Fatalf("clear %d left %d bids / %d asks", i, ob.BidCount(), ob.AskCount())
		}
		if ob.BestBid() != nil || ob.BestAsk() != nil {
			t.Fatalf("clear %d left a best order", i)
		}
	}
}

func TestOrderBook_Levels(t *testing.T) {
	ob := NewOrderBook()
	ob.Add(Order{Side: Buy, Quantity: 2, Price: px("10")})
	ob.Add(Order{Side: Buy, Quantity: 3, Price: px("10.00")})
	ob.Add(Order{Side: Buy, Quantity: 1, Price: px("11")})
	ob.Add(Order{Side: Sell, Quantity: 4, Price: px("13")})
	ob.Add(Order{Side: Sell, Quantity: 5, Price: px("12")})

	bids := ob.GetBidLevels()
	if len(bids) != 2 {
		t.Fatalf("bid levels = %d, want 2", len(bids))
	}
	if !bids[0].Price.Equal(px("11")) || bids[0].Qty != 1 {
		t.Errorf("best bid level = %+v", bids[0])
	}
	if !bids[1].Price.Equal(px("10")) || bids[1].Qty != 5 {
		t.Errorf("second bid level = %+v", bids[1])
	}

	asks := ob.GetAskLevels()
	if len(asks) != 2 || !asks[0].Price.Equal(px("12")) || asks[0].Qty != 5 {
		t.Errorf("ask levels = %+v", asks)
	}
}

func TestOrderBook_SnapshotsAreCopies(t *testing.T) {
	ob := NewOrderBook()
	ob.Add(Order{ID: "b", Side: Buy, Quantity: 4, Price: px("10")})

	bids := ob.Bids()
	bids[0].Quantity = 0

	if ob.BestBid().Quantity != 4 {
		t.Errorf("snapshot mutation leaked into book: qty=%d", ob.BestBid().Quantity)
	}
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{"buy", Buy, false},
		{" SELL ", Sell, false},
		{"Buy", Buy, false},
		{"hold", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSide(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSide(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSide(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

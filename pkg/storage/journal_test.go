package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uhyunpark/marketsim/pkg/app/core/account"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
)

func openMem(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal("")
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func trade(id string, round int64, qty int64, price string) orderbook.Trade {
	return orderbook.Trade{
		ID:        id,
		BuyerID:   "bob",
		SellerID:  "charlie",
		Quantity:  qty,
		Price:     decimal.RequireFromString(price),
		Round:     round,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestJournalTradesByRound(t *testing.T) {
	j := openMem(t)

	if err := j.RecordTrades(1, []orderbook.Trade{trade("t1", 1, 15, "10.5"), trade("t2", 1, 5, "11")}); err != nil {
		t.Fatalf("RecordTrades: %v", err)
	}
	if err := j.RecordTrades(2, []orderbook.Trade{trade("t3", 2, 1, "12")}); err != nil {
		t.Fatalf("RecordTrades: %v", err)
	}

	got, err := j.TradesForRound(1)
	if err != nil {
		t.Fatalf("TradesForRound: %v", err)
	}
	if len(got) != 2 || got[0].ID != "t1" || got[1].ID != "t2" {
		t.Fatalf("round 1 trades = %+v", got)
	}
	if !got[0].Price.Equal(decimal.RequireFromString("10.50")) || got[0].Quantity != 15 {
		t.Errorf("trade decoded as %+v", got[0])
	}

	got, _ = j.TradesForRound(2)
	if len(got) != 1 || got[0].ID != "t3" {
		t.Errorf("round 2 trades = %+v", got)
	}
	got, _ = j.TradesForRound(3)
	if len(got) != 0 {
		t.Errorf("round 3 trades = %+v", got)
	}
}

func TestJournalParticipantHistory(t *testing.T) {
	j := openMem(t)

	for round := int64(1); round <= 3; round++ {
		states := []account.StateSummary{
			{ID: "a", Money: decimal.NewFromInt(100 * round), Inventory: round},
			{ID: "a:b", Money: decimal.NewFromInt(1)},
		}
		if err := j.RecordParticipants(round, states); err != nil {
			t.Fatalf("RecordParticipants: %v", err)
		}
	}

	hist, err := j.ParticipantHistory("a")
	if err != nil {
		t.Fatalf("ParticipantHistory: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("history = %+v, want 3 snapshots", hist)
	}
	for i, s := range hist {
		round := int64(i + 1)
		if s.Round != round || s.ID != "a" || s.Inventory != round || !s.Money.Equal(decimal.NewFromInt(100*round)) {
			t.Errorf("snapshot %d = %+v", i, s)
		}
	}

	if hist, _ := j.ParticipantHistory("nobody"); len(hist) != 0 {
		t.Errorf("unknown participant history = %+v", hist)
	}
}

func TestJournalRunsDoNotOverlap(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")

	first, err := OpenJournal(dir)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	if err := first.RecordTrades(1, []orderbook.Trade{trade("old", 1, 1, "1")}); err != nil {
		t.Fatalf("RecordTrades: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := OpenJournal(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	if second.RunID() == first.RunID() {
		t.Fatal("run ids repeat across opens")
	}
	got, err := second.TradesForRound(1)
	if err != nil {
		t.Fatalf("TradesForRound: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("new run sees previous run's trades: %+v", got)
	}
}

func TestJournalClosed(t *testing.T) {
	j, err := OpenJournal("")
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := j.RecordTrades(1, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("RecordTrades after close = %v", err)
	}
	if _, err := j.TradesForRound(1); !errors.Is(err, ErrClosed) {
		t.Errorf("TradesForRound after close = %v", err)
	}
}

func TestKeyUpperBound(t *testing.T) {
	p := tradeRoundPrefix("r", 7)
	ub := keyUpperBound(p)
	if string(p) != "run:r:trade:0000000007:" || string(ub) != "run:r:trade:0000000007;" {
		t.Errorf("prefix %q bound %q", p, ub)
	}
	if k := string(tradeKey("r", 7, 12)); k != "run:r:trade:0000000007:0000000012" {
		t.Errorf("trade key %q", k)
	}
}

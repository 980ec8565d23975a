package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishTrades(t *testing.T) {
	w := &recordingWriter{}
	p := NewPublisher(w, "wheat")

	trades := []orderbook.Trade{
		{ID: "t1", BuyerID: "bob", SellerID: "charlie", Quantity: 15, Price: decimal.RequireFromString("10.5"), Round: 1},
		{ID: "t2", BuyerID: "bob", SellerID: "alice", Quantity: 5, Price: decimal.RequireFromString("11.5"), Round: 1},
	}
	if err := p.PublishTrades(context.Background(), trades); err != nil {
		t.Fatalf("PublishTrades: %v", err)
	}
	if len(w.msgs) != 2 || string(w.msgs[0].Key) != "t1" || string(w.msgs[1].Key) != "t2" {
		t.Fatalf("messages = %+v", w.msgs)
	}

	var ev Event
	if err := json.Unmarshal(w.msgs[0].Value, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != "trade" || ev.Commodity != "wheat" || ev.Trade == nil || ev.Trade.Quantity != 15 || !ev.Trade.Price.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("event = %+v", ev)
	}

	if err := p.PublishTrades(context.Background(), nil); err != nil || len(w.msgs) != 2 {
		t.Errorf("empty publish wrote messages or failed: %v", err)
	}
}

func TestPublishRound(t *testing.T) {
	w := &recordingWriter{}
	p := NewPublisher(w, "wheat")

	if err := p.PublishRound(context.Background(), RoundEvent{Round: 4, Trades: 2, Volume: 20, LastPrice: "11.50"}); err != nil {
		t.Fatalf("PublishRound: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(w.msgs[0].Value, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(w.msgs[0].Key) != "round-4" || ev.Type != "round" || ev.Round == nil || ev.Round.Volume != 20 {
		t.Errorf("message %s = %+v", w.msgs[0].Key, ev)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("Close = %v, closed = %v", err, w.closed)
	}
}

func TestPublishErrorsWrap(t *testing.T) {
	boom := errors.New("broker down")
	p := NewPublisher(&recordingWriter{err: boom}, "wheat")

	if err := p.PublishRound(context.Background(), RoundEvent{Round: 1}); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if err := p.PublishTrades(context.Background(), []orderbook.Trade{{ID: "x"}}); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

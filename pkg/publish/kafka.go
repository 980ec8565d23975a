// Package publish streams trades and round results to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the message value. Exactly one of Trade or Round is set.
type Event struct {
	Type      string           `json:"type"` // "trade" or "round"
	Commodity string           `json:"commodity"`
	Trade     *orderbook.Trade `json:"trade,omitempty"`
	Round     *RoundEvent      `json:"round,omitempty"`
}

type RoundEvent struct {
	Round     int64  `json:"round"`
	Submitted int    `json:"submitted"`
	Rejected  int    `json:"rejected"`
	Dropped   int    `json:"dropped"`
	Trades    int    `json:"trades"`
	Volume    int64  `json:"volume"`
	LastPrice string `json:"lastPrice,omitempty"`
}

type Publisher struct {
	w         MessageWriter
	commodity string
}

// NewKafkaPublisher writes synchronously to topic with acks from all
// replicas.
func NewKafkaPublisher(brokers []string, topic, commodity string) *Publisher {
	return NewPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}, commodity)
}

var _ MessageWriter = (*kafka.Writer)(nil)

func NewPublisher(w MessageWriter, commodity string) *Publisher {
	return &Publisher{w: w, commodity: commodity}
}

// PublishTrades sends one message per trade, keyed by trade id.
func (p *Publisher) PublishTrades(ctx context.Context, trades []orderbook.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(trades))
	for i := range trades {
		t := trades[i]
		val, err := json.Marshal(Event{Type: "trade", Commodity: p.commodity, Trade: &t})
		if err != nil {
			return fmt.Errorf("encode trade %s: %w", t.ID, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(t.ID), Value: val})
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d trades: %w", len(msgs), err)
	}
	return nil
}

// PublishRound sends the round result keyed by round number.
func (p *Publisher) PublishRound(ctx context.Context, r RoundEvent) error {
	val, err := json.Marshal(Event{Type: "round", Commodity: p.commodity, Round: &r})
	if err != nil {
		return fmt.Errorf("encode round %d: %w", r.Round, err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Key: []byte(fmt.Sprintf("round-%d", r.Round)), Value: val}); err != nil {
		return fmt.Errorf("publish round %d: %w", r.Round, err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.w.Close() }

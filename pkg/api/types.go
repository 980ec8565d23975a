package api

// API response types for REST endpoints and WebSocket messages

import (
	"github.com/shopspring/decimal"
	"github.com/uhyunpark/marketsim/pkg/app/core/account"
	"github.com/uhyunpark/marketsim/pkg/app/core/market"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
	"github.com/uhyunpark/marketsim/pkg/storage"
)

// ==============================
// REST Response Types
// ==============================

// MarketInfo is the market summary plus lifetime totals
type MarketInfo struct {
	market.Summary
	TotalTrades int `json:"totalTrades"`
}

// OrderbookSnapshot represents current orderbook state
type OrderbookSnapshot struct {
	Commodity string       `json:"commodity"`
	Round     int64        `json:"round"`
	Bids      []PriceLevel `json:"bids"`      // Sorted high to low
	Asks      []PriceLevel `json:"asks"`      // Sorted low to high
	Timestamp int64        `json:"timestamp"` // Unix milliseconds
}

// PriceLevel is the resting quantity at one price
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  int64           `json:"size"`
}

// ParticipantInfo is a participant's live state
type ParticipantInfo struct {
	account.StateSummary
	TotalTrades    int             `json:"totalTrades"`
	EstimatedValue decimal.Decimal `json:"estimatedValue"` // inventory marked at the recent average price
}

// HistoryResponse lists end-of-round snapshots from the journal
type HistoryResponse struct {
	Participant string             `json:"participant"`
	RunID       string             `json:"runId"`
	Snapshots   []storage.Snapshot `json:"snapshots"`
}

type RoundTradesResponse struct {
	Round  int64             `json:"round"`
	RunID  string            `json:"runId"`
	Trades []orderbook.Trade `json:"trades"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Commodity string `json:"commodity"`
	Round     int64  `json:"round"`
	WSClients int    `json:"wsClients"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket Message Types
// ==============================

const (
	ChannelTrades = "trades"
	ChannelRounds = "rounds"
)

// WSSubscribeRequest is sent by clients, e.g.
// {"op":"subscribe","channels":["trades"]}
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// TradeMessage is pushed on the trades channel for every execution
type TradeMessage struct {
	Type  string          `json:"type"` // "trade"
	Trade orderbook.Trade `json:"trade"`
}

// RoundMessage is pushed on the rounds channel when a round closes
type RoundMessage struct {
	Type      string         `json:"type"` // "round"
	Round     int64          `json:"round"`
	Submitted int            `json:"submitted"`
	Rejected  int            `json:"rejected"`
	Dropped   int            `json:"dropped"`
	Trades    int            `json:"trades"`
	Volume    int64          `json:"volume"`
	Summary   market.Summary `json:"summary"`
}

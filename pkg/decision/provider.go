// Package decision turns participant and market state into order intents.
package decision

import (
	"context"
	"errors"
	"fmt"

	"github.com/uhyunpark/marketsim/pkg/app/core/account"
	"github.com/uhyunpark/marketsim/pkg/app/core/market"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
)

var (
	ErrMalformedDecision = errors.New("malformed decision")
	ErrMissingAPIKey     = errors.New("missing API key")
)

// Provider decides what a participant does this round. A nil order with a
// nil error means hold. Implementations must not mutate market or
// participant state.
type Provider interface {
	Decide(ctx context.Context, state account.StateSummary, summary market.Summary) (*orderbook.Order, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, state account.StateSummary, summary market.Summary) (*orderbook.Order, error)

func (f ProviderFunc) Decide(ctx context.Context, state account.StateSummary, summary market.Summary) (*orderbook.Order, error) {
	return f(ctx, state, summary)
}

// Hold never trades.
var Hold Provider = ProviderFunc(func(context.Context, account.StateSummary, market.Summary) (*orderbook.Order, error) {
	return nil, nil
})

// ProviderError reports a failed decision for one participant.
type ProviderError struct {
	Participant string
	Op          string // "request" or "parse"
	Err         error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("decision for %s: %s: %v", e.Participant, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

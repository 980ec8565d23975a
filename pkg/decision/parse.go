package decision

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/uhyunpark/marketsim/pkg/app/core/account"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
)

var (
	maxQuantity = decimal.NewFromInt(math.MaxInt64)
	minQuantity = decimal.NewFromInt(math.MinInt64)

	// errQuantityTooLarge marks a quantity no balance could cover.
	errQuantityTooLarge = errors.New("quantity exceeds int64")
)

type rawDecision struct {
	Action    string      `json:"action"`
	Quantity  json.Number `json:"quantity"`
	Price     json.Number `json:"price"`
	Reasoning string      `json:"reasoning"`
}

// ParseDecision extracts the JSON object embedded in a model reply and turns
// it into an order for participantID.
//
// Text outside the outermost braces is ignored. "hold" yields nil. A buy the
// participant cannot afford, or a sell larger than its inventory, also yields
// nil. Anything that cannot be read as a decision returns
// ErrMalformedDecision.
func ParseDecision(participantID, text string, state account.StateSummary) (*orderbook.Order, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrMalformedDecision)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text[start : end+1])))
	dec.UseNumber()
	var raw rawDecision
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDecision, err)
	}

	var side orderbook.Side
	switch strings.ToLower(strings.TrimSpace(raw.Action)) {
	case "hold":
		return nil, nil
	case "buy":
		side = orderbook.Buy
	case "sell":
		side = orderbook.Sell
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrMalformedDecision, raw.Action)
	}

	qty, err := parseQuantity(raw.Quantity)
	if errors.Is(err, errQuantityTooLarge) {
		// neither affordable nor deliverable
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if raw.Price == "" {
		return nil, fmt.Errorf("%w: missing price", ErrMalformedDecision)
	}
	price, err := decimal.NewFromString(raw.Price.String())
	if err != nil {
		return nil, fmt.Errorf("%w: price %q: %v", ErrMalformedDecision, raw.Price, err)
	}

	switch side {
	case orderbook.Buy:
		if state.Money.LessThan(price.Mul(decimal.NewFromInt(qty))) {
			return nil, nil
		}
	case orderbook.Sell:
		if state.Inventory < qty {
			return nil, nil
		}
	}

	return &orderbook.Order{
		ParticipantID: participantID,
		Side:          side,
		Quantity:      qty,
		Price:         price,
	}, nil
}

// parseQuantity accepts integral numbers and truncates fractional ones.
// Values above the int64 range return errQuantityTooLarge, values below it
// are malformed.
func parseQuantity(n json.Number) (int64, error) {
	if n == "" {
		return 0, fmt.Errorf("%w: missing quantity", ErrMalformedDecision)
	}
	if q, err := n.Int64(); err == nil {
		return q, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return 0, fmt.Errorf("%w: quantity %q: %v", ErrMalformedDecision, n, err)
	}
	d = d.Truncate(0)
	switch {
	case d.GreaterThan(maxQuantity):
		return 0, errQuantityTooLarge
	case d.LessThan(minQuantity):
		return 0, fmt.Errorf("%w: quantity %q out of range", ErrMalformedDecision, n)
	}
	return d.IntPart(), nil
}

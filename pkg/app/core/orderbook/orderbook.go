package orderbook

import (
	"container/heap"
	"sort"

	"github.com/shopspring/decimal"
)

type PriceLevel struct {
	Price decimal.Decimal
	Qty   int64 // total qty at this price level
}

// OrderBook holds the resting buy and sell orders of one commodity.
// It is not safe for concurrent use; the owning market serialises access.
type OrderBook struct {
	// Heap-based best price tracking (O(1) peek, O(log n) pop)
	bids *BidHeap
	asks *AskHeap

	seq uint64 // last assigned submission sequence
}

func NewOrderBook() *OrderBook {
	bids := &BidHeap{}
	asks := &AskHeap{}
	heap.Init(bids)
	heap.Init(asks)
	return &OrderBook{bids: bids, asks: asks}
}

// Add stamps the order with the next submission sequence and rests it on
// its side. The caller must not keep the pointer; a copy is stored.
func (ob *OrderBook) Add(o Order) Order {
	ob.seq++
	o.Seq = ob.seq
	cp := o
	if o.Side == Buy {
		heap.Push(ob.bids, &cp)
	} else {
		heap.Push(ob.asks, &cp)
	}
	return o
}

// NextSeq returns the sequence the next Add will assign.
func (ob *OrderBook) NextSeq() uint64 { return ob.seq + 1 }

// BestBid returns the highest-priority buy order, or nil.
func (ob *OrderBook) BestBid() *Order { return ob.bids.Peek() }

// BestAsk returns the highest-priority sell order, or nil.
func (ob *OrderBook) BestAsk() *Order { return ob.asks.Peek() }

// PopBid removes and returns the best buy order.
func (ob *OrderBook) PopBid() *Order {
	if ob.bids.Len() == 0 {
		return nil
	}
	return heap.Pop(ob.bids).(*Order)
}

// PopAsk removes and returns the best sell order.
func (ob *OrderBook) PopAsk() *Order {
	if ob.asks.Len() == 0 {
		return nil
	}
	return heap.Pop(ob.asks).(*Order)
}

func (ob *OrderBook) BidCount() int { return ob.bids.Len() }
func (ob *OrderBook) AskCount() int { return ob.asks.Len() }

// Clear drops every resting order. The submission sequence keeps counting so
// that order IDs stay unique across rounds.
func (ob *OrderBook) Clear() {
	*ob.bids = BidHeap{}
	*ob.asks = AskHeap{}
}

// Bids returns copies of the buy orders in matching priority.
func (ob *OrderBook) Bids() []Order {
	out := make([]Order, 0, ob.bids.Len())
	for _, o := range *ob.bids {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return BidHeap{&out[i], &out[j]}.Less(0, 1) })
	return out
}

// Asks returns copies of the sell orders in matching priority.
func (ob *OrderBook) Asks() []Order {
	out := make([]Order, 0, ob.asks.Len())
	for _, o := range *ob.asks {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return AskHeap{&out[i], &out[j]}.Less(0, 1) })
	return out
}

// GetBidLevels returns all bid price levels sorted high to low (best bid first).
func (ob *OrderBook) GetBidLevels() []PriceLevel {
	return aggregate(ob.Bids())
}

// GetAskLevels returns all ask price levels sorted low to high (best ask first).
func (ob *OrderBook) GetAskLevels() []PriceLevel {
	return aggregate(ob.Asks())
}

// aggregate folds priority-sorted orders into price levels, keeping order.
func aggregate(orders []Order) []PriceLevel {
	var levels []PriceLevel
	for _, o := range orders {
		if n := len(levels); n > 0 && levels[n-1].Price.Equal(o.Price) {
			levels[n-1].Qty += o.Quantity
			continue
		}
		levels = append(levels, PriceLevel{Price: o.Price, Qty: o.Quantity})
	}
	return levels
}

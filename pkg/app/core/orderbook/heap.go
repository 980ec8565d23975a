package orderbook

// BidHeap implements heap.Interface for buy orders (highest price on top,
// earliest Seq first within a price). Use container/heap to manipulate it.
type BidHeap []*Order

func (h BidHeap) Len() int { return len(h) }
func (h BidHeap) Less(i, j int) bool {
	if c := h[i].Price.Cmp(h[j].Price); c != 0 {
		return c > 0
	}
	return h[i].Seq < h[j].Seq
}
func (h BidHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *BidHeap) Push(x interface{}) {
	*h = append(*h, x.(*Order))
}

func (h *BidHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// Peek returns the top order without removing it
func (h BidHeap) Peek() *Order {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

// AskHeap implements heap.Interface for sell orders (lowest price on top,
// earliest Seq first within a price).
type AskHeap []*Order

func (h AskHeap) Len() int { return len(h) }
func (h AskHeap) Less(i, j int) bool {
	if c := h[i].Price.Cmp(h[j].Price); c != 0 {
		return c < 0
	}
	return h[i].Seq < h[j].Seq
}
func (h AskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *AskHeap) Push(x interface{}) {
	*h = append(*h, x.(*Order))
}

func (h *AskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// Peek returns the top order without removing it
func (h AskHeap) Peek() *Order {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

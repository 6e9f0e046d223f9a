package core

// tradeRing is a bounded buffer of recent trades. Appends beyond
// capacity evict the oldest entry. Callers hold the book lock.
type tradeRing struct {
	buf   []Trade
	start int
	count int
}

func newTradeRing(capacity int) *tradeRing {
	if capacity <= 0 {
		capacity = DefaultTradeLogCapacity
	}
	return &tradeRing{buf: make([]Trade, capacity)}
}

func (r *tradeRing) Append(t Trade) {
	idx := (r.start + r.count) % len(r.buf)
	r.buf[idx] = t
	if r.count < len(r.buf) {
		r.count++
	} else {
		r.start = (r.start + 1) % len(r.buf)
	}
}

func (r *tradeRing) Len() int {
	return r.count
}

// Recent returns up to n trades, newest first. Non-positive n yields
// none, the same contract depth has for level summaries.
func (r *tradeRing) Recent(n int) []Trade {
	if n <= 0 {
		return nil
	}
	if n > r.count {
		n = r.count
	}

	out := make([]Trade, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.start + r.count - 1 - i) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}

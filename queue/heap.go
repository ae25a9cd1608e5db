package queue

// entry pairs a pushed value with the order it arrived in, so equal-
// priority elements still drain FIFO, per spec.md §4.4: "draining is FIFO
// within the arrival order already imposed by push serialisation".
type entry[T any] struct {
	value T
	seq   uint64
}

// innerHeap implements container/heap.Interface over a slice of entry[T],
// ordered by a caller-supplied priority function, descending (largest
// priority first - spec.md's default std::greater_equal comparator),
// falling back to arrival order for ties.
type innerHeap[T any] struct {
	items    []entry[T]
	priority func(T) int
}

func (h *innerHeap[T]) Len() int { return len(h.items) }

func (h *innerHeap[T]) Less(i, j int) bool {
	pi, pj := h.priority(h.items[i].value), h.priority(h.items[j].value)
	if pi != pj {
		return pi > pj
	}
	return h.items[i].seq < h.items[j].seq
}

func (h *innerHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *innerHeap[T]) Push(x any) { h.items = append(h.items, x.(entry[T])) }

func (h *innerHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

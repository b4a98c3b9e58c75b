package sortpkg

// chunkCursor tracks one spilled, pre-sorted chunk file during the k-way
// merge: the value currently loaded, where to read the next one from, and
// where the chunk ends.
type chunkCursor struct {
	value      uint64
	readOffset int64 // in values, not bytes
	endOffset  int64 // exclusive, in values
	chunkID    int
}

// cursorHeap is a container/heap min-heap over chunkCursor.value, the Go
// analogue of the std::priority_queue used by the original C++ merge step.
type cursorHeap []chunkCursor

func (h cursorHeap) Len() int            { return len(h) }
func (h cursorHeap) Less(i, j int) bool  { return h[i].value < h[j].value }
func (h cursorHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x interface{}) { *h = append(*h, x.(chunkCursor)) }
func (h *cursorHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

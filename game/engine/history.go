package engine

import "github.com/emirpasic/gods/lists/doublylinkedlist"

// snapshot is one undo entry: the full edge set or the full path
type snapshot struct {
	edges []Edge
	path  []Cell
}

// history is a bounded undo stack; once limit is exceeded the oldest entry
// is evicted.
type history struct {
	entries *doublylinkedlist.List
	limit   int
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &history{
		entries: doublylinkedlist.New(),
		limit:   limit,
	}
}

func (h *history) push(s snapshot) {
	h.entries.Add(s)
	for h.entries.Size() > h.limit {
		h.entries.Remove(0)
	}
}

func (h *history) pop() (snapshot, bool) {
	n := h.entries.Size()
	if n == 0 {
		return snapshot{}, false
	}
	v, _ := h.entries.Get(n - 1)
	h.entries.Remove(n - 1)
	return v.(snapshot), true
}

func (h *history) len() int {
	return h.entries.Size()
}

func (h *history) clear() {
	h.entries.Clear()
}

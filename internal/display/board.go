package display

import "sync"

// Board keeps the latest rendered views so a host can poll them. Every summary push
// advances the pulse counter, which clients use to trigger their update animation.
type Board struct {
	mu      sync.RWMutex
	rows    map[int]RowView
	summary SummaryView
	pulse   uint64
}

// NewBoard returns an empty Board.
func NewBoard() *Board {
	return &Board{rows: make(map[int]RowView)}
}

// RowChanged stores the view for the row it describes.
func (b *Board) RowChanged(view RowView) {
	b.mu.Lock()
	b.rows[view.Index] = view
	b.mu.Unlock()
}

// SummaryChanged stores the summary and advances the pulse.
func (b *Board) SummaryChanged(view SummaryView) {
	b.mu.Lock()
	b.pulse++
	view.Pulse = b.pulse
	b.summary = view
	b.mu.Unlock()
}

// Row returns the last view pushed for index.
func (b *Board) Row(index int) (RowView, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	view, ok := b.rows[index]
	return view, ok
}

// Rows returns the stored row views ordered by index.
func (b *Board) Rows(count int) []RowView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]RowView, 0, len(b.rows))
	for i := 1; i <= count; i++ {
		if view, ok := b.rows[i]; ok {
			out = append(out, view)
		}
	}
	return out
}

// Summary returns the last summary pushed.
func (b *Board) Summary() SummaryView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.summary
}

// Pulse returns how many summary updates have been pushed.
func (b *Board) Pulse() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pulse
}

package domain

import (
	"sync"
	"time"
)

type HistoryEntry struct {
	OriginalName   string
	ConvertedName  string
	Timestamp      time.Time
	EncodedPayload string
}

func (e HistoryEntry) FormattedTimestamp() string {
	return e.Timestamp.Format(TimestampLayout)
}

// History keeps the most recent successful conversions of one session.
// When full, adding an entry evicts the oldest one.
type History struct {
	mu      sync.RWMutex
	limit   int
	entries []HistoryEntry
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		limit:   limit,
		entries: make([]HistoryEntry, 0, limit),
	}
}

func (h *History) Add(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) >= h.limit {
		copy(h.entries, h.entries[len(h.entries)-h.limit+1:])
		h.entries = h.entries[:h.limit-1]
	}
	h.entries = append(h.entries, entry)
}

// Entries returns a copy ordered oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Recent returns a copy ordered newest first.
func (h *History) Recent() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]HistoryEntry, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}

// At indexes the newest-first view, matching Recent.
func (h *History) At(i int) (HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if i < 0 || i >= len(h.entries) {
		return HistoryEntry{}, ErrHistoryIndex
	}
	return h.entries[len(h.entries)-1-i], nil
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

func (h *History) Limit() int {
	return h.limit
}

package logging

import (
	"encoding/json"
	"sync"
)

// Entry is one structured log line as written by zerolog.
type Entry map[string]any

// Buffer is a fixed-size ring of the most recent log entries.
// It implements io.Writer so it can sit next to the other zerolog sinks.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewBuffer creates a ring holding up to size entries.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = 1
	}
	return &Buffer{entries: make([]Entry, size)}
}

// Write stores one JSON log line. Lines that are not JSON objects are kept as a message.
func (b *Buffer) Write(p []byte) (int, error) {
	var e Entry
	if err := json.Unmarshal(p, &e); err != nil || e == nil {
		e = Entry{"message": string(p)}
	}

	b.mu.Lock()
	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
	b.mu.Unlock()
	return len(p), nil
}

// Entries returns up to limit entries, oldest first. A non-positive limit returns everything held.
func (b *Buffer) Entries(limit int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := b.next
	if b.full {
		count = len(b.entries)
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]Entry, 0, limit)
	start := b.next - limit
	if start < 0 {
		start += len(b.entries)
	}
	for i := 0; i < limit; i++ {
		out = append(out, b.entries[(start+i)%len(b.entries)])
	}
	return out
}

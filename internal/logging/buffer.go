package logging

import (
	"sync"
	"time"
)

// LogEntry is one record kept in the ring buffer.
type LogEntry struct {
	Seq        uint64         `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the most recent entries. Every write gets the next
// sequence number, starting at 1, so readers can resume without duplicates.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	last    uint64 // sequence number of the newest entry
}

// NewRingBuffer creates a buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{entries: make([]LogEntry, max(size, 1))}
}

// Write stores entry, overwriting the oldest one when full, and returns it
// with its sequence number set.
func (rb *RingBuffer) Write(entry LogEntry) LogEntry {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.last++
	entry.Seq = rb.last
	rb.entries[rb.slot(rb.last)] = entry
	return entry
}

func (rb *RingBuffer) slot(seq uint64) int {
	return int((seq - 1) % uint64(len(rb.entries)))
}

// oldest returns the sequence number of the oldest retained entry. Caller holds mu.
func (rb *RingBuffer) oldest() uint64 {
	if n := uint64(len(rb.entries)); rb.last > n {
		return rb.last - n + 1
	}
	return 1
}

// Since returns retained entries with a sequence number above seq, oldest first.
func (rb *RingBuffer) Since(seq uint64) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	from := max(seq+1, rb.oldest())
	if from > rb.last {
		return nil
	}
	out := make([]LogEntry, 0, rb.last-from+1)
	for s := from; s <= rb.last; s++ {
		out = append(out, rb.entries[rb.slot(s)])
	}
	return out
}

// ReadAll returns every retained entry, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.Since(0)
}

// Tail returns up to n of the newest entries accepted by keep, oldest first.
// n <= 0 means no limit; a nil keep accepts everything.
func (rb *RingBuffer) Tail(n int, keep func(LogEntry) bool) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var out []LogEntry
	for s := rb.last; s >= rb.oldest() && s > 0; s-- {
		e := rb.entries[rb.slot(s)]
		if keep != nil && !keep(e) {
			continue
		}
		out = append(out, e)
		if n > 0 && len(out) == n {
			break
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Count returns the number of retained entries.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if rb.last == 0 {
		return 0
	}
	return int(rb.last - rb.oldest() + 1)
}

// Last returns the sequence number of the newest entry, 0 when empty.
func (rb *RingBuffer) Last() uint64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.last
}

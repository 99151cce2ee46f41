// Package backlog provides the insertion-ordered in-memory buffer used
// while the collector is unreachable. It is owned exclusively by the
// delivery loop and needs no locking.
package backlog

import (
	"gelfship/src/internal/core"
)

// Entry pairs a record with its insertion sequence number. The sequence
// imposes replay order only; nothing is persisted across restarts.
type Entry struct {
	Seq    uint64
	Record core.LogEntry
}

// Queue is a strictly insertion-ordered record buffer
type Queue struct {
	entries []Entry
	head    int
	nextSeq uint64
}

// New creates an empty queue
func New() *Queue {
	return &Queue{}
}

// Insert appends a record and returns its sequence number
func (q *Queue) Insert(record core.LogEntry) uint64 {
	seq := q.nextSeq
	q.nextSeq++
	q.entries = append(q.entries, Entry{Seq: seq, Record: record})
	return seq
}

// PeekOldest returns the oldest buffered record without removing it
func (q *Queue) PeekOldest() (core.LogEntry, bool) {
	if q.head >= len(q.entries) {
		return core.LogEntry{}, false
	}
	return q.entries[q.head].Record, true
}

// DropOldest removes the oldest buffered record after a successful send
// or a terminal discard decision
func (q *Queue) DropOldest() {
	if q.head >= len(q.entries) {
		return
	}
	q.entries[q.head] = Entry{}
	q.head++

	// Reclaim the consumed prefix once it dominates the backing slice
	if q.head > len(q.entries)/2 && q.head > 64 {
		q.entries = append(q.entries[:0], q.entries[q.head:]...)
		q.head = 0
	}
}

// TakeOldest removes and returns the oldest buffered record
func (q *Queue) TakeOldest() (core.LogEntry, bool) {
	record, ok := q.PeekOldest()
	if ok {
		q.DropOldest()
	}
	return record, ok
}

// Size returns the number of buffered records
func (q *Queue) Size() int {
	return len(q.entries) - q.head
}

// Clear discards all buffered records
func (q *Queue) Clear() {
	q.entries = nil
	q.head = 0
}

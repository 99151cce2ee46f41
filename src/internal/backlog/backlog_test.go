package backlog

import (
	"fmt"
	"testing"

	"gelfship/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(msg string) core.LogEntry {
	return core.LogEntry{Message: msg}
}

func TestQueue_InsertionOrder(t *testing.T) {
	q := New()
	q.Insert(entry("first"))
	q.Insert(entry("second"))
	q.Insert(entry("third"))

	require.Equal(t, 3, q.Size())

	for _, expected := range []string{"first", "second", "third"} {
		record, ok := q.TakeOldest()
		require.True(t, ok)
		assert.Equal(t, expected, record.Message)
	}

	assert.Equal(t, 0, q.Size())
	_, ok := q.TakeOldest()
	assert.False(t, ok)
}

func TestQueue_SequenceNumbers(t *testing.T) {
	q := New()
	assert.Equal(t, uint64(0), q.Insert(entry("a")))
	assert.Equal(t, uint64(1), q.Insert(entry("b")))

	// Sequence keeps growing across drains
	q.Clear()
	assert.Equal(t, uint64(2), q.Insert(entry("c")))
}

func TestQueue_PeekDoesNotRemove(t *testing.T) {
	q := New()
	q.Insert(entry("only"))

	for i := 0; i < 3; i++ {
		record, ok := q.PeekOldest()
		require.True(t, ok)
		assert.Equal(t, "only", record.Message)
	}
	assert.Equal(t, 1, q.Size())

	q.DropOldest()
	assert.Equal(t, 0, q.Size())
	_, ok := q.PeekOldest()
	assert.False(t, ok)
}

func TestQueue_DropOnEmptyIsNoop(t *testing.T) {
	q := New()
	q.DropOldest()
	assert.Equal(t, 0, q.Size())
}

func TestQueue_Clear(t *testing.T) {
	q := New()
	for i := 0; i < 10; i++ {
		q.Insert(entry(fmt.Sprintf("msg-%d", i)))
	}
	require.Equal(t, 10, q.Size())

	q.Clear()
	assert.Equal(t, 0, q.Size())
	_, ok := q.PeekOldest()
	assert.False(t, ok)
}

func TestQueue_OrderSurvivesCompaction(t *testing.T) {
	q := New()
	total := 500
	for i := 0; i < total; i++ {
		q.Insert(entry(fmt.Sprintf("msg-%d", i)))
	}

	// Drain enough to trigger prefix reclamation, interleaving inserts
	// to verify order holds across the internal copy
	for i := 0; i < 200; i++ {
		record, ok := q.TakeOldest()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("msg-%d", i), record.Message)
	}
	for i := 0; i < 50; i++ {
		q.Insert(entry(fmt.Sprintf("msg-%d", total+i)))
	}

	assert.Equal(t, 350, q.Size())
	for i := 200; i < total+50; i++ {
		record, ok := q.TakeOldest()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("msg-%d", i), record.Message)
	}
	assert.Equal(t, 0, q.Size())
}

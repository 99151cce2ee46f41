package source

import (
	"sync"
	"testing"
	"time"

	"gelfship/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdinSource_StopDuringPublish(t *testing.T) {
	s, err := NewStdinSource(nil, newTestLogger())
	require.NoError(t, err)

	entries := s.Subscribe()
	go func() {
		for range entries {
		}
	}()

	// Hammer publish while Stop closes the subscriber channels; a send
	// after close would panic
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.publish(core.LogEntry{Time: time.Now(), Source: "stdin", Message: "x"})
		}
	}()

	time.Sleep(time.Millisecond)
	s.Stop()
	wg.Wait()
}

func TestStdinSource_SubscribeAfterStop(t *testing.T) {
	s, err := NewStdinSource(nil, newTestLogger())
	require.NoError(t, err)
	s.Stop()

	ch := s.Subscribe()
	_, open := <-ch
	assert.False(t, open, "post-stop subscription must yield a closed channel")
}

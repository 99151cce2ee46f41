package source

import (
	"fmt"
	"net"
	"testing"
	"time"

	"gelfship/src/internal/config"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

// reservePort binds an ephemeral TCP port and releases it
func reservePort(t *testing.T) int64 {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := int64(l.Addr().(*net.TCPAddr).Port)
	require.NoError(t, l.Close())
	return port
}

func TestTCPSource_LineSplitAcrossSegments(t *testing.T) {
	port := reservePort(t)
	src, err := NewTCPSource(&config.TCPSourceConfig{Port: port}, newTestLogger())
	require.NoError(t, err)

	entries := src.Subscribe()
	require.NoError(t, src.Start())
	defer src.Stop()

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	defer conn.Close()

	// One record arriving in two TCP segments; the prefix must stay
	// buffered until its newline shows up
	line := `{"source":"app","message":"split across segments"}` + "\n"
	half := len(line) / 2

	_, err = conn.Write([]byte(line[:half]))
	require.NoError(t, err)
	time.Sleep(200 * time.Millisecond)
	_, err = conn.Write([]byte(line[half:]))
	require.NoError(t, err)

	select {
	case entry := <-entries:
		assert.Equal(t, "split across segments", entry.Message)
		assert.Equal(t, "app", entry.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("entry was never published")
	}

	assert.Equal(t, uint64(0), src.invalidEntries.Load())
	assert.Equal(t, uint64(1), src.totalEntries.Load())
}

func TestTCPSource_MultipleLinesInOneSegment(t *testing.T) {
	port := reservePort(t)
	src, err := NewTCPSource(&config.TCPSourceConfig{Port: port}, newTestLogger())
	require.NoError(t, err)

	entries := src.Subscribe()
	require.NoError(t, src.Start())
	defer src.Stop()

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	defer conn.Close()

	payload := `{"message":"first"}` + "\n" + `{"message":"second"}` + "\n" + `{"message":"par`
	_, err = conn.Write([]byte(payload))
	require.NoError(t, err)

	for _, expected := range []string{"first", "second"} {
		select {
		case entry := <-entries:
			assert.Equal(t, expected, entry.Message)
		case <-time.After(2 * time.Second):
			t.Fatalf("entry %q was never published", expected)
		}
	}

	// The dangling third record must not have been consumed or counted
	assert.Equal(t, uint64(2), src.totalEntries.Load())
	assert.Equal(t, uint64(0), src.invalidEntries.Load())
}

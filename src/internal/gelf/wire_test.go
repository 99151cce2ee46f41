package gelf

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameTCP(t *testing.T) {
	fields := map[string]any{
		"version":       "1.1",
		"host":          "web-1",
		"short_message": "boom",
	}
	payload, err := JSONEncoder{}.Encode(fields)
	require.NoError(t, err)

	frame := FrameTCP(payload)
	require.Equal(t, byte(0x00), frame[len(frame)-1], "frame must end with null delimiter")
	assert.NotContains(t, frame[:len(frame)-1], byte(0x00), "payload must not contain the delimiter")

	// Stripping the delimiter yields the encoded field map back
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(frame[:len(frame)-1], &decoded))
	assert.Equal(t, "boom", decoded["short_message"])
	assert.Equal(t, "web-1", decoded["host"])
}

func TestCompress(t *testing.T) {
	payload := bytes.Repeat([]byte("gelfship test payload "), 50)

	t.Run("None", func(t *testing.T) {
		out, err := Compress(payload, CompressionNone)
		require.NoError(t, err)
		assert.Equal(t, payload, out)
	})

	t.Run("GzipProducesGzipBytes", func(t *testing.T) {
		out, err := Compress(payload, CompressionGzip)
		require.NoError(t, err)

		r, err := gzip.NewReader(bytes.NewReader(out))
		require.NoError(t, err, "gzip mode must produce gzip-format bytes")
		decompressed, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, payload, decompressed)
	})

	t.Run("ZlibProducesZlibBytes", func(t *testing.T) {
		out, err := Compress(payload, CompressionZlib)
		require.NoError(t, err)

		r, err := zlib.NewReader(bytes.NewReader(out))
		require.NoError(t, err, "zlib mode must produce zlib-format bytes")
		decompressed, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, payload, decompressed)
	})

	t.Run("UnknownMode", func(t *testing.T) {
		_, err := Compress(payload, Compression("snappy"))
		assert.Error(t, err)
	})
}

func TestDatagrams_SingleDatagram(t *testing.T) {
	payload := []byte("short message payload")

	datagrams, err := Datagrams(payload, 8192, CompressionNone)
	require.NoError(t, err)
	require.Len(t, datagrams, 1)
	assert.Equal(t, payload, datagrams[0])
}

func TestDatagrams_Chunking(t *testing.T) {
	// 350-byte payload with a 100-byte threshold: slices of 88 bytes,
	// so exactly 4 chunks
	payload := bytes.Repeat([]byte("x"), 350)

	datagrams, err := Datagrams(payload, 100, CompressionNone)
	require.NoError(t, err)
	require.Len(t, datagrams, 4)

	var messageID []byte
	var reassembled []byte
	for i, chunk := range datagrams {
		require.GreaterOrEqual(t, len(chunk), ChunkHeaderSize)
		assert.LessOrEqual(t, len(chunk), 100)

		assert.Equal(t, byte(0x1e), chunk[0])
		assert.Equal(t, byte(0x0f), chunk[1])

		if messageID == nil {
			messageID = chunk[2:10]
		} else {
			assert.Equal(t, messageID, chunk[2:10], "all chunks share one message id")
		}

		assert.Equal(t, byte(i), chunk[10], "sequence index")
		assert.Equal(t, byte(4), chunk[11], "sequence count")

		reassembled = append(reassembled, chunk[ChunkHeaderSize:]...)
	}

	assert.Equal(t, payload, reassembled, "reassembly reconstructs the payload exactly")
}

func TestDatagrams_CompressThenChunk(t *testing.T) {
	// Highly repetitive payload compresses well below its raw size
	payload := bytes.Repeat([]byte("abcdefgh"), 4096)

	datagrams, err := Datagrams(payload, 256, CompressionGzip)
	require.NoError(t, err)
	require.Greater(t, len(datagrams), 1)

	// Headers stay outside the compressed region: stripping them and
	// concatenating slices yields one decompressable stream
	var body []byte
	for _, chunk := range datagrams {
		require.Equal(t, byte(0x1e), chunk[0])
		require.Equal(t, byte(0x0f), chunk[1])
		body = append(body, chunk[ChunkHeaderSize:]...)
	}

	r, err := gzip.NewReader(bytes.NewReader(body))
	require.NoError(t, err)
	decompressed, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, decompressed)
}

func TestDatagrams_ChunkLimit(t *testing.T) {
	// 128 chunks of 88 bytes is the most a 100-byte threshold can carry
	tooBig := bytes.Repeat([]byte("x"), 129*88)

	_, err := Datagrams(tooBig, 100, CompressionNone)
	assert.Error(t, err)
}

func TestDatagrams_ThresholdFallback(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 100)

	// A threshold at or below the header size cannot carry data; the
	// default takes over
	datagrams, err := Datagrams(payload, ChunkHeaderSize, CompressionNone)
	require.NoError(t, err)
	assert.Len(t, datagrams, 1)
}

func TestNewMessageID_Distinct(t *testing.T) {
	seen := make(map[[8]byte]bool)
	now := time.Now()
	for i := 0; i < 1000; i++ {
		id := newMessageID(now)
		assert.False(t, seen[id], "message ids must not collide within a session")
		seen[id] = true
	}
}

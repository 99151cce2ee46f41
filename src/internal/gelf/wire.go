package gelf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// UDP chunk framing constants per GELF 1.1
const (
	// ChunkHeaderSize is magic (2) + message id (8) + seq index (1) + seq count (1)
	ChunkHeaderSize = 12

	// MaxChunks is the per-message chunk limit collectors will reassemble
	MaxChunks = 128

	// DefaultDatagramSize is the chunk threshold used when the socket's
	// send-buffer size cannot be queried
	DefaultDatagramSize = 8192
)

var chunkMagic = [2]byte{0x1e, 0x0f}

// Compression selects the UDP payload compression mode
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZlib Compression = "zlib"
)

// FrameTCP terminates an encoded payload with the null delimiter. TCP
// transport has no size limit and no chunking.
func FrameTCP(payload []byte) []byte {
	frame := make([]byte, len(payload)+1)
	copy(frame, payload)
	frame[len(payload)] = 0x00
	return frame
}

// Compress wraps a payload in the configured compression format.
// CompressionGzip produces gzip bytes, CompressionZlib produces zlib
// (deflate with header) bytes.
func Compress(payload []byte, mode Compression) ([]byte, error) {
	switch mode {
	case CompressionNone, "":
		return payload, nil
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, fmt.Errorf("gzip compression failed: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip compression failed: %w", err)
		}
		return buf.Bytes(), nil
	case CompressionZlib:
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, fmt.Errorf("zlib compression failed: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("zlib compression failed: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown compression mode: %q", mode)
	}
}

var messageCounter atomic.Uint32

// newMessageID builds an 8-byte chunk set identifier: 4 bytes of coarse
// wall clock plus a 4-byte counter, so concurrent messages within a
// session do not collide.
func newMessageID(now time.Time) [8]byte {
	var id [8]byte
	binary.BigEndian.PutUint32(id[:4], uint32(now.Unix()))
	binary.BigEndian.PutUint32(id[4:], messageCounter.Add(1))
	return id
}

// Datagrams converts an encoded payload into the UDP datagrams to send.
// The payload is compressed once, whole; when the compressed bytes exceed
// the threshold they are split into chunks whose headers stay outside the
// compressed region, which is what a compliant collector reassembles.
func Datagrams(payload []byte, threshold int, mode Compression) ([][]byte, error) {
	if threshold <= ChunkHeaderSize {
		threshold = DefaultDatagramSize
	}

	body, err := Compress(payload, mode)
	if err != nil {
		return nil, err
	}

	if len(body) <= threshold {
		return [][]byte{body}, nil
	}

	sliceSize := threshold - ChunkHeaderSize
	count := (len(body) + sliceSize - 1) / sliceSize
	if count > MaxChunks {
		return nil, fmt.Errorf("message of %d bytes needs %d chunks, exceeds limit of %d", len(body), count, MaxChunks)
	}

	id := newMessageID(time.Now())
	chunks := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		start := i * sliceSize
		end := min(start+sliceSize, len(body))

		chunk := make([]byte, 0, ChunkHeaderSize+end-start)
		chunk = append(chunk, chunkMagic[0], chunkMagic[1])
		chunk = append(chunk, id[:]...)
		chunk = append(chunk, byte(i), byte(count))
		chunk = append(chunk, body[start:end]...)
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

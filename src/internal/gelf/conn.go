package gelf

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Protocol selects the collector transport
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// ErrNotConnected is returned when a send is attempted without a live socket
var ErrNotConnected = errors.New("not connected to collector")

// ConnectError reports a failed connection attempt. Recoverable; callers
// decide retry policy.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s failed: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// SendError reports a write failure on an established connection.
// Treated the same as a close notification: tear down and retry.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to collector failed: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Conn owns the single live socket of a collector session. TCP writes go
// to the stream as-is; UDP writes send one datagram per call to the
// stored remote address.
type Conn struct {
	protocol     Protocol
	tcp          *net.TCPConn
	udp          *net.UDPConn
	remote       *net.UDPAddr
	datagramSize int
	writeTimeout time.Duration
}

// DialConfig holds connection parameters for a collector session
type DialConfig struct {
	Protocol       Protocol
	Host           string
	Port           int64
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration

	// MaxDatagramSize overrides the UDP chunk threshold. Zero means query
	// the socket's send-buffer size, falling back to DefaultDatagramSize.
	MaxDatagramSize int
}

// Dial establishes the collector connection. For UDP there is no
// handshake; a local ephemeral send socket is opened and the remote
// address stored for per-send addressing.
func Dial(cfg DialConfig) (*Conn, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.FormatInt(cfg.Port, 10))

	switch cfg.Protocol {
	case ProtocolTCP:
		conn, err := net.DialTimeout("tcp", addr, cfg.ConnectTimeout)
		if err != nil {
			return nil, &ConnectError{Addr: addr, Err: err}
		}
		tcpConn := conn.(*net.TCPConn)
		tcpConn.SetKeepAlive(true)
		return &Conn{
			protocol:     ProtocolTCP,
			tcp:          tcpConn,
			writeTimeout: cfg.WriteTimeout,
		}, nil

	case ProtocolUDP:
		remote, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			return nil, &ConnectError{Addr: addr, Err: err}
		}
		conn, err := net.ListenUDP("udp", nil)
		if err != nil {
			return nil, &ConnectError{Addr: addr, Err: err}
		}

		size := cfg.MaxDatagramSize
		if size <= 0 {
			if sndbuf, ok := sendBufferSize(conn); ok && sndbuf > 0 {
				size = sndbuf
			} else {
				size = DefaultDatagramSize
			}
		}

		return &Conn{
			protocol:     ProtocolUDP,
			udp:          conn,
			remote:       remote,
			datagramSize: size,
			writeTimeout: cfg.WriteTimeout,
		}, nil

	default:
		return nil, fmt.Errorf("unknown protocol: %q", cfg.Protocol)
	}
}

// Protocol returns the transport this connection was dialed with
func (c *Conn) Protocol() Protocol { return c.protocol }

// DatagramSize returns the effective UDP chunk threshold
func (c *Conn) DatagramSize() int { return c.datagramSize }

// Write submits one transport unit: a null-framed stream write for TCP,
// a single datagram for UDP.
func (c *Conn) Write(frame []byte) error {
	switch c.protocol {
	case ProtocolTCP:
		if c.tcp == nil {
			return ErrNotConnected
		}
		if c.writeTimeout > 0 {
			if err := c.tcp.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return &SendError{Err: err}
			}
		}
		n, err := c.tcp.Write(frame)
		if err != nil {
			return &SendError{Err: err}
		}
		if n != len(frame) {
			return &SendError{Err: fmt.Errorf("partial write: %d/%d bytes", n, len(frame))}
		}
		return nil

	case ProtocolUDP:
		if c.udp == nil {
			return ErrNotConnected
		}
		if _, err := c.udp.WriteToUDP(frame, c.remote); err != nil {
			return &SendError{Err: err}
		}
		return nil

	default:
		return ErrNotConnected
	}
}

// AwaitClose blocks until the peer closes the connection or a transport
// error occurs, draining any data the peer sends. Only meaningful for
// TCP; UDP has no connection to lose.
func (c *Conn) AwaitClose() error {
	if c.protocol != ProtocolTCP || c.tcp == nil {
		return nil
	}

	buf := make([]byte, 256)
	for {
		// Inbound data from the collector is not used, but must be
		// consumed so the read side surfaces close and error events.
		c.tcp.SetReadDeadline(time.Time{})
		if _, err := c.tcp.Read(buf); err != nil {
			return err
		}
	}
}

// DrainPending blocks until the kernel reports no outstanding unsent
// bytes on the socket, polling at the given interval. Used before
// teardown so in-flight bytes are not lost. UDP sends are synchronous
// per datagram, so there is nothing to drain.
func (c *Conn) DrainPending(pollInterval time.Duration) error {
	if c.protocol != ProtocolTCP || c.tcp == nil {
		return nil
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Millisecond
	}

	for {
		pending, ok := outstandingBytes(c.tcp)
		if !ok || pending == 0 {
			return nil
		}
		time.Sleep(pollInterval)
	}
}

// Close releases the held socket. Safe to call on a partially
// initialized connection.
func (c *Conn) Close() {
	if c.tcp != nil {
		_ = c.tcp.Close()
		c.tcp = nil
	}
	if c.udp != nil {
		_ = c.udp.Close()
		c.udp = nil
	}
}

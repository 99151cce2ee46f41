//go:build linux

package gelf

import (
	"net"

	"golang.org/x/sys/unix"
)

// outstandingBytes reports the unsent bytes still queued in the kernel
// send buffer for a TCP socket.
func outstandingBytes(c *net.TCPConn) (int, bool) {
	rc, err := c.SyscallConn()
	if err != nil {
		return 0, false
	}

	var pending int
	var ioctlErr error
	if err := rc.Control(func(fd uintptr) {
		pending, ioctlErr = unix.IoctlGetInt(int(fd), unix.SIOCOUTQ)
	}); err != nil || ioctlErr != nil {
		return 0, false
	}
	return pending, true
}

// sendBufferSize queries SO_SNDBUF on a UDP socket to derive the chunk
// threshold.
func sendBufferSize(c *net.UDPConn) (int, bool) {
	rc, err := c.SyscallConn()
	if err != nil {
		return 0, false
	}

	var size int
	var sockoptErr error
	if err := rc.Control(func(fd uintptr) {
		size, sockoptErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF)
	}); err != nil || sockoptErr != nil {
		return 0, false
	}
	return size, true
}

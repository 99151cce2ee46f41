//go:build !linux

package gelf

import "net"

func outstandingBytes(c *net.TCPConn) (int, bool) {
	return 0, false
}

func sendBufferSize(c *net.UDPConn) (int, bool) {
	return 0, false
}

//go:build !unix && !windows

package sockets

import "net"

func shutdown(_ net.Conn, _ bool, _ bool) error {
	return ErrShutdownUnsupported
}

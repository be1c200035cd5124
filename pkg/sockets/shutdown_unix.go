//go:build unix

package sockets

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

func shutdown(conn net.Conn, closeSend bool, closeRecv bool) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return ErrShutdownUnsupported
	}
	raw, rawErr := sc.SyscallConn()
	if rawErr != nil {
		return rawErr
	}
	how := unix.SHUT_RDWR
	switch {
	case closeSend && !closeRecv:
		how = unix.SHUT_WR
	case closeRecv && !closeSend:
		how = unix.SHUT_RD
	}
	var err error
	if ctrlErr := raw.Control(func(fd uintptr) {
		err = unix.Shutdown(int(fd), how)
	}); ctrlErr != nil {
		return ctrlErr
	}
	return err
}

//go:build windows

package sockets

import (
	"net"
	"syscall"

	"golang.org/x/sys/windows"
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
	how := windows.SHUT_RDWR
	switch {
	case closeSend && !closeRecv:
		how = windows.SHUT_WR
	case closeRecv && !closeSend:
		how = windows.SHUT_RD
	}
	var err error
	if ctrlErr := raw.Control(func(fd uintptr) {
		err = windows.Shutdown(windows.Handle(fd), how)
	}); ctrlErr != nil {
		return ctrlErr
	}
	return err
}

//go:build windows

package sockets

import (
	"github.com/brickingsoft/errors"
	"golang.org/x/sys/windows"
)

func isConnectionErrno(err error) bool {
	return errors.Is(err, windows.WSAECONNRESET) ||
		errors.Is(err, windows.WSAECONNABORTED) ||
		errors.Is(err, windows.WSAESHUTDOWN) ||
		errors.Is(err, windows.ERROR_NETNAME_DELETED)
}

//go:build unix

package sockets

import (
	"github.com/brickingsoft/errors"
	"golang.org/x/sys/unix"
)

func isConnectionErrno(err error) bool {
	return errors.Is(err, unix.ECONNRESET) ||
		errors.Is(err, unix.ECONNABORTED) ||
		errors.Is(err, unix.EPIPE) ||
		errors.Is(err, unix.ESHUTDOWN) ||
		errors.Is(err, unix.ENOTCONN)
}

//go:build unix

package sockets_test

import (
	"os"
	"testing"

	"github.com/brickingsoft/proactor/pkg/sockets"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestIsClosed_Errno(t *testing.T) {
	for _, errno := range []unix.Errno{unix.ECONNRESET, unix.ECONNABORTED, unix.EPIPE, unix.ESHUTDOWN, unix.ENOTCONN} {
		require.True(t, sockets.IsClosed(os.NewSyscallError("write", errno)), "%v", errno)
	}
	require.False(t, sockets.IsClosed(os.NewSyscallError("read", unix.EAGAIN)))
}

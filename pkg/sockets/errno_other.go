//go:build !unix && !windows

package sockets

func isConnectionErrno(_ error) bool {
	return false
}

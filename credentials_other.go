//go:build !linux

package proactor

import "net"

func peerCredentials(_ *net.UnixConn) (Credentials, error) {
	return Credentials{}, ErrCredentialsUnsupported
}

//go:build linux

package proactor

import (
	"net"

	"golang.org/x/sys/unix"
)

func peerCredentials(conn *net.UnixConn) (cred Credentials, err error) {
	raw, rawErr := conn.SyscallConn()
	if rawErr != nil {
		err = rawErr
		return
	}
	var ucred *unix.Ucred
	ctrlErr := raw.Control(func(fd uintptr) {
		ucred, err = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctrlErr != nil {
		err = ctrlErr
		return
	}
	if err != nil {
		return
	}
	cred = Credentials{PID: ucred.Pid, UID: ucred.Uid, GID: ucred.Gid}
	return
}

package sockets

import (
	"io"
	"net"
	"os"

	"github.com/brickingsoft/errors"
)

var (
	ErrShutdownUnsupported = errors.Define("shutdown is not supported by the connection")
)

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "sockets"
)

const (
	errMetaOpKey      = "op"
	errMetaOpSend     = "send"
	errMetaOpRecv     = "receive"
	errMetaOpShutdown = "shutdown"
)

func newErr(op string, cause error) error {
	return errors.New(
		op+" failed",
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithWrap(cause),
	)
}

// IsClosed
// 判断错误是否表示连接已关闭（对端关闭、重置、本端已关闭或已半关闭读）。
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) {
		return true
	}
	return isConnectionErrno(err)
}

package proactor

import (
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/aio"
	"github.com/brickingsoft/proactor/pkg/sockets"
)

var (
	ErrClosed                 = errors.Define("proactor: closed")
	ErrCredentialsUnsupported = errors.Define("proactor: peer credentials are not supported")

	errArgumentRequired = errors.Define("proactor: conn and handler are required")
)

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "proactor"
	errMetaOpKey  = "op"
	errMetaAddr   = "addr"
)

const (
	errMetaOpAccept  = "accept"
	errMetaOpListen  = "listen"
	errMetaOpConnect = "connect"
)

func newErr(op string, addr string, cause error) error {
	return errors.New(
		op+" failed",
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithMeta(errMetaAddr, addr),
		errors.WithWrap(cause),
	)
}

// IsNotConnected reports whether err came from a socket that was disposed or never connected.
func IsNotConnected(err error) bool {
	return aio.IsNotConnected(err)
}

// IsTimeout reports whether a synchronous Recv or Send gave up waiting.
func IsTimeout(err error) bool {
	return aio.IsTimeout(err)
}

// IsBusy reports whether the executors refused to take the operation.
func IsBusy(err error) bool {
	return aio.IsBusy(err)
}

// IsClosed
// 是否为对端或本端关闭所产生的错误。
func IsClosed(err error) bool {
	return sockets.IsClosed(err) || errors.Is(err, ErrClosed)
}

package aio

import (
	"github.com/brickingsoft/errors"
)

var (
	ErrNotConnected         = errors.Define("not connected")
	ErrTimeout              = errors.Define("timed out")
	ErrAllocate             = errors.Define("allocate failed")
	ErrInvalidBuffer        = errors.Define("invalid buffer")
	ErrBusy                 = errors.Define("busy")
	ErrUnexpectedCompletion = errors.Define("unexpected completion")
)

func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func IsAllocate(err error) bool {
	return errors.Is(err, ErrAllocate)
}

func IsInvalidBuffer(err error) bool {
	return errors.Is(err, ErrInvalidBuffer)
}

func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "aio"
)

const (
	errMetaOpKey  = "op"
	errMetaOpSend = "send"
	errMetaOpRecv = "receive"
)

func newOpErr(direction Direction, cause error) error {
	op := errMetaOpRecv
	if direction == Send {
		op = errMetaOpSend
	}
	return errors.New(
		op+" failed",
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithWrap(cause),
	)
}

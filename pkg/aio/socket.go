package aio

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/bytebuffers"
	"github.com/brickingsoft/proactor/pkg/reference"
)

var errNegativeRefs = errors.Define("socket released more times than referenced")

type SocketOption func(socket *Socket)

// WithOnDestroy registers fn to run once the last reference is released.
func WithOnDestroy(fn func()) SocketOption {
	return func(socket *Socket) {
		socket.onDestroy = fn
	}
}

// Socket
// 组合发送、接收两个方向的异步套接字。
//
// 构造时引用计数为 1，每个已入队的异步请求持有一个引用，直到其完成交付给 Handler。
// Dispose 关闭两个方向并释放构造时的引用。
type Socket struct {
	receiver    *Queued
	sender      *Queued
	helper      Helper
	refs        atomic.Int64
	onDestroy   func()
	disposeOnce sync.Once
}

func NewSocket(helper Helper, handler Handler, options ...SocketOption) *Socket {
	pointer := reference.Make[Helper](helper)
	socket := &Socket{
		receiver: NewQueued(Receive, pointer.Retain(), handler),
		sender:   NewQueued(Send, pointer, handler),
		helper:   helper,
	}
	for _, option := range options {
		option(socket)
	}
	socket.refs.Store(1)
	helper.BindHandler(socket)
	return socket
}

func (socket *Socket) AsyncRecv(buffer bytebuffers.Buffer, length int) (err error) {
	if !socket.AddRef() {
		return newOpErr(Receive, ErrNotConnected)
	}
	if err = socket.receiver.AsyncOp(buffer, length); err != nil {
		socket.Release()
	}
	return
}

func (socket *Socket) AsyncSend(buffer bytebuffers.Buffer) (err error) {
	if !socket.AddRef() {
		return newOpErr(Send, ErrNotConnected)
	}
	if err = socket.sender.AsyncOp(buffer, 0); err != nil {
		socket.Release()
	}
	return
}

func (socket *Socket) Recv(buffer bytebuffers.Buffer, length int, timeout time.Duration) error {
	return socket.receiver.SyncOp(buffer, length, timeout)
}

func (socket *Socket) Send(buffer bytebuffers.Buffer, timeout time.Duration) error {
	return socket.sender.SyncOp(buffer, 0, timeout)
}

func (socket *Socket) OnRecv(op *Op, err error) {
	if socket.receiver.NotifyAsync(op, err) == DeliveredToHandler {
		socket.Release()
	}
}

func (socket *Socket) OnSent(op *Op, err error) {
	if socket.sender.NotifyAsync(op, err) == DeliveredToHandler {
		socket.Release()
	}
}

// Dispose must not be called from inside a Handler callback: the receive
// side waits for its own completions to drain. Later calls do nothing.
func (socket *Socket) Dispose() {
	socket.disposeOnce.Do(func() {
		socket.receiver.Dispose()
		socket.sender.Dispose()
		socket.Release()
	})
}

// AddRef takes a reference unless the socket is already destroyed.
func (socket *Socket) AddRef() bool {
	for {
		n := socket.refs.Load()
		if n < 1 {
			return false
		}
		if socket.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (socket *Socket) Release() {
	n := socket.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic(errNegativeRefs)
	}
	socket.destroy()
}

func (socket *Socket) Refs() int64 {
	return socket.refs.Load()
}

func (socket *Socket) Pending(direction Direction) int {
	if direction == Send {
		return socket.sender.Pending()
	}
	return socket.receiver.Pending()
}

func (socket *Socket) LocalAddr() net.Addr {
	if addressable, ok := socket.helper.(Addressable); ok {
		return addressable.LocalAddr()
	}
	return nil
}

func (socket *Socket) RemoteAddr() net.Addr {
	if addressable, ok := socket.helper.(Addressable); ok {
		return addressable.RemoteAddr()
	}
	return nil
}

func (socket *Socket) destroy() {
	_ = socket.receiver.release()
	_ = socket.sender.release()
	if socket.onDestroy != nil {
		socket.onDestroy()
	}
}

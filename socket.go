package proactor

import (
	"net"
	"time"

	"github.com/brickingsoft/proactor/pkg/aio"
	"github.com/brickingsoft/proactor/pkg/bytebuffers"
)

// Handler
// 链接事件处理器，OnRecv 与 OnSent 在执行器协程上被调用，OnClosed 最多调用一次。
type Handler = aio.Handler

// AsyncSocket
// 异步链接。
//
// 同一方向上的操作按提交顺序逐个执行。
// AsyncRecv 与 AsyncSend 的结果交给 Handler，Recv 与 Send 同步等待结果，timeout 小于 0 时一直等待。
type AsyncSocket interface {
	AsyncRecv(buffer bytebuffers.Buffer, length int) error
	AsyncSend(buffer bytebuffers.Buffer) error
	Recv(buffer bytebuffers.Buffer, length int, timeout time.Duration) error
	Send(buffer bytebuffers.Buffer, timeout time.Duration) error
	// Dispose 关闭链接，等待已提交的接收完成后返回。
	Dispose()
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// AsyncLocalSocket
// unix 域异步链接。
type AsyncLocalSocket interface {
	AsyncSocket
	// PeerCredentials 返回对端进程凭证，不支持的平台返回 ErrCredentialsUnsupported。
	PeerCredentials() (Credentials, error)
}

type Credentials struct {
	PID int32
	UID uint32
	GID uint32
}

// Acceptor
// 接受器。
//
// Handler 在链接建立前被调用，为该链接提供事件处理器。
// OnAccept 收到新链接，err 不为空时 socket 为空，且监听已终止。
type Acceptor[S AsyncSocket] interface {
	Handler(remote net.Addr) Handler
	OnAccept(socket S, err error)
}

// HandlerFuncs
// 以函数组装 Handler，为空的函数被忽略，IsCloseFunc 为空时使用 IsClosed。
type HandlerFuncs struct {
	RecvFunc    func(buffer bytebuffers.Buffer, err error)
	SentFunc    func(buffer bytebuffers.Buffer, err error)
	ClosedFunc  func()
	IsCloseFunc func(err error) bool
}

func (h HandlerFuncs) OnRecv(buffer bytebuffers.Buffer, err error) {
	if h.RecvFunc != nil {
		h.RecvFunc(buffer, err)
	}
}

func (h HandlerFuncs) OnSent(buffer bytebuffers.Buffer, err error) {
	if h.SentFunc != nil {
		h.SentFunc(buffer, err)
	}
}

func (h HandlerFuncs) OnClosed() {
	if h.ClosedFunc != nil {
		h.ClosedFunc()
	}
}

func (h HandlerFuncs) IsClose(err error) bool {
	if h.IsCloseFunc != nil {
		return h.IsCloseFunc(err)
	}
	return IsClosed(err)
}

type localSocket struct {
	*aio.Socket
	conn *net.UnixConn
}

func (s *localSocket) PeerCredentials() (Credentials, error) {
	return peerCredentials(s.conn)
}

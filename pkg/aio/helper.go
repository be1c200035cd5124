package aio

import (
	"io"
	"net"

	"github.com/brickingsoft/proactor/pkg/bytebuffers"
)

// Helper
// 平台相关的异步 IO 发起者。
//
// Send / Recv 开始一次操作，完成时（可能在调用线程上同步完成）通过绑定的 Completer 交回 Op。
// 同一方向同一时刻只会有一个 Op 交给 Helper。Close 在两个方向都释放之后调用。
type Helper interface {
	Send(op *Op)
	Recv(op *Op)
	Shutdown(closeSend bool, closeRecv bool)
	BindHandler(completer Completer)
	io.Closer
}

// Completer receives finished ops from a Helper.
type Completer interface {
	OnRecv(op *Op, err error)
	OnSent(op *Op, err error)
}

// Addressable is implemented by helpers bound to a network connection.
type Addressable interface {
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// Handler
// 应用层回调。
//
// OnRecv / OnSent 报告异步操作的完成，回调返回后缓冲引用即被释放，需要保留请 Duplicate。
// OnClosed 在检测到关闭且接收队列排空之后触发一次。
// IsClose 判断一个平台错误是否意味着连接已关闭。
type Handler interface {
	OnRecv(buffer bytebuffers.Buffer, err error)
	OnSent(buffer bytebuffers.Buffer, err error)
	OnClosed()
	IsClose(err error) bool
}

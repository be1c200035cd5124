package adaptor

import (
	"net"
	"sync"

	"github.com/brickingsoft/proactor"
)

// Listen
// 通过 p 监听 tcp，Accept 返回 Connection。
func Listen(p *proactor.Proactor, address string, port string) (net.Listener, error) {
	ln := &listener{
		ach:  make(chan acceptResult, 1),
		done: make(chan struct{}),
	}
	inner, err := p.AcceptRemote(ln, address, port)
	if err != nil {
		return nil, err
	}
	ln.inner = inner
	return ln, nil
}

type acceptResult struct {
	conn net.Conn
	err  error
}

type listener struct {
	inner proactor.Listener
	// next is only touched by the accept goroutine: Handler and OnAccept run back to back on it.
	next      *Connection
	ach       chan acceptResult
	done      chan struct{}
	closeOnce sync.Once
}

func (ln *listener) Handler(_ net.Addr) proactor.Handler {
	ln.next = NewConnection()
	return ln.next
}

func (ln *listener) OnAccept(socket proactor.AsyncSocket, err error) {
	r := acceptResult{err: err}
	if err == nil {
		ln.next.Bind(socket)
		r.conn = ln.next
	}
	ln.next = nil
	select {
	case ln.ach <- r:
	case <-ln.done:
		if r.conn != nil {
			_ = r.conn.Close()
		}
	}
}

func (ln *listener) Accept() (net.Conn, error) {
	select {
	case r := <-ln.ach:
		return r.conn, r.err
	case <-ln.done:
		return nil, net.ErrClosed
	}
}

func (ln *listener) Close() (err error) {
	ln.closeOnce.Do(func() {
		close(ln.done)
		err = ln.inner.Close()
	})
	return
}

func (ln *listener) Addr() net.Addr {
	return ln.inner.Addr()
}

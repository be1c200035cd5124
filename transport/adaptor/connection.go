package adaptor

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brickingsoft/proactor"
	"github.com/brickingsoft/proactor/pkg/bytebuffers"
)

// Connection
// 基于 proactor.AsyncSocket 的 net.Conn。
//
// 它本身是链接的 Handler，读写结果经由通道交给调用者，
// 超时后请求仍在进行，下一次同方向调用会先等待它的结果。
type Connection struct {
	socket        proactor.AsyncSocket
	inbound       bytebuffers.Buffer
	rch           chan error
	wch           chan sent
	eof           chan struct{}
	eofOnce       sync.Once
	mu            sync.Mutex
	reading       bool
	readErr       error // sticky once the peer is gone
	released      bool
	writing       bool
	readDeadline  atomic.Int64
	writeDeadline atomic.Int64
	closeOnce     sync.Once
}

type sent struct {
	remain int
	err    error
}

// NewConnection creates an unbound Connection to be used as the handler of a new socket.
func NewConnection() *Connection {
	return &Connection{
		inbound: bytebuffers.Acquire(),
		rch:     make(chan error, 1),
		wch:     make(chan sent, 1),
		eof:     make(chan struct{}),
	}
}

// Dial
// 通过 p 建立 tcp 链接。
func Dial(ctx context.Context, p *proactor.Proactor, address string, port string) (net.Conn, error) {
	conn := NewConnection()
	socket, err := p.Connect(ctx, address, port, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	conn.Bind(socket)
	return conn, nil
}

func (conn *Connection) Bind(socket proactor.AsyncSocket) {
	conn.socket = socket
}

// Read must not be called concurrently with itself, as with most net.Conn users.
func (conn *Connection) Read(b []byte) (n int, err error) {
	if len(b) == 0 {
		return
	}
	var wait bool
	if n, wait, err = conn.beginRead(b); !wait {
		return
	}
	timeout, stop := deadline(&conn.readDeadline)
	defer stop()
	var recvErr error
	select {
	case recvErr = <-conn.rch:
	case <-conn.eof:
		// a delivery may be racing the close notification
		select {
		case recvErr = <-conn.rch:
		default:
			recvErr = io.EOF
		}
	case <-timeout:
		err = os.ErrDeadlineExceeded
		return
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	err = conn.settle(recvErr)
	if conn.released {
		err = net.ErrClosed
		return
	}
	if conn.inbound.Len() > 0 {
		n, _ = conn.inbound.Read(b)
		err = nil
	}
	return
}

// beginRead serves buffered bytes or a sticky error, otherwise makes sure a
// recv is in flight and reports that the caller has to wait for it.
func (conn *Connection) beginRead(b []byte) (n int, wait bool, err error) {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.released {
		err = net.ErrClosed
		return
	}
	if conn.reading {
		wait = true
		return
	}
	if conn.inbound.Len() > 0 {
		n, _ = conn.inbound.Read(b)
		return
	}
	if conn.readErr == nil && conn.isEOF() {
		conn.readErr = io.EOF
	}
	if conn.readErr != nil {
		err = conn.readErr
		return
	}
	if err = conn.socket.AsyncRecv(conn.inbound, 0); err != nil {
		err = mapErr(err)
		return
	}
	conn.reading = true
	wait = true
	return
}

func (conn *Connection) isEOF() bool {
	select {
	case <-conn.eof:
		return true
	default:
		return false
	}
}

// settle records the end of a read. Close errors become a sticky io.EOF,
// others are returned once.
func (conn *Connection) settle(err error) error {
	conn.reading = false
	if err != nil && proactor.IsClosed(err) {
		conn.readErr = io.EOF
		return io.EOF
	}
	return err
}

// Write sends all of b. On deadline the write keeps going and the next Write waits for it first.
func (conn *Connection) Write(b []byte) (n int, err error) {
	if len(b) == 0 {
		return
	}
	timeout, stop := deadline(&conn.writeDeadline)
	defer stop()
	if conn.writing {
		select {
		case r := <-conn.wch:
			conn.writing = false
			if r.err != nil {
				err = mapErr(r.err)
				return
			}
		case <-timeout:
			err = os.ErrDeadlineExceeded
			return
		}
	}
	buf := bytebuffers.From(b)
	defer buf.Release()
	if err = conn.socket.AsyncSend(buf); err != nil {
		err = mapErr(err)
		return
	}
	conn.writing = true
	select {
	case r := <-conn.wch:
		conn.writing = false
		n = len(b) - r.remain
		err = mapErr(r.err)
	case <-timeout:
		err = os.ErrDeadlineExceeded
	}
	return
}

// Close disposes the socket, waiting for a pending read to finish, then
// gives the inbound buffer back to the pool.
func (conn *Connection) Close() error {
	conn.closeOnce.Do(func() {
		if conn.socket != nil {
			conn.socket.Dispose()
		}
		conn.mu.Lock()
		conn.released = true
		conn.inbound.Release()
		conn.mu.Unlock()
	})
	return nil
}

func (conn *Connection) LocalAddr() net.Addr {
	return conn.socket.LocalAddr()
}

func (conn *Connection) RemoteAddr() net.Addr {
	return conn.socket.RemoteAddr()
}

func (conn *Connection) SetDeadline(t time.Time) error {
	_ = conn.SetReadDeadline(t)
	return conn.SetWriteDeadline(t)
}

func (conn *Connection) SetReadDeadline(t time.Time) error {
	conn.readDeadline.Store(unixNano(t))
	return nil
}

func (conn *Connection) SetWriteDeadline(t time.Time) error {
	conn.writeDeadline.Store(unixNano(t))
	return nil
}

func (conn *Connection) OnRecv(_ bytebuffers.Buffer, err error) {
	conn.rch <- err
}

func (conn *Connection) OnSent(buffer bytebuffers.Buffer, err error) {
	conn.wch <- sent{remain: buffer.Len(), err: err}
}

func (conn *Connection) OnClosed() {
	conn.eofOnce.Do(func() {
		close(conn.eof)
	})
}

func (conn *Connection) IsClose(err error) bool {
	return proactor.IsClosed(err)
}

func mapErr(err error) error {
	if err != nil && proactor.IsNotConnected(err) {
		return net.ErrClosed
	}
	return err
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

var never = make(chan time.Time)

// deadline returns a channel that fires at the stored deadline, or never when unset.
func deadline(v *atomic.Int64) (<-chan time.Time, func()) {
	ns := v.Load()
	if ns == 0 {
		return never, func() {}
	}
	d := time.Until(time.Unix(0, ns))
	if d <= 0 {
		closed := make(chan time.Time)
		close(closed)
		return closed, func() {}
	}
	timer := time.NewTimer(d)
	return timer.C, func() { timer.Stop() }
}

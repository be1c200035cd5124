package sockets

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/aio"
	"github.com/brickingsoft/rxp"
)

// Helper
// 基于 net.Conn 的 aio.Helper 实现。
//
// 每次 Send / Recv 作为一个任务提交到 ctx 中的 rxp 执行器，在执行器协程上完成阻塞读写后回调 Completer。
// 执行器拒绝任务时在调用协程上同步以 aio.ErrBusy 完成。
type Helper struct {
	ctx            context.Context
	conn           net.Conn
	completer      aio.Completer
	readBufferSize int
	logger         *slog.Logger
	recvShutdown   atomic.Bool
	closeOnce      sync.Once
	closeErr       error
}

// NewHelper binds conn to the executors carried by ctx (see rxp.With).
func NewHelper(ctx context.Context, conn net.Conn, options ...Option) *Helper {
	opts := Options{
		ReadBufferSize: DefaultReadBufferSize,
		Logger:         slog.Default(),
	}
	for _, option := range options {
		option(&opts)
	}
	return &Helper{
		ctx:            ctx,
		conn:           conn,
		readBufferSize: opts.ReadBufferSize,
		logger:         opts.Logger,
	}
}

func (h *Helper) BindHandler(completer aio.Completer) {
	h.completer = completer
}

func (h *Helper) Send(op *aio.Op) {
	h.submit(aio.Send, op)
}

func (h *Helper) Recv(op *aio.Op) {
	h.submit(aio.Receive, op)
}

func (h *Helper) submit(direction aio.Direction, op *aio.Op) {
	t := acquireTask(h, direction, op)
	if ok := rxp.TryExecute(h.ctx, t); ok {
		return
	}
	releaseTask(t)
	name := errMetaOpRecv
	if direction == aio.Send {
		name = errMetaOpSend
	}
	h.complete(direction, op, newErr(name, aio.ErrBusy))
}

func (h *Helper) complete(direction aio.Direction, op *aio.Op, err error) {
	if direction == aio.Send {
		h.completer.OnSent(op, err)
		return
	}
	h.completer.OnRecv(op, err)
}

// send writes the op's readable bytes, or the first Len of them, and
// consumes what was written.
func (h *Helper) send(op *aio.Op) error {
	buf := op.Buffer()
	n := buf.Len()
	if length := op.Len(); length > 0 && length < n {
		n = length
	}
	if n == 0 {
		return nil
	}
	wn, err := h.conn.Write(buf.Peek(n))
	if wn > 0 {
		_ = buf.Discard(wn)
	}
	if err != nil {
		return newErr(errMetaOpSend, err)
	}
	return nil
}

// recv fills Len bytes when Len is set, otherwise performs one read into
// whatever space the buffer has.
func (h *Helper) recv(op *aio.Op) error {
	buf := op.Buffer()
	size := op.Len()
	if size <= 0 {
		size = buf.Available()
		if size == 0 {
			size = h.readBufferSize
		}
	}
	p, allocateErr := buf.Allocate(size)
	if allocateErr != nil {
		return newErr(errMetaOpRecv, errors.From(aio.ErrAllocate, errors.WithWrap(allocateErr)))
	}
	var (
		n   int
		err error
	)
	if op.Len() > 0 {
		n, err = io.ReadFull(h.conn, p)
	} else {
		n, err = h.conn.Read(p)
		if n == 0 && err == nil {
			err = io.EOF
		}
	}
	_ = buf.AllocatedWrote(n)
	if err != nil {
		if h.recvShutdown.Load() && errors.Is(err, os.ErrDeadlineExceeded) {
			err = net.ErrClosed
		}
		return newErr(errMetaOpRecv, err)
	}
	return nil
}

// Shutdown half-closes the connection. A pending read is unblocked with an
// expired deadline so it completes as closed.
func (h *Helper) Shutdown(closeSend bool, closeRecv bool) {
	if closeSend {
		var err error
		if cw, ok := h.conn.(interface{ CloseWrite() error }); ok {
			err = cw.CloseWrite()
		} else {
			err = shutdown(h.conn, true, false)
		}
		if err != nil && !IsClosed(err) {
			h.logger.Debug("sockets: shutdown send failed", slog.String("op", errMetaOpShutdown), slog.Any("addr", h.conn.RemoteAddr()), slog.Any("err", err))
		}
	}
	if closeRecv {
		h.recvShutdown.Store(true)
		var err error
		if cr, ok := h.conn.(interface{ CloseRead() error }); ok {
			err = cr.CloseRead()
		} else {
			err = shutdown(h.conn, false, true)
		}
		if err != nil && !IsClosed(err) {
			h.logger.Debug("sockets: shutdown receive failed", slog.String("op", errMetaOpShutdown), slog.Any("addr", h.conn.RemoteAddr()), slog.Any("err", err))
		}
		_ = h.conn.SetReadDeadline(time.Unix(1, 0))
	}
}

// Close closes the connection once.
func (h *Helper) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.conn.Close()
	})
	return h.closeErr
}

func (h *Helper) LocalAddr() net.Addr {
	return h.conn.LocalAddr()
}

func (h *Helper) RemoteAddr() net.Addr {
	return h.conn.RemoteAddr()
}

type task struct {
	helper    *Helper
	direction aio.Direction
	op        *aio.Op
}

var tasks = sync.Pool{New: func() interface{} {
	return &task{}
}}

func acquireTask(helper *Helper, direction aio.Direction, op *aio.Op) *task {
	t := tasks.Get().(*task)
	t.helper = helper
	t.direction = direction
	t.op = op
	return t
}

func releaseTask(t *task) {
	t.helper = nil
	t.op = nil
	tasks.Put(t)
}

func (t *task) Handle(_ context.Context) {
	helper, direction, op := t.helper, t.direction, t.op
	releaseTask(t)
	var err error
	if direction == aio.Send {
		err = helper.send(op)
	} else {
		err = helper.recv(op)
	}
	helper.complete(direction, op, err)
}

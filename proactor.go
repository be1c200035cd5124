package proactor

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/aio"
	"github.com/brickingsoft/proactor/pkg/rate/timeslimiter"
	"github.com/brickingsoft/proactor/pkg/sockets"
	"github.com/brickingsoft/rxp"
)

// Proactor
// 异步 IO 的驱动者。
//
// 所有链接的读写作为任务提交到 rxp 执行器，完成后在执行器协程上回调 Handler。
// 一个进程内可以存在多个 Proactor，彼此独立。
type Proactor struct {
	options      Options
	ctx          context.Context
	cancel       context.CancelFunc
	executors    rxp.Executors
	ownExecutors bool
	limiter      *timeslimiter.Bucket
	accepted     atomic.Int64
	wg           sync.WaitGroup
	mu           sync.Mutex
	listeners    map[*listener]struct{}
	closed       bool
}

// New
// 创建 Proactor。
//
// 未通过 WithExecutors 指定执行器时，创建自有执行器，并在 Close 时优雅关闭。
func New(options ...Option) (p *Proactor, err error) {
	opts := Options{
		Logger:            slog.Default(),
		ReadBufferSize:    sockets.DefaultReadBufferSize,
		AcceptBackoffMin:  DefaultAcceptBackoffMin,
		AcceptBackoffMax:  DefaultAcceptBackoffMax,
		AcceptMaxAttempts: DefaultAcceptMaxAttempts,
		ConnectTimeout:    DefaultConnectTimeout,
	}
	for _, option := range options {
		if err = option(&opts); err != nil {
			return
		}
	}
	executors := opts.Executors
	own := executors == nil
	if own {
		executors, err = newExecutors(opts.AsRxpOptions())
		if err != nil {
			return
		}
	}
	ctx, cancel := context.WithCancel(rxp.With(context.Background(), executors))
	p = &Proactor{
		options:      opts,
		ctx:          ctx,
		cancel:       cancel,
		executors:    executors,
		ownExecutors: own,
		limiter:      timeslimiter.New(opts.MaxConnections),
		listeners:    make(map[*listener]struct{}),
	}
	return
}

func newExecutors(options []rxp.Option) (rxp.Executors, error) {
	executors, err := rxp.New(options...)
	if err != nil {
		return nil, errors.New("new executors failed", errors.WithMeta(errMetaPkgKey, errMetaPkgVal), errors.WithWrap(err))
	}
	return executors, nil
}

// Executors
// 获取执行器
func (p *Proactor) Executors() rxp.Executors {
	return p.executors
}

// Accepted returns the number of accepted sockets that are not destroyed yet.
func (p *Proactor) Accepted() int64 {
	return p.accepted.Load()
}

// attachAccepted attaches conn and ties the limiter token taken before Accept to the socket's lifetime.
func (p *Proactor) attachAccepted(conn net.Conn, handler Handler) *aio.Socket {
	p.accepted.Add(1)
	return p.attach(conn, handler, func() {
		p.accepted.Add(-1)
		p.limiter.Revert()
	})
}

// Close
// 关闭所有监听，等待接受协程退出，再关闭自有执行器。
//
// 已建立的链接不会被关闭，需要由使用者 Dispose。
func (p *Proactor) Close() (err error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	listeners := make([]*listener, 0, len(p.listeners))
	for ln := range p.listeners {
		listeners = append(listeners, ln)
	}
	p.mu.Unlock()

	for _, ln := range listeners {
		_ = ln.Close()
	}
	p.wg.Wait()
	p.cancel()
	if p.ownExecutors {
		err = p.executors.Close()
	}
	p.options.Logger.Debug("proactor closed", slog.Int("listeners", len(listeners)))
	return
}

func (p *Proactor) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Proactor) attach(conn net.Conn, handler Handler, onDestroy func()) *aio.Socket {
	helper := sockets.NewHelper(p.ctx, conn, p.options.asSocketOptions()...)
	var opts []aio.SocketOption
	if onDestroy != nil {
		opts = append(opts, aio.WithOnDestroy(onDestroy))
	}
	return aio.NewSocket(helper, handler, opts...)
}

// AttachSocket
// 将已建立的链接交给 Proactor 驱动，之后 conn 由返回的 AsyncSocket 持有。
func (p *Proactor) AttachSocket(conn net.Conn, handler Handler) (AsyncSocket, error) {
	if err := p.checkAttach(conn, handler); err != nil {
		return nil, err
	}
	return p.attach(conn, handler, nil), nil
}

// AttachLocalSocket
// 同 AttachSocket，用于 unix 域链接。
func (p *Proactor) AttachLocalSocket(conn *net.UnixConn, handler Handler) (AsyncLocalSocket, error) {
	if conn == nil {
		return nil, errArgumentRequired
	}
	if err := p.checkAttach(conn, handler); err != nil {
		return nil, err
	}
	return &localSocket{Socket: p.attach(conn, handler, nil), conn: conn}, nil
}

func (p *Proactor) checkAttach(conn net.Conn, handler Handler) error {
	if conn == nil || handler == nil {
		return errArgumentRequired
	}
	if p.isClosed() {
		return ErrClosed
	}
	return nil
}

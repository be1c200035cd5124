package proactor

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/jpillora/backoff"
)

// Listener
// 监听句柄，Close 停止接受新链接。
type Listener interface {
	io.Closer
	Addr() net.Addr
}

type listener struct {
	proactor  *Proactor
	inner     net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

func (ln *listener) Addr() net.Addr {
	return ln.inner.Addr()
}

// Close stops accepting. It does not wait for the accept goroutine, so it is safe to call from OnAccept.
func (ln *listener) Close() error {
	ln.closeOnce.Do(func() {
		ln.cancel()
		if err := ln.inner.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			ln.closeErr = err
		}
		ln.proactor.mu.Lock()
		delete(ln.proactor.listeners, ln)
		ln.proactor.mu.Unlock()
	})
	return ln.closeErr
}

// AcceptRemote
// 在 address:port 上监听 tcp，新链接交给 acceptor。
//
// 返回的 Listener 用于停止监听，Proactor.Close 也会停止它。
func (p *Proactor) AcceptRemote(acceptor Acceptor[AsyncSocket], address string, port string) (Listener, error) {
	if acceptor == nil {
		return nil, errArgumentRequired
	}
	if p.isClosed() {
		return nil, ErrClosed
	}
	addr := net.JoinHostPort(address, port)
	config := net.ListenConfig{}
	inner, err := config.Listen(p.ctx, "tcp", addr)
	if err != nil {
		return nil, newErr(errMetaOpListen, addr, err)
	}
	return p.serve(inner, func(conn net.Conn) {
		handler := acceptor.Handler(conn.RemoteAddr())
		if handler == nil {
			p.reject(conn)
			return
		}
		acceptor.OnAccept(p.attachAccepted(conn, handler), nil)
	}, func(err error) {
		acceptor.OnAccept(nil, err)
	})
}

// AcceptLocal
// 在 path 上监听 unix 域链接，新链接交给 acceptor。
func (p *Proactor) AcceptLocal(acceptor Acceptor[AsyncLocalSocket], path string) (Listener, error) {
	if acceptor == nil {
		return nil, errArgumentRequired
	}
	if p.isClosed() {
		return nil, ErrClosed
	}
	config := net.ListenConfig{}
	inner, err := config.Listen(p.ctx, "unix", path)
	if err != nil {
		return nil, newErr(errMetaOpListen, path, err)
	}
	if unix, ok := inner.(*net.UnixListener); ok {
		unix.SetUnlinkOnClose(p.options.UnixListenerUnlinkOnClose)
	}
	return p.serve(inner, func(conn net.Conn) {
		unixConn, ok := conn.(*net.UnixConn)
		if !ok {
			p.reject(conn)
			return
		}
		handler := acceptor.Handler(conn.RemoteAddr())
		if handler == nil {
			p.reject(conn)
			return
		}
		socket := &localSocket{Socket: p.attachAccepted(conn, handler), conn: unixConn}
		acceptor.OnAccept(socket, nil)
	}, func(err error) {
		acceptor.OnAccept(nil, err)
	})
}

func (p *Proactor) reject(conn net.Conn) {
	p.options.Logger.Debug("proactor rejected connection", slog.String("remote", conn.RemoteAddr().String()))
	_ = conn.Close()
	p.limiter.Revert()
}

func (p *Proactor) serve(inner net.Listener, accepted func(conn net.Conn), failed func(err error)) (Listener, error) {
	ctx, cancel := context.WithCancel(p.ctx)
	ln := &listener{
		proactor: p,
		inner:    inner,
		ctx:      ctx,
		cancel:   cancel,
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		_ = inner.Close()
		return nil, ErrClosed
	}
	p.listeners[ln] = struct{}{}
	p.wg.Add(1)
	p.mu.Unlock()

	go p.acceptLoop(ln, accepted, failed)
	return ln, nil
}

func (p *Proactor) acceptLoop(ln *listener, accepted func(conn net.Conn), failed func(err error)) {
	defer p.wg.Done()
	addr := ln.Addr().String()
	logger := p.options.Logger.With(slog.String("addr", addr))
	b := &backoff.Backoff{
		Factor: 2,
		Jitter: true,
		Min:    p.options.AcceptBackoffMin,
		Max:    p.options.AcceptBackoffMax,
	}
	logger.Debug("proactor accepting")
	for {
		if err := p.limiter.Wait(ln.ctx); err != nil {
			return
		}
		conn, err := ln.inner.Accept()
		if err != nil {
			p.limiter.Revert()
			if ln.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Debug("proactor stopped accepting")
				return
			}
			if int(b.Attempt()) >= p.options.AcceptMaxAttempts {
				logger.Error("proactor accept failed", slog.Any("error", err))
				_ = ln.Close()
				failed(newErr(errMetaOpAccept, addr, err))
				return
			}
			d := b.Duration()
			logger.Warn("proactor accept failed, retrying", slog.Duration("backoff", d), slog.Any("error", err))
			timer := time.NewTimer(d)
			select {
			case <-ln.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			continue
		}
		b.Reset()
		accepted(conn)
	}
}

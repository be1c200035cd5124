package adaptor

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/brickingsoft/proactor"
	"github.com/brickingsoft/proactor/pkg/bytebuffers"
	"github.com/brickingsoft/rxp"
	"github.com/brickingsoft/rxp/async"
	"github.com/eapache/queue"
)

// Futures
// 以 async.Future 表达的异步链接。
//
// 每次提交的请求都对应一个 promise，按方向存放在队列里。
// 同一方向的完成顺序与提交顺序一致，所以队首的 promise 总是当前完成的那一个。
type Futures struct {
	ctx     context.Context
	socket  proactor.AsyncSocket
	inbound bytebuffers.Buffer
	reads   *pendings[bytebuffers.Buffer]
	writes  *pendings[int]
	// mu guards inbound against Close
	mu        sync.RWMutex
	released  bool
	closeOnce sync.Once
}

// NewFutures creates an unbound Futures. ctx must carry rxp executors (see rxp.With).
func NewFutures(ctx context.Context) *Futures {
	return &Futures{
		ctx:     ctx,
		inbound: bytebuffers.Acquire(),
		reads:   newPendings[bytebuffers.Buffer](),
		writes:  newPendings[int](),
	}
}

// ConnectFutures dials address:port through p and binds the new socket.
func ConnectFutures(ctx context.Context, p *proactor.Proactor, address string, port string) (*Futures, error) {
	futures := NewFutures(rxp.With(context.Background(), p.Executors()))
	socket, err := p.Connect(ctx, address, port, futures)
	if err != nil {
		futures.inbound.Release()
		return nil, err
	}
	futures.Bind(socket)
	return futures, nil
}

// Bind attaches the socket created with f as its handler. It must be called before Read or Write.
func (f *Futures) Bind(socket proactor.AsyncSocket) {
	f.socket = socket
}

// Read
// 读取一次，future 的结果为累积的入站缓冲，未消费的字节会保留到下一次读取。
//
// 同一时刻只应有一个读取者。Close 之后读取返回 net.ErrClosed。
func (f *Futures) Read() async.Future[bytebuffers.Buffer] {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.released {
		return async.FailedImmediately[bytebuffers.Buffer](f.ctx, net.ErrClosed)
	}
	return submit(f.ctx, f.reads, 0, func() error {
		return f.socket.AsyncRecv(f.inbound, 0)
	})
}

// Write
// 写出 p，future 的结果为写出的字节数。
func (f *Futures) Write(p []byte) async.Future[int] {
	if len(p) == 0 {
		return async.SucceedImmediately[int](f.ctx, 0)
	}
	buf := bytebuffers.From(p)
	defer buf.Release()
	return submit(f.ctx, f.writes, len(p), func() error {
		return f.socket.AsyncSend(buf)
	})
}

// Close disposes the socket. Pending reads fail with io.EOF once the receive side drains,
// after that the inbound buffer goes back to the pool and buffers from earlier reads are invalid.
func (f *Futures) Close() error {
	f.closeOnce.Do(func() {
		f.socket.Dispose()
		f.mu.Lock()
		f.released = true
		f.inbound.Release()
		f.mu.Unlock()
	})
	return nil
}

func (f *Futures) LocalAddr() net.Addr {
	return f.socket.LocalAddr()
}

func (f *Futures) RemoteAddr() net.Addr {
	return f.socket.RemoteAddr()
}

func (f *Futures) OnRecv(buffer bytebuffers.Buffer, err error) {
	f.reads.complete(buffer, err)
}

func (f *Futures) OnSent(buffer bytebuffers.Buffer, err error) {
	f.writes.completeWith(func(size int) (int, error) {
		return size - buffer.Len(), err
	})
}

func (f *Futures) OnClosed() {
	f.reads.failAll(io.EOF)
}

func (f *Futures) IsClose(err error) bool {
	return proactor.IsClosed(err)
}

type pending[T any] struct {
	promise async.Promise[T]
	size    int
	dead    bool
}

// pendings is a FIFO of promises. submitter serializes push+submit so a
// synchronous submit failure always concerns the tail entry.
type pendings[T any] struct {
	submitter sync.Mutex
	mu        sync.Mutex
	entries   *queue.Queue
}

func newPendings[T any]() *pendings[T] {
	return &pendings[T]{entries: queue.New()}
}

func submit[T any](ctx context.Context, p *pendings[T], size int, fn func() error) async.Future[T] {
	promise, promiseErr := async.Make[T](ctx)
	if promiseErr != nil {
		return async.FailedImmediately[T](ctx, promiseErr)
	}
	future := promise.Future()
	entry := &pending[T]{promise: promise, size: size}

	p.submitter.Lock()
	p.mu.Lock()
	p.entries.Add(entry)
	p.mu.Unlock()
	if err := fn(); err != nil {
		p.mu.Lock()
		entry.dead = true
		p.mu.Unlock()
		promise.Fail(err)
	}
	p.submitter.Unlock()
	return future
}

func (p *pendings[T]) next() (entry *pending[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.entries.Length() > 0 {
		entry = p.entries.Remove().(*pending[T])
		if !entry.dead {
			return
		}
	}
	return nil
}

func (p *pendings[T]) complete(value T, err error) {
	if entry := p.next(); entry != nil {
		resolve(entry.promise, value, err)
	}
}

func (p *pendings[T]) completeWith(fn func(size int) (T, error)) {
	if entry := p.next(); entry != nil {
		value, err := fn(entry.size)
		resolve(entry.promise, value, err)
	}
}

func (p *pendings[T]) failAll(err error) {
	for entry := p.next(); entry != nil; entry = p.next() {
		entry.promise.Fail(err)
	}
}

func resolve[T any](promise async.Promise[T], value T, err error) {
	if err != nil {
		promise.Fail(err)
		return
	}
	promise.Succeed(value)
}

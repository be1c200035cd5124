package aio

import (
	"sync"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/bytebuffers"
	"github.com/brickingsoft/proactor/pkg/reference"
	"github.com/eapache/queue"
)

// Queued
// 单方向（发送或接收）的串行队列与完成分发器。
//
// 同一方向最多一个 Op 在 Helper 中执行，其余在 FIFO 中等待，完成按提交顺序交付。
// 锁只保护入队、出队和标志位，调用 Helper 与 Handler 前一律释放。
type Queued struct {
	direction Direction
	helper    *reference.Pointer[Helper]
	handler   Handler
	locker    sync.Mutex
	drained   *sync.Cond
	ops       *queue.Queue
	inflight  bool
	closed    bool
	notifying bool
	finished  bool
}

func NewQueued(direction Direction, helper *reference.Pointer[Helper], handler Handler) *Queued {
	q := &Queued{
		direction: direction,
		helper:    helper,
		handler:   handler,
		ops:       queue.New(),
	}
	q.drained = sync.NewCond(&q.locker)
	return q
}

func (q *Queued) Direction() Direction {
	return q.direction
}

// AsyncOp queues one asynchronous operation. A nil error only means the op
// was accepted; its result arrives through the Handler.
func (q *Queued) AsyncOp(buffer bytebuffers.Buffer, length int) error {
	if err := q.prepare(buffer, length); err != nil {
		return err
	}
	return q.enqueue(buffer, length, nil)
}

// SyncOp performs one operation and waits up to timeout for it. A negative
// timeout waits forever. On timeout the platform op keeps running.
func (q *Queued) SyncOp(buffer bytebuffers.Buffer, length int, timeout time.Duration) error {
	if err := q.prepare(buffer, length); err != nil {
		return err
	}
	info := acquireBlockingInfo()
	if err := q.enqueue(buffer, length, info); err != nil {
		releaseBlockingInfo(info)
		return err
	}
	return info.wait(q.direction, timeout)
}

func (q *Queued) prepare(buffer bytebuffers.Buffer, length int) error {
	if buffer == nil {
		return newOpErr(q.direction, ErrInvalidBuffer)
	}
	if length > 0 {
		if err := buffer.Space(length); err != nil {
			return newOpErr(q.direction, errors.From(ErrAllocate, errors.WithWrap(err)))
		}
	}
	return nil
}

func (q *Queued) enqueue(buffer bytebuffers.Buffer, length int, waiter *BlockingInfo) error {
	op := acquireOp(buffer.Duplicate(), length, waiter)

	q.locker.Lock()
	if q.closed {
		q.locker.Unlock()
		op.buffer.Release()
		releaseOp(op)
		return newOpErr(q.direction, ErrNotConnected)
	}
	q.ops.Add(op)
	if q.inflight {
		q.locker.Unlock()
		return nil
	}
	q.issueNext()
	return nil
}

// issueNext must be called with the lock held and returns with it released.
func (q *Queued) issueNext() {
	if q.ops.Length() > 0 {
		op := q.ops.Remove().(*Op)
		q.inflight = true
		q.locker.Unlock()

		// the helper may complete on this goroutine and reenter NotifyAsync
		if q.direction == Send {
			q.helper.Value().Send(op)
		} else {
			q.helper.Value().Recv(op)
		}
		return
	}

	q.inflight = false
	if q.closed {
		q.notifyClosed()
	}
	q.locker.Unlock()
	q.drained.Broadcast()
}

// notifyClosed delivers OnClosed once for the receive direction.
// Lock held on entry and on return.
func (q *Queued) notifyClosed() {
	if q.direction != Receive {
		q.finished = true
		return
	}
	if q.notifying {
		return
	}
	q.notifying = true
	q.locker.Unlock()
	q.handler.OnClosed()
	q.locker.Lock()
	q.finished = true
}

// NotifyAsync is invoked once per issued op when the helper finishes it.
func (q *Queued) NotifyAsync(op *Op, err error) (delivery Delivery) {
	closing := err != nil && q.handler.IsClose(err)

	buffer := op.buffer
	if waiter := op.waiter; waiter != nil {
		waiter.deliver(err)
		delivery = DeliveredToWaiter
	} else {
		switch {
		case q.direction == Send:
			q.handler.OnSent(buffer, err)
		case closing:
			// hand over what arrived before the close, then stay quiet
			if buffer.Len() > 0 {
				q.handler.OnRecv(buffer, nil)
			}
		default:
			q.handler.OnRecv(buffer, err)
		}
		delivery = DeliveredToHandler
	}
	buffer.Release()
	releaseOp(op)

	q.locker.Lock()
	if !q.inflight {
		q.locker.Unlock()
		panic(ErrUnexpectedCompletion)
	}
	if closing {
		q.closed = true
	}
	q.issueNext()
	return
}

// Dispose shuts this direction down. The receive direction blocks until
// every queued op has completed and OnClosed has been delivered; the send
// direction returns at once and lets queued sends drain in the background.
func (q *Queued) Dispose() {
	q.helper.Value().Shutdown(q.direction == Send, q.direction == Receive)

	q.locker.Lock()
	q.closed = true
	if q.direction == Send {
		q.locker.Unlock()
		return
	}
	if !q.inflight {
		// nothing will complete, so nobody else will notice the close
		q.notifyClosed()
		q.locker.Unlock()
		q.drained.Broadcast()
		q.locker.Lock()
	}
	for !q.finished {
		q.drained.Wait()
	}
	q.locker.Unlock()
}

func (q *Queued) Pending() (n int) {
	q.locker.Lock()
	n = q.ops.Length()
	if q.inflight {
		n++
	}
	q.locker.Unlock()
	return
}

func (q *Queued) Closed() (closed bool) {
	q.locker.Lock()
	closed = q.closed
	q.locker.Unlock()
	return
}

func (q *Queued) release() error {
	return q.helper.Close()
}

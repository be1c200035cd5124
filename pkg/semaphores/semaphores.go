package semaphores

import (
	"context"
	"sync/atomic"
	"time"
)

// Event
// 一次性事件。Set 之后所有 Wait 立即返回，直到 Reset。
type Event struct {
	ch     chan struct{}
	status atomic.Bool
}

func NewEvent() *Event {
	return &Event{
		ch: make(chan struct{}),
	}
}

// Set signals the event. Only the first call has an effect.
func (e *Event) Set() bool {
	if e.status.CompareAndSwap(false, true) {
		close(e.ch)
		return true
	}
	return false
}

func (e *Event) IsSet() bool {
	return e.status.Load()
}

// Wait blocks until the event is set or timeout elapses.
// A negative timeout waits forever, zero only polls.
func (e *Event) Wait(timeout time.Duration) bool {
	if timeout < 0 {
		<-e.ch
		return true
	}
	if timeout == 0 {
		return e.settled()
	}
	timer := time.NewTimer(timeout)
	select {
	case <-e.ch:
		timer.Stop()
		return true
	case <-timer.C:
		return e.settled()
	}
}

// settled reports whether Set has finished. Set flips status before closing ch,
// so a true status is only trusted once ch is closed.
func (e *Event) settled() bool {
	if !e.IsSet() {
		return false
	}
	<-e.ch
	return true
}

func (e *Event) WaitContext(ctx context.Context) (err error) {
	select {
	case <-ctx.Done():
		err = ctx.Err()
		if e.settled() {
			err = nil
		}
	case <-e.ch:
	}
	return
}

// Reset rearms a set event. Callers must ensure nobody is waiting on it.
func (e *Event) Reset() {
	if e.status.CompareAndSwap(true, false) {
		e.ch = make(chan struct{})
	}
}

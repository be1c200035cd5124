package aio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/brickingsoft/proactor/pkg/bytebuffers"
	"github.com/brickingsoft/proactor/pkg/semaphores"
)

type Direction uint8

const (
	Receive Direction = iota
	Send
)

func (d Direction) String() string {
	if d == Send {
		return "send"
	}
	return "receive"
}

// Op
// 一次挂起的发送或接收请求。
//
// Op 由入队方创建，随 Helper.Send / Helper.Recv 移交给平台，完成时经 Completer 原样交回，
// 由处理完成的一方释放，Helper 从不释放它。
type Op struct {
	buffer bytebuffers.Buffer
	length int
	waiter *BlockingInfo
}

// Buffer is the duplicated handle owned by the op.
func (op *Op) Buffer() bytebuffers.Buffer {
	return op.buffer
}

// Len is the requested length. Zero means the whole buffer for sends and
// the available space for receives.
func (op *Op) Len() int {
	return op.length
}

func (op *Op) Blocking() bool {
	return op.waiter != nil
}

var (
	ops = sync.Pool{New: func() interface{} {
		return &Op{}
	}}
)

func acquireOp(buffer bytebuffers.Buffer, length int, waiter *BlockingInfo) *Op {
	op := ops.Get().(*Op)
	op.buffer = buffer
	op.length = length
	op.waiter = waiter
	return op
}

func releaseOp(op *Op) {
	op.buffer = nil
	op.length = 0
	op.waiter = nil
	ops.Put(op)
}

// Delivery tells the socket where a completion went.
type Delivery uint8

const (
	DeliveredToWaiter Delivery = iota + 1
	DeliveredToHandler
)

const (
	unclaimed int32 = iota
	completed
	cancelled
)

// BlockingInfo
// 在异步原语上模拟阻塞调用的同步令牌。
//
// 超时路径与完成路径只竞争一次 state：完成方赢则写入 err 并唤醒等待者，由等待者释放；
// 等待者赢（超时取消）则由之后到达的完成方释放。
type BlockingInfo struct {
	ev    *semaphores.Event
	err   error
	state atomic.Int32
}

// deliver is the completion side of the hand-off.
func (info *BlockingInfo) deliver(err error) {
	if info.state.CompareAndSwap(unclaimed, completed) {
		info.err = err
		info.ev.Set()
		return
	}
	// the waiter timed out and left
	releaseBlockingInfo(info)
}

// wait is the caller side of the hand-off.
func (info *BlockingInfo) wait(direction Direction, timeout time.Duration) (err error) {
	if !info.ev.Wait(timeout) {
		if info.state.CompareAndSwap(unclaimed, cancelled) {
			err = newOpErr(direction, ErrTimeout)
			return
		}
		// completion claimed first and is about to signal
		info.ev.Wait(-1)
	}
	err = info.err
	releaseBlockingInfo(info)
	return
}

type blockingInfoPool struct {
	sp       sync.Pool
	acquired atomic.Uint64
	released atomic.Uint64
}

var blockingInfos = &blockingInfoPool{sp: sync.Pool{New: func() interface{} {
	return &BlockingInfo{ev: semaphores.NewEvent()}
}}}

func acquireBlockingInfo() *BlockingInfo {
	info := blockingInfos.sp.Get().(*BlockingInfo)
	blockingInfos.acquired.Add(1)
	return info
}

func releaseBlockingInfo(info *BlockingInfo) {
	info.err = nil
	info.ev.Reset()
	info.state.Store(unclaimed)
	blockingInfos.released.Add(1)
	blockingInfos.sp.Put(info)
}

// BlockingInfoStats reports how many blocking tokens were handed out and
// given back. Equal counts at rest mean none leaked or were freed twice.
func BlockingInfoStats() (acquired uint64, released uint64) {
	acquired = blockingInfos.acquired.Load()
	released = blockingInfos.released.Load()
	return
}

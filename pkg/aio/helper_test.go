package aio_test

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brickingsoft/proactor/pkg/aio"
	"github.com/brickingsoft/proactor/pkg/bytebuffers"
)

var errReset = errors.New("connection reset by peer")

// manualHelper holds issued ops until the test completes them.
type manualHelper struct {
	mu          sync.Mutex
	completer   aio.Completer
	pending     [2][]*aio.Op
	issued      [2]int
	inflight    [2]int
	maxInflight [2]int
	shutdowns   []string
	closed      atomic.Int32
	// auto completes every op on its own goroutine after delay with err
	auto      bool
	autoDelay time.Duration
	autoErr   error
	// inline completes every op on the issuing goroutine
	inline    bool
	inlineErr error
}

func (h *manualHelper) BindHandler(completer aio.Completer) {
	h.completer = completer
}

func (h *manualHelper) Send(op *aio.Op) {
	h.issue(aio.Send, op)
}

func (h *manualHelper) Recv(op *aio.Op) {
	h.issue(aio.Receive, op)
}

func (h *manualHelper) issue(direction aio.Direction, op *aio.Op) {
	h.mu.Lock()
	h.issued[direction]++
	h.inflight[direction]++
	if h.inflight[direction] > h.maxInflight[direction] {
		h.maxInflight[direction] = h.inflight[direction]
	}
	h.pending[direction] = append(h.pending[direction], op)
	h.mu.Unlock()

	switch {
	case h.inline:
		h.Complete(direction, h.inlineErr)
	case h.auto:
		go func() {
			if h.autoDelay > 0 {
				time.Sleep(h.autoDelay)
			}
			h.Complete(direction, h.autoErr)
		}()
	}
}

// Peek returns the op currently with the helper, or nil.
func (h *manualHelper) Peek(direction aio.Direction) *aio.Op {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.pending[direction]) == 0 {
		return nil
	}
	return h.pending[direction][0]
}

func (h *manualHelper) Outstanding(direction aio.Direction) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending[direction])
}

func (h *manualHelper) Issued(direction aio.Direction) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.issued[direction]
}

func (h *manualHelper) MaxInflight(direction aio.Direction) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxInflight[direction]
}

// Complete finishes the oldest outstanding op of direction.
func (h *manualHelper) Complete(direction aio.Direction, err error) bool {
	h.mu.Lock()
	if len(h.pending[direction]) == 0 {
		h.mu.Unlock()
		return false
	}
	op := h.pending[direction][0]
	h.pending[direction] = h.pending[direction][1:]
	h.inflight[direction]--
	h.mu.Unlock()

	if direction == aio.Send {
		h.completer.OnSent(op, err)
	} else {
		h.completer.OnRecv(op, err)
	}
	return true
}

func (h *manualHelper) Shutdown(closeSend bool, closeRecv bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if closeSend {
		h.shutdowns = append(h.shutdowns, "send")
	}
	if closeRecv {
		h.shutdowns = append(h.shutdowns, "recv")
	}
}

func (h *manualHelper) Shutdowns() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.shutdowns...)
}

func (h *manualHelper) Close() error {
	h.closed.Add(1)
	return nil
}

func (h *manualHelper) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}
}

func (h *manualHelper) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 2}
}

type event struct {
	kind string
	data string
	err  error
}

// recordingHandler keeps every callback in arrival order.
type recordingHandler struct {
	mu     sync.Mutex
	events []event
	closed atomic.Int32
	sent   chan string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{sent: make(chan string, 1024)}
}

func (h *recordingHandler) OnRecv(buffer bytebuffers.Buffer, err error) {
	h.mu.Lock()
	h.events = append(h.events, event{kind: "recv", data: string(buffer.Bytes()), err: err})
	h.mu.Unlock()
}

func (h *recordingHandler) OnSent(buffer bytebuffers.Buffer, err error) {
	data := string(buffer.Bytes())
	h.mu.Lock()
	h.events = append(h.events, event{kind: "sent", data: data, err: err})
	h.mu.Unlock()
	h.sent <- data
}

func (h *recordingHandler) OnClosed() {
	h.closed.Add(1)
	h.mu.Lock()
	h.events = append(h.events, event{kind: "closed"})
	h.mu.Unlock()
}

func (h *recordingHandler) IsClose(err error) bool {
	return errors.Is(err, errReset)
}

func (h *recordingHandler) Events() []event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]event(nil), h.events...)
}

func (h *recordingHandler) Data(kind string) []string {
	var data []string
	for _, e := range h.Events() {
		if e.kind == kind {
			data = append(data, e.data)
		}
	}
	return data
}

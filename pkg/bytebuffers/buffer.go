package bytebuffers

import (
	"errors"
	"io"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

// Buffer
// 带读写游标、引用计数的字节缓冲。
//
// Buffer 本身不是并发安全的，引用计数除外。异步操作进行中时，缓冲的所有权属于该操作。
type Buffer interface {
	Len() (n int)
	Cap() (n int)
	Available() (n int)
	Bytes() (p []byte)
	Peek(n int) (p []byte)
	Next(n int) (p []byte, err error)
	Discard(n int) (err error)
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	WriteString(s string) (n int, err error)
	// Space reserves at least n writable bytes behind the write cursor.
	Space(n int) (err error)
	Allocate(size int) (p []byte, err error)
	AllocatedWrote(n int) (err error)
	WritePending() bool
	Reset()
	// Duplicate adds a reference and returns the same buffer.
	Duplicate() Buffer
	// Release drops a reference. The storage returns to the pool at zero.
	Release()
	Refs() int64
}

const (
	DefaultMaxSize = 64 << 20
)

var (
	ErrTooLarge                  = errors.New("bytebuffers.Buffer: too large")
	ErrWriteBeforeAllocatedWrote = errors.New("bytebuffers: cannot write before AllocatedWrote(), cause prev Allocate() was not finished, please call AllocatedWrote() after the area was wrote")
	ErrAllocateZero              = errors.New("bytebuffers: cannot allocate zero")
	ErrAllocatedWroteOverflow    = errors.New("bytebuffers: wrote more than allocated")
	ErrNotAllocated              = errors.New("bytebuffers: AllocatedWrote() without Allocate()")
	ErrDiscardOverflow           = errors.New("bytebuffers: discard more than buffered")
	ErrReleased                  = errors.New("bytebuffers: use of released buffer")
)

type buffer struct {
	bb      *bytebufferpool.ByteBuffer
	r       int
	pending int
	max     int
	refs    atomic.Int64
}

func (buf *buffer) Len() int { return len(buf.bb.B) - buf.r }

func (buf *buffer) Cap() int { return cap(buf.bb.B) }

func (buf *buffer) Available() int { return cap(buf.bb.B) - len(buf.bb.B) }

func (buf *buffer) Bytes() []byte { return buf.bb.B[buf.r:] }

func (buf *buffer) Peek(n int) (p []byte) {
	bLen := buf.Len()
	if n < 1 || bLen == 0 {
		return
	}
	if n > bLen {
		n = bLen
	}
	p = buf.bb.B[buf.r : buf.r+n]
	return
}

func (buf *buffer) Next(n int) (p []byte, err error) {
	if n < 1 {
		return
	}
	bLen := buf.Len()
	if bLen == 0 {
		err = io.EOF
		return
	}
	if n > bLen {
		n = bLen
	}
	p = make([]byte, n)
	copy(p, buf.bb.B[buf.r:buf.r+n])
	buf.r += n
	buf.tryReset()
	return
}

func (buf *buffer) Discard(n int) (err error) {
	if n < 1 {
		return
	}
	if n > buf.Len() {
		err = ErrDiscardOverflow
		return
	}
	buf.r += n
	buf.tryReset()
	return
}

func (buf *buffer) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return
	}
	if buf.Len() == 0 {
		err = io.EOF
		return
	}
	n = copy(p, buf.bb.B[buf.r:])
	buf.r += n
	buf.tryReset()
	return
}

func (buf *buffer) Write(p []byte) (n int, err error) {
	if buf.pending > 0 {
		err = ErrWriteBeforeAllocatedWrote
		return
	}
	if err = buf.Space(len(p)); err != nil {
		return
	}
	buf.bb.B = append(buf.bb.B, p...)
	n = len(p)
	return
}

func (buf *buffer) WriteString(s string) (n int, err error) {
	if buf.pending > 0 {
		err = ErrWriteBeforeAllocatedWrote
		return
	}
	if err = buf.Space(len(s)); err != nil {
		return
	}
	buf.bb.B = append(buf.bb.B, s...)
	n = len(s)
	return
}

func (buf *buffer) Space(n int) (err error) {
	if n < 1 {
		return
	}
	if buf.pending > 0 {
		err = ErrWriteBeforeAllocatedWrote
		return
	}
	if buf.Len()+n > buf.max {
		err = ErrTooLarge
		return
	}
	if buf.Available() >= n {
		return
	}
	// compact before growing
	if buf.r > 0 {
		length := copy(buf.bb.B, buf.bb.B[buf.r:])
		buf.bb.B = buf.bb.B[:length]
		buf.r = 0
		if buf.Available() >= n {
			return
		}
	}
	need := len(buf.bb.B) + n
	size := 2 * cap(buf.bb.B)
	if size < need {
		size = need
	}
	if size > buf.max {
		size = buf.max
	}
	b := make([]byte, len(buf.bb.B), size)
	copy(b, buf.bb.B)
	buf.bb.B = b
	return
}

func (buf *buffer) Allocate(size int) (p []byte, err error) {
	if size < 1 {
		err = ErrAllocateZero
		return
	}
	if buf.pending > 0 {
		err = ErrWriteBeforeAllocatedWrote
		return
	}
	if err = buf.Space(size); err != nil {
		return
	}
	w := len(buf.bb.B)
	p = buf.bb.B[w : w+size]
	buf.pending = size
	return
}

func (buf *buffer) AllocatedWrote(n int) (err error) {
	if buf.pending == 0 {
		err = ErrNotAllocated
		return
	}
	if n < 0 || n > buf.pending {
		err = ErrAllocatedWroteOverflow
		return
	}
	buf.bb.B = buf.bb.B[:len(buf.bb.B)+n]
	buf.pending = 0
	return
}

func (buf *buffer) WritePending() bool {
	return buf.pending > 0
}

func (buf *buffer) Reset() {
	buf.bb.Reset()
	buf.r = 0
	buf.pending = 0
}

func (buf *buffer) Duplicate() Buffer {
	if buf.refs.Add(1) <= 1 {
		panic(ErrReleased)
	}
	return buf
}

func (buf *buffer) Release() {
	n := buf.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic(ErrReleased)
	}
	bb := buf.bb
	buf.bb = nil
	buf.r = 0
	buf.pending = 0
	bytebufferpool.Put(bb)
}

func (buf *buffer) Refs() int64 {
	return buf.refs.Load()
}

func (buf *buffer) tryReset() {
	if buf.r == len(buf.bb.B) && buf.pending == 0 {
		buf.bb.B = buf.bb.B[:0]
		buf.r = 0
	}
}

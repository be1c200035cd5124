package bytebuffers

import (
	"github.com/valyala/bytebufferpool"
)

// Acquire
// 从池中获取一个引用计数为 1 的缓冲。
func Acquire() Buffer {
	return AcquireWithMax(DefaultMaxSize)
}

// AcquireWithMax
// 获取一个最大容量为 max 的缓冲，Space 超过 max 时返回 ErrTooLarge。
func AcquireWithMax(max int) Buffer {
	if max < 1 {
		max = DefaultMaxSize
	}
	buf := &buffer{
		bb:  bytebufferpool.Get(),
		max: max,
	}
	buf.refs.Store(1)
	return buf
}

// From
// 获取一个缓冲并写入 p。
func From(p []byte) Buffer {
	buf := Acquire()
	if _, err := buf.Write(p); err != nil {
		buf.Release()
		panic(err)
	}
	return buf
}

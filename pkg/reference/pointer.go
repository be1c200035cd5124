package reference

import (
	"errors"
	"io"
	"reflect"
	"sync/atomic"
)

var ErrReleased = errors.New("reference: pointer already released")

// Make
// 创建一个引用计数为 1 的共享指针，最后一个持有者调用 Close 时关闭 value。
func Make[E io.Closer](value E) *Pointer[E] {
	if reflect.ValueOf(value).IsNil() {
		panic("value is nil")
	}
	pointer := &Pointer[E]{value: value}
	pointer.count.Store(1)
	return pointer
}

type Pointer[E io.Closer] struct {
	value E
	count atomic.Int64
}

// Retain adds a holder. Retaining a released pointer panics.
func (pointer *Pointer[E]) Retain() *Pointer[E] {
	if n := pointer.count.Add(1); n <= 1 {
		panic(ErrReleased)
	}
	return pointer
}

func (pointer *Pointer[E]) Value() E {
	return pointer.value
}

func (pointer *Pointer[E]) Count() int64 {
	return pointer.count.Load()
}

// Close drops a holder and closes the value when none remain.
func (pointer *Pointer[E]) Close() error {
	n := pointer.count.Add(-1)
	if n > 0 {
		return nil
	}
	if n < 0 {
		panic(ErrReleased)
	}
	return pointer.value.Close()
}

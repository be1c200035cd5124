package bytebuffers_test

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/bytebuffers"
	"github.com/stretchr/testify/require"
)

func TestBuffer(t *testing.T) {
	buf := bytebuffers.Acquire()
	defer buf.Release()

	_, err := buf.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.Equal(t, 10, buf.Len())
	require.Equal(t, "01234", string(buf.Peek(5)))

	require.NoError(t, buf.Discard(5))
	nexted, err := buf.Next(5)
	require.NoError(t, err)
	require.Equal(t, "56789", string(nexted))
	require.Equal(t, 0, buf.Len())

	_, err = buf.Next(1)
	require.True(t, errors.Is(err, io.EOF))
	require.True(t, errors.Is(buf.Discard(1), bytebuffers.ErrDiscardOverflow))
}

func TestBuffer_Allocate(t *testing.T) {
	buf := bytebuffers.Acquire()
	defer buf.Release()

	_, _ = buf.Write([]byte("0123456789"))
	p, err := buf.Allocate(5)
	require.NoError(t, err)
	require.Len(t, p, 5)
	require.True(t, buf.WritePending())

	_, err = buf.Write([]byte("x"))
	require.True(t, errors.Is(err, bytebuffers.ErrWriteBeforeAllocatedWrote))
	require.True(t, errors.Is(buf.Space(1), bytebuffers.ErrWriteBeforeAllocatedWrote))

	copy(p, "abc")
	require.True(t, errors.Is(buf.AllocatedWrote(6), bytebuffers.ErrAllocatedWroteOverflow))
	require.NoError(t, buf.AllocatedWrote(3))
	require.False(t, buf.WritePending())
	require.True(t, errors.Is(buf.AllocatedWrote(1), bytebuffers.ErrNotAllocated))

	_, _ = buf.Write([]byte("012"))
	require.Equal(t, "0123456789abc012", string(buf.Bytes()))

	_, err = buf.Allocate(0)
	require.True(t, errors.Is(err, bytebuffers.ErrAllocateZero))
}

func TestBuffer_Space(t *testing.T) {
	buf := bytebuffers.AcquireWithMax(64)
	defer buf.Release()

	require.NoError(t, buf.Space(32))
	require.GreaterOrEqual(t, buf.Available(), 32)

	_, _ = buf.Write([]byte(strings.Repeat("a", 40)))
	require.NoError(t, buf.Discard(40))
	_, _ = buf.Write([]byte(strings.Repeat("b", 20)))
	// consumed bytes do not count against max
	require.NoError(t, buf.Space(44))
	require.Equal(t, strings.Repeat("b", 20), string(buf.Bytes()))

	require.True(t, errors.Is(buf.Space(45), bytebuffers.ErrTooLarge))
}

func TestBuffer_Read(t *testing.T) {
	buf := bytebuffers.From([]byte("0123456789"))
	defer buf.Release()

	p := make([]byte, 5)
	n, err := buf.Read(p)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "01234", string(p))
	require.Equal(t, "56789", string(buf.Peek(5)))
}

func TestBuffer_Write(t *testing.T) {
	buf := bytebuffers.Acquire()
	defer buf.Release()

	pagesize := os.Getpagesize()
	firstData := []byte(strings.Repeat("a", pagesize/8))
	secondData := []byte(strings.Repeat("1", pagesize))
	wn, err := buf.Write(firstData)
	require.NoError(t, err)
	require.Equal(t, len(firstData), wn)
	wn, err = buf.Write(secondData)
	require.NoError(t, err)
	require.Equal(t, len(secondData), wn)
	require.Equal(t, len(firstData)+len(secondData), buf.Len())

	p := make([]byte, pagesize)
	rn, err := buf.Read(p)
	require.NoError(t, err)
	require.Equal(t, pagesize, rn)
	rn, err = buf.Read(p)
	require.NoError(t, err)
	require.Equal(t, len(firstData), rn)
	require.Equal(t, 0, buf.Len())
}

func TestBuffer_Refs(t *testing.T) {
	buf := bytebuffers.From([]byte("hello"))
	require.EqualValues(t, 1, buf.Refs())

	dup := buf.Duplicate()
	require.EqualValues(t, 2, buf.Refs())
	require.Equal(t, "hello", string(dup.Bytes()))

	dup.Release()
	require.EqualValues(t, 1, buf.Refs())
	buf.Release()
	require.EqualValues(t, 0, buf.Refs())

	require.Panics(t, func() { buf.Release() })
}

func BenchmarkBuffer(b *testing.B) {
	failed := new(atomic.Int64)
	var err error
	buf := bytebuffers.Acquire()
	defer buf.Release()
	pagesize := os.Getpagesize()
	firstData := []byte(strings.Repeat("abcd", pagesize/8))
	secondData := []byte(strings.Repeat("defg", pagesize/4))

	_, _ = buf.Write(firstData)

	p := make([]byte, pagesize)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err = buf.Write(secondData)
		if err != nil {
			failed.Add(1)
		}
		_, err = buf.Read(p)
		if err != nil {
			failed.Add(1)
		}
	}
	b.ReportMetric(float64(failed.Load()), "failed")
}

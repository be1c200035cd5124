package sockets_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/brickingsoft/proactor/pkg/aio"
	"github.com/brickingsoft/proactor/pkg/bytebuffers"
	"github.com/brickingsoft/proactor/pkg/sockets"
	"github.com/brickingsoft/rxp"
	"github.com/stretchr/testify/require"
)

type result struct {
	data string
	err  error
}

type chanHandler struct {
	recv   chan result
	sent   chan result
	closed chan struct{}
}

func newChanHandler() *chanHandler {
	return &chanHandler{
		recv:   make(chan result, 16),
		sent:   make(chan result, 16),
		closed: make(chan struct{}, 1),
	}
}

func (h *chanHandler) OnRecv(buffer bytebuffers.Buffer, err error) {
	h.recv <- result{data: string(buffer.Bytes()), err: err}
}

func (h *chanHandler) OnSent(buffer bytebuffers.Buffer, err error) {
	h.sent <- result{data: string(buffer.Bytes()), err: err}
}

func (h *chanHandler) OnClosed() {
	h.closed <- struct{}{}
}

func (h *chanHandler) IsClose(err error) bool {
	return sockets.IsClosed(err)
}

func pair(t *testing.T) (local net.Conn, remote net.Conn) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, acceptErr := ln.Accept()
		if acceptErr != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()
	local, err = net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	remote = <-accepted
	require.NotNil(t, remote)
	return
}

func executorsContext(t *testing.T) context.Context {
	exec, err := rxp.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = exec.Close()
	})
	return rxp.With(context.Background(), exec)
}

func wait[T any](t *testing.T, ch chan T) T {
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
	var zero T
	return zero
}

func TestHelper_AsyncSendRecv(t *testing.T) {
	ctx := executorsContext(t)
	local, remote := pair(t)
	defer remote.Close()

	handler := newChanHandler()
	socket := aio.NewSocket(sockets.NewHelper(ctx, local), handler)

	out := bytebuffers.From([]byte("hello"))
	defer out.Release()
	require.NoError(t, socket.AsyncSend(out))
	sent := wait(t, handler.sent)
	require.NoError(t, sent.err)
	require.Empty(t, sent.data)

	p := make([]byte, 5)
	_, err := io.ReadFull(remote, p)
	require.NoError(t, err)
	require.Equal(t, "hello", string(p))

	in := bytebuffers.Acquire()
	defer in.Release()
	require.NoError(t, socket.AsyncRecv(in, 5))
	_, err = remote.Write([]byte("world"))
	require.NoError(t, err)
	received := wait(t, handler.recv)
	require.NoError(t, received.err)
	require.Equal(t, "world", received.data)

	require.NotNil(t, socket.LocalAddr())
	require.Equal(t, remote.LocalAddr().String(), socket.RemoteAddr().String())

	require.NoError(t, remote.Close())
	socket.Dispose()
	wait(t, handler.closed)
	require.Eventually(t, func() bool { return socket.Refs() == 0 }, 5*time.Second, time.Millisecond)
}

func TestHelper_PartialRecvBeforeClose(t *testing.T) {
	ctx := executorsContext(t)
	local, remote := pair(t)

	handler := newChanHandler()
	socket := aio.NewSocket(sockets.NewHelper(ctx, local), handler)

	in := bytebuffers.Acquire()
	defer in.Release()
	require.NoError(t, socket.AsyncRecv(in, 8))

	_, err := remote.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, remote.Close())

	received := wait(t, handler.recv)
	require.NoError(t, received.err)
	require.Equal(t, "x", received.data)
	wait(t, handler.closed)

	err = socket.AsyncRecv(in, 8)
	require.True(t, aio.IsNotConnected(err), "%v", err)
	socket.Dispose()
	require.Eventually(t, func() bool { return socket.Refs() == 0 }, 5*time.Second, time.Millisecond)
}

func TestHelper_SyncTimeoutThenLateData(t *testing.T) {
	ctx := executorsContext(t)
	local, remote := pair(t)
	defer remote.Close()

	handler := newChanHandler()
	socket := aio.NewSocket(sockets.NewHelper(ctx, local), handler)

	acquired0, released0 := aio.BlockingInfoStats()
	in := bytebuffers.Acquire()
	defer in.Release()
	err := socket.Recv(in, 4, 20*time.Millisecond)
	require.True(t, aio.IsTimeout(err), "%v", err)

	// the abandoned read still lands in the buffer
	_, err = remote.Write([]byte("late"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, released := aio.BlockingInfoStats()
		return released-released0 == 1
	}, 5*time.Second, time.Millisecond)
	acquired, _ := aio.BlockingInfoStats()
	require.EqualValues(t, 1, acquired-acquired0)

	out := bytebuffers.From([]byte("sync"))
	defer out.Release()
	require.NoError(t, socket.Send(out, time.Second))
	p := make([]byte, 4)
	_, err = io.ReadFull(remote, p)
	require.NoError(t, err)
	require.Equal(t, "sync", string(p))

	socket.Dispose()
	wait(t, handler.closed)
}

func TestHelper_DisposeUnblocksPendingRecv(t *testing.T) {
	ctx := executorsContext(t)
	local, remote := pair(t)
	defer remote.Close()

	handler := newChanHandler()
	socket := aio.NewSocket(sockets.NewHelper(ctx, local), handler)

	for i := 0; i < 2; i++ {
		in := bytebuffers.Acquire()
		require.NoError(t, socket.AsyncRecv(in, 0))
		in.Release()
	}

	done := make(chan struct{})
	go func() {
		socket.Dispose()
		close(done)
	}()
	wait(t, done)
	wait(t, handler.closed)
	require.Eventually(t, func() bool { return socket.Refs() == 0 }, 5*time.Second, time.Millisecond)
}

func TestIsClosed(t *testing.T) {
	require.False(t, sockets.IsClosed(nil))
	require.True(t, sockets.IsClosed(io.EOF))
	require.True(t, sockets.IsClosed(net.ErrClosed))
	require.False(t, sockets.IsClosed(context.DeadlineExceeded))
}

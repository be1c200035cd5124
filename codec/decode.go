package codec

import (
	"context"
	"sync"

	"github.com/brickingsoft/proactor/pkg/bytebuffers"
	"github.com/brickingsoft/rxp/async"
)

// FutureReader
// 异步读取者，future 的结果为累积的入站缓冲。
type FutureReader interface {
	Read() (future async.Future[bytebuffers.Buffer])
}

// Decoder
// 解析器。
// 泛型 T 是解析的结果，建议在结果中自行定义协议解析的错误，因为 Decode 的错误会停止解析。
type Decoder[T any] interface {
	// Decode
	// 从 buf 中解析一条消息，只消费被解析的字节。
	// 返回 ok(是否解析到)，message(消息)，err(错误，并停止解析)
	Decode(buf bytebuffers.Buffer) (ok bool, message T, err error)
}

// Decode
// 流式解析
// 默认创建一个流式且无限等待的 async.Promise。
func Decode[T any](ctx context.Context, reader FutureReader, decoder Decoder[T], options ...async.Option) (future async.Future[T]) {
	options = append(options, async.WithStream(), async.WithWait())
	promise, promiseErr := async.Make[T](ctx, options...)
	if promiseErr != nil {
		future = async.FailedImmediately[T](ctx, promiseErr)
		return
	}
	future = &deferred[T]{future: promise.Future(), start: func() {
		decode[T](reader, decoder, true, promise)
	}}
	return
}

// DecodeOnce
// 单次解析
func DecodeOnce[T any](ctx context.Context, reader FutureReader, decoder Decoder[T], options ...async.Option) (future async.Future[T]) {
	promise, promiseErr := async.Make[T](ctx, options...)
	if promiseErr != nil {
		future = async.FailedImmediately[T](ctx, promiseErr)
		return
	}
	future = &deferred[T]{future: promise.Future(), start: func() {
		decode[T](reader, decoder, false, promise)
	}}
	return
}

// deferred starts reading once a result handler is registered.
// Until then a stream promise holds no more results than its buffer size.
type deferred[T any] struct {
	future async.Future[T]
	start  func()
	once   sync.Once
}

func (d *deferred[T]) OnComplete(handler async.ResultHandler[T]) {
	d.future.OnComplete(handler)
	d.once.Do(d.start)
}

func decode[T any](reader FutureReader, decoder Decoder[T], stream bool, promise async.Promise[T]) {
	reader.Read().OnComplete(func(ctx context.Context, buf bytebuffers.Buffer, err error) {
		if err != nil {
			promise.Fail(err)
			if stream {
				promise.Cancel()
			}
			return
		}
		// one read may carry several messages
		for {
			ok, message, decodeErr := decoder.Decode(buf)
			if decodeErr != nil {
				promise.Fail(decodeErr)
				if stream {
					promise.Cancel()
				}
				return
			}
			if !ok {
				break
			}
			promise.Succeed(message)
			if !stream {
				return
			}
		}
		decode[T](reader, decoder, stream, promise)
	})
}

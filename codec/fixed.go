package codec

import (
	"context"

	"github.com/brickingsoft/proactor/pkg/bytebuffers"
	"github.com/brickingsoft/rxp/async"
)

func FixedDecode(ctx context.Context, reader FutureReader, fixed int, options ...async.Option) (future async.Future[[]byte]) {
	future = Decode[[]byte](ctx, reader, NewFixedCodec(fixed), options...)
	return
}

func FixedEncode(ctx context.Context, writer FutureWriter, b []byte, fixed int) (future async.Future[int]) {
	future = Encode[[]byte](ctx, NewFixedCodec(fixed), writer, b)
	return
}

// NewFixedCodec
// 定长编解码，编码时不足补零、超出截断。
func NewFixedCodec(fixed int) *FixedCodec {
	if fixed < 1 {
		panic("codec.FixedCodec: fixed must be > 0")
	}
	return &FixedCodec{
		n: fixed,
	}
}

type FixedCodec struct {
	n int
}

func (codec *FixedCodec) Encode(param []byte) (b []byte, err error) {
	n := codec.n
	if len(param) < n {
		n = len(param)
	}
	b = make([]byte, codec.n)
	copy(b, param[:n])
	return
}

func (codec *FixedCodec) Decode(buf bytebuffers.Buffer) (ok bool, message []byte, err error) {
	if buf.Len() < codec.n {
		return
	}
	message = make([]byte, codec.n)
	if _, err = buf.Read(message); err != nil {
		return
	}
	ok = true
	return
}

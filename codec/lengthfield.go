package codec

import (
	"context"
	"strconv"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/bytebuffers"
	"github.com/brickingsoft/rxp/async"
	"github.com/lithdew/bytesutil"
)

const (
	lengthFieldSize = 4
)

var (
	ErrEmptyPacket = errors.Define("codec: empty packet")
	ErrTooLarge    = errors.Define("codec: packet too large")
)

// LengthFieldDecode
// 流式解析以 4 字节大端长度为前缀的消息，maxLength 小于 1 时不限制长度。
func LengthFieldDecode(ctx context.Context, reader FutureReader, maxLength int, options ...async.Option) (future async.Future[[]byte]) {
	decoder := &LengthFieldDecoder{MaxLength: maxLength}
	future = Decode[[]byte](ctx, reader, decoder, options...)
	return
}

type LengthFieldDecoder struct {
	MaxLength int
}

func (decoder *LengthFieldDecoder) Decode(buf bytebuffers.Buffer) (ok bool, message []byte, err error) {
	if buf.Len() < lengthFieldSize {
		return
	}
	size := int(bytesutil.Uint32BE(buf.Peek(lengthFieldSize)))
	if decoder.MaxLength > 0 && size > decoder.MaxLength {
		err = errors.From(ErrTooLarge, errors.WithMeta("size", strconv.Itoa(size)))
		return
	}
	if buf.Len()-lengthFieldSize < size {
		// not full
		return
	}
	_ = buf.Discard(lengthFieldSize)
	message = make([]byte, size)
	if size > 0 {
		if _, err = buf.Read(message); err != nil {
			return
		}
	}
	ok = true
	return
}

// LengthFieldEncode
// 写出带长度前缀的 p。
func LengthFieldEncode(ctx context.Context, writer FutureWriter, p []byte) (future async.Future[int]) {
	encoder := LengthFieldEncoder{}
	future = Encode[[]byte](ctx, encoder, writer, p)
	return
}

type LengthFieldEncoder struct{}

func (LengthFieldEncoder) Encode(param []byte) (p []byte, err error) {
	if len(param) == 0 {
		err = ErrEmptyPacket
		return
	}
	p = make([]byte, 0, lengthFieldSize+len(param))
	p = bytesutil.AppendUint32BE(p, uint32(len(param)))
	p = append(p, param...)
	return
}

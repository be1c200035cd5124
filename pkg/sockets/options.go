package sockets

import (
	"log/slog"
)

const (
	DefaultReadBufferSize = 4096
)

type Options struct {
	ReadBufferSize int
	Logger         *slog.Logger
}

type Option func(options *Options)

// WithReadBufferSize
// 设置 Recv 未指定长度且缓冲已无剩余空间时每次预留的字节数。
func WithReadBufferSize(size int) Option {
	return func(options *Options) {
		if size > 0 {
			options.ReadBufferSize = size
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(options *Options) {
		if logger != nil {
			options.Logger = logger
		}
	}
}

package proactor

import (
	"log/slog"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/sockets"
	"github.com/brickingsoft/rxp"
)

const (
	DefaultAcceptBackoffMin  = 5 * time.Millisecond
	DefaultAcceptBackoffMax  = time.Second
	DefaultAcceptMaxAttempts = 8
	DefaultConnectTimeout    = 30 * time.Second
)

type Options struct {
	Logger                    *slog.Logger
	Executors                 rxp.Executors
	RxpOptions                rxp.Options
	ReadBufferSize            int
	MaxConnections            int64
	AcceptBackoffMin          time.Duration
	AcceptBackoffMax          time.Duration
	AcceptMaxAttempts         int
	ConnectTimeout            time.Duration
	UnixListenerUnlinkOnClose bool
}

func (options *Options) AsRxpOptions() []rxp.Option {
	opts := make([]rxp.Option, 0, 1)
	if n := options.RxpOptions.MaxprocsOptions.MinGOMAXPROCS; n > 0 {
		opts = append(opts, rxp.WithMinGOMAXPROCS(n))
	}
	if n := options.RxpOptions.MaxGoroutines; n > 0 {
		opts = append(opts, rxp.WithMaxGoroutines(n))
	}
	if n := options.RxpOptions.MaxReadyGoroutinesIdleDuration; n > 0 {
		opts = append(opts, rxp.WithMaxReadyGoroutinesIdleDuration(n))
	}
	if n := options.RxpOptions.CloseTimeout; n > 0 {
		opts = append(opts, rxp.WithCloseTimeout(n))
	}
	return opts
}

func (options *Options) asSocketOptions() []sockets.Option {
	return []sockets.Option{
		sockets.WithReadBufferSize(options.ReadBufferSize),
		sockets.WithLogger(options.Logger),
	}
}

type Option func(options *Options) (err error)

// WithLogger
// 设置日志，默认为 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(options *Options) (err error) {
		if logger == nil {
			err = errors.New("logger is nil", errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
			return
		}
		options.Logger = logger
		return
	}
}

// WithExecutors
// 使用外部执行器。
//
// 外部执行器不会随 Proactor.Close 关闭，同时 WithMaxGoroutines 等执行器选项失效。
func WithExecutors(executors rxp.Executors) Option {
	return func(options *Options) (err error) {
		options.Executors = executors
		return
	}
}

// WithMinGOMAXPROCS
// 设置自有执行器启动时 GOMAXPROCS 的下限
func WithMinGOMAXPROCS(n int) Option {
	return func(options *Options) error {
		return rxp.WithMinGOMAXPROCS(n)(&options.RxpOptions)
	}
}

// WithMaxGoroutines
// 设置最大协程数
func WithMaxGoroutines(n int) Option {
	return func(options *Options) error {
		return rxp.WithMaxGoroutines(n)(&options.RxpOptions)
	}
}

// WithMaxReadyGoroutinesIdleDuration
// 设置准备中协程最大闲置时长
func WithMaxReadyGoroutinesIdleDuration(d time.Duration) Option {
	return func(options *Options) error {
		return rxp.WithMaxReadyGoroutinesIdleDuration(d)(&options.RxpOptions)
	}
}

// WithCloseTimeout
// 设置执行器关闭超时时长
func WithCloseTimeout(timeout time.Duration) Option {
	return func(options *Options) error {
		return rxp.WithCloseTimeout(timeout)(&options.RxpOptions)
	}
}

// WithReadBufferSize
// 设置未指定接收长度时每次读取预留的字节数。
func WithReadBufferSize(size int) Option {
	return func(options *Options) (err error) {
		if size < 1 {
			err = errors.New("read buffer size must be positive", errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
			return
		}
		options.ReadBufferSize = size
		return
	}
}

// WithMaxConnections
// 设置被接受的最大链接数。默认为0即无上限。
//
// 达到上限时接受器暂停，直到有链接被销毁。
func WithMaxConnections(maxConnections int64) Option {
	return func(options *Options) (err error) {
		if maxConnections > 0 {
			options.MaxConnections = maxConnections
		}
		return
	}
}

// WithAcceptBackoff
// 设置接受失败后重试的退避区间与连续失败次数上限。
func WithAcceptBackoff(min time.Duration, max time.Duration, attempts int) Option {
	return func(options *Options) (err error) {
		if min <= 0 || max < min {
			err = errors.New("invalid accept backoff", errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
			return
		}
		options.AcceptBackoffMin = min
		options.AcceptBackoffMax = max
		if attempts > 0 {
			options.AcceptMaxAttempts = attempts
		}
		return
	}
}

// WithConnectTimeout
// 设置 Connect 的超时时长，0 表示只受 ctx 约束。
func WithConnectTimeout(timeout time.Duration) Option {
	return func(options *Options) (err error) {
		if timeout < 0 {
			timeout = 0
		}
		options.ConnectTimeout = timeout
		return
	}
}

// WithUnixListenerUnlinkOnClose
// 设置unix监听器是否在关闭时取消地址链接。
func WithUnixListenerUnlinkOnClose() Option {
	return func(options *Options) (err error) {
		options.UnixListenerUnlinkOnClose = true
		return
	}
}

package timeslimiter

import (
	"context"
	"sync/atomic"
)

// New
// 创建一个上限为 upperbound 的令牌桶，upperbound 小于 1 时不限制。
func New(upperbound int64) *Bucket {
	bucket := &Bucket{}
	if upperbound > 0 {
		bucket.tokens = make(chan struct{}, upperbound)
	}
	return bucket
}

type Bucket struct {
	tokens chan struct{}
	used   atomic.Int64
}

// Wait takes a token, blocking until one is reverted or ctx is done.
func (bucket *Bucket) Wait(ctx context.Context) (err error) {
	if bucket.tokens == nil {
		bucket.used.Add(1)
		return
	}
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case bucket.tokens <- struct{}{}:
		bucket.used.Add(1)
	}
	return
}

// Revert gives back a token taken by Wait.
func (bucket *Bucket) Revert() {
	if bucket.used.Add(-1) < 0 {
		bucket.used.Add(1)
		panic("timeslimiter: revert without wait")
	}
	if bucket.tokens != nil {
		<-bucket.tokens
	}
}

func (bucket *Bucket) Used() int64 {
	return bucket.used.Load()
}

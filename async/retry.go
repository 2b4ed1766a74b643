package async

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type RetryOption struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

func mergeRetryOptions(ops ...*RetryOption) *RetryOption {
	out := &RetryOption{InitialInterval: time.Millisecond * 200, MaxInterval: time.Second * 10, MaxElapsedTime: time.Minute}
	for _, op := range ops {
		if op.InitialInterval > 0 {
			out.InitialInterval = op.InitialInterval
		}
		if op.MaxInterval > 0 {
			out.MaxInterval = op.MaxInterval
		}
		if op.MaxElapsedTime > 0 {
			out.MaxElapsedTime = op.MaxElapsedTime
		}
	}
	return out
}

// Permanent marks an error as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry runs op with exponential backoff and jitter until it succeeds, the
// error is Permanent, the context ends, or MaxElapsedTime passes.
func Retry(ctx context.Context, op func() error, ops ...*RetryOption) error {
	option := mergeRetryOptions(ops...)
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = option.InitialInterval
	bo.MaxInterval = option.MaxInterval
	bo.MaxElapsedTime = option.MaxElapsedTime
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// PublishPolicy is used for broker writes: a handful of attempts with capped
// exponential backoff. Cancellation is never retried.
func PublishPolicy(name string, log *zap.Logger) Policy {
	if log == nil {
		log = zap.NewNop()
	}
	return Policy{
		Name:     name,
		Attempts: 6,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
		OnAttempt: func(i int, err error) {
			log.Warn("retry", zap.String("op", name), zap.Int("attempt", i+1), zap.Error(err))
		},
		OnExhaust: func(err error) {
			if !errors.Is(err, context.Canceled) {
				log.Error("retries exhausted", zap.String("op", name), zap.Error(err))
			}
		},
	}
}

// StorePolicy is for short database writes in consumers.
func StorePolicy(name string, log *zap.Logger) Policy {
	p := PublishPolicy(name, log)
	p.Attempts = 4
	p.Backoff = ExpoJitter{Base: 100 * time.Millisecond, Max: 2 * time.Second, Jitter: 0.2}
	return p
}

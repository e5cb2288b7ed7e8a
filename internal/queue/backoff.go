package queue

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hibiken/asynq"
)

// RetryPolicy is the exponential delay between publish attempts:
// Base, Base*Factor, Base*Factor^2 and so on.
type RetryPolicy struct {
	Base   time.Duration
	Factor float64
}

// Delay returns the wait before retry n, counting from zero.
func (p RetryPolicy) Delay(n int) time.Duration {
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.Base,
		RandomizationFactor: 0,
		Multiplier:          factor,
		MaxInterval:         24 * time.Hour,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	d := b.NextBackOff()
	for i := 0; i < n; i++ {
		d = b.NextBackOff()
	}
	return d
}

// RetryDelayFunc plugs the policy into asynq.Config. asynq passes the number
// of retries already done.
func (p RetryPolicy) RetryDelayFunc() asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		return p.Delay(n)
	}
}

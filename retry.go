package qsim

import (
	"time"
)

// RetryStrategy yields the wait before the given attempt, counting from 1.
type RetryStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff doubles Initial on every attempt, capped at Max when set.
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := eb.Initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if eb.Max > 0 && delay >= eb.Max {
			return eb.Max
		}
	}
	return delay
}

package qsim

import "golang.org/x/time/rate"

/*
RateLimiter caps how fast shot batches are admitted to the pool with a token
bucket. The bucket holds burst tokens and refills at perSecond; each admitted
batch spends one.
*/
type RateLimiter struct {
	limiter *rate.Limiter
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Observe is a no-op; the bucket depends only on elapsed time.
func (rl *RateLimiter) Observe(metrics *Metrics) {}

// Limit takes a token when one is available and reports true otherwise.
func (rl *RateLimiter) Limit() bool {
	return !rl.limiter.Allow()
}

// Renormalize is a no-op; the bucket refills with time.
func (rl *RateLimiter) Renormalize() {}

// Tokens returns the tokens currently in the bucket.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.Tokens()
}

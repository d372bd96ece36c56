package http

import (
	"time"

	"golang.org/x/time/rate"
)

// newMessageLimiter allows perMinute inbound messages per minute with bursts
// of up to perMinute. A non-positive limit disables limiting.
func newMessageLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

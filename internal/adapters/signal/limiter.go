package signal

import "golang.org/x/time/rate"

// newMessageLimiter bounds inbound messages per connection. A zero or
// negative rate disables limiting (used by tests).
func newMessageLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

package channels

import (
	"sync"

	"golang.org/x/time/rate"
)

const (
	// maxTrackedSenders caps the limiter map so rotating sender IDs
	// cannot exhaust memory.
	maxTrackedSenders = 4096

	// senderRatePerSecond is the sustained per-sender message rate.
	senderRatePerSecond = 0.5

	// senderBurst allows short bursts before throttling kicks in.
	senderBurst = 5
)

// SenderLimiter throttles inbound messages per sender using a token
// bucket per key. Safe for concurrent use.
type SenderLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewSenderLimiter creates a bounded per-sender rate limiter.
func NewSenderLimiter() *SenderLimiter {
	return &SenderLimiter{limiters: make(map[string]*rate.Limiter)}
}

// Allow reports whether the sender is within its rate budget.
func (s *SenderLimiter) Allow(senderID string) bool {
	s.mu.Lock()
	l, ok := s.limiters[senderID]
	if !ok {
		if len(s.limiters) >= maxTrackedSenders {
			// Hard eviction via map iteration order; approximate FIFO is
			// good enough for abuse protection.
			for k := range s.limiters {
				delete(s.limiters, k)
				break
			}
		}
		l = rate.NewLimiter(rate.Limit(senderRatePerSecond), senderBurst)
		s.limiters[senderID] = l
	}
	s.mu.Unlock()

	return l.Allow()
}

package p2p

import (
	"sync"
	"time"
)

// peerMessageRate and peerMessageWindow bound how many messages a single
// connected peer may send before the rest of its window is silently
// dropped. Direct envelopes are small and infrequent in ordinary use, so
// 60/minute is generous headroom against a flooding or compromised peer
// without punishing a legitimate burst of messages.
const (
	peerMessageRate   = 60
	peerMessageWindow = time.Minute
)

// peerLimiter is a fixed-window rate limiter scoped to a single peer
// connection; each peerConn owns one.
type peerLimiter struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
	rate        int
	window      time.Duration
}

func newPeerLimiter() *peerLimiter {
	return newPeerLimiterWithBudget(peerMessageRate, peerMessageWindow)
}

// newPeerLimiterWithBudget builds a peerLimiter with an explicit
// rate/window, used by tests that need a short window to exercise reset
// behavior without the production budget's full minute.
func newPeerLimiterWithBudget(rate int, window time.Duration) *peerLimiter {
	return &peerLimiter{rate: rate, window: window, windowStart: time.Now()}
}

// allow reports whether the message currently being read falls within this
// peer's window budget.
func (l *peerLimiter) allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if now.Sub(l.windowStart) > l.window {
		l.count = 0
		l.windowStart = now
	}
	l.count++
	return l.count <= l.rate
}

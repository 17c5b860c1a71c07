package generation

import (
	"sync"
	"time"
)

// pacer enforces a fixed minimum interval between provider calls for the
// lifetime of an adapter, across Generate invocations. Retry backoff is
// accounted separately.
type pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{interval: interval, now: time.Now}
}

// reserve claims the next call slot and returns how long the caller must
// wait before issuing its provider call. The very first call is unpaced.
func (p *pacer) reserve() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	next := p.last.Add(p.interval)
	if p.last.IsZero() || !next.After(now) {
		p.last = now
		return 0
	}
	p.last = next
	return next.Sub(now)
}

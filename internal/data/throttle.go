package data

import (
	"sync"
	"time"
)

// requestPacer enforces a client-side rate ceiling: no more than max
// requests in any rolling window. Pacing is sleep-based; there is no
// concurrent worker coordination to do here, callers are sequential.
type requestPacer struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	issued []time.Time

	// Overridable for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

func newRequestPacer(maxPerSecond int) *requestPacer {
	if maxPerSecond < 1 {
		maxPerSecond = 1
	}
	return &requestPacer{
		window: time.Second,
		max:    maxPerSecond,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Wait blocks until another request may be issued, then records it.
func (p *requestPacer) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		now := p.now()
		cutoff := now.Add(-p.window)

		// Drop timestamps that have left the window.
		kept := p.issued[:0]
		for _, t := range p.issued {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		p.issued = kept

		if len(p.issued) < p.max {
			p.issued = append(p.issued, now)
			return
		}

		// Sleep until the oldest in-window request expires.
		wait := p.issued[0].Sub(cutoff)
		if wait <= 0 {
			wait = time.Millisecond
		}
		p.sleep(wait)
	}
}

package outreach

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out sends with a uniform random delay and an optional hourly
// ceiling. Bounds may be changed while a run is in progress.
type Pacer struct {
	mu      sync.RWMutex
	min     time.Duration
	max     time.Duration
	limiter *rate.Limiter
}

// NewPacer builds a Pacer. perHour <= 0 disables the hourly ceiling.
func NewPacer(lo, hi time.Duration, perHour int) *Pacer {
	p := &Pacer{}
	p.SetBounds(lo, hi)
	if perHour > 0 {
		p.limiter = rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), 1)
	}
	return p
}

// SetBounds replaces the delay range. Bounds given in the wrong order are
// swapped.
func (p *Pacer) SetBounds(lo, hi time.Duration) {
	if hi < lo {
		lo, hi = hi, lo
	}
	p.mu.Lock()
	p.min, p.max = lo, hi
	p.mu.Unlock()
}

// Bounds returns the current delay range.
func (p *Pacer) Bounds() (time.Duration, time.Duration) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.min, p.max
}

// Delay draws the next inter-contact delay from the current range.
func (p *Pacer) Delay() time.Duration {
	lo, hi := p.Bounds()
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// Pause sleeps for one Delay. It returns early with ctx's error when ctx is
// done.
func (p *Pacer) Pause(ctx context.Context) error {
	d := p.Delay()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Allow blocks until the hourly ceiling admits one more send.
func (p *Pacer) Allow(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

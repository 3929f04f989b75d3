// Package pacing spaces out requests: a randomized pause between sources and
// a token-bucket limiter per host that is shared by every search.
package pacing

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hyperifyio/carfinder/internal/sources"
)

// Pacer sleeps for a random duration inside a source's politeness range.
type Pacer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPacer returns a Pacer seeded with seed. Tests pass a fixed seed.
func NewPacer(seed int64) *Pacer {
	return &Pacer{rnd: rand.New(rand.NewSource(seed))}
}

// Delay picks a duration in [r.Min, r.Max].
func (p *Pacer) Delay(r sources.DelayRange) time.Duration {
	if r.Max < r.Min {
		r.Min, r.Max = r.Max, r.Min
	}
	span := r.Max - r.Min
	if span <= 0 {
		return r.Min
	}
	p.mu.Lock()
	n := p.rnd.Int63n(int64(span) + 1)
	p.mu.Unlock()
	return r.Min + time.Duration(n)
}

// Pause sleeps for Delay(r) or until ctx is done.
func (p *Pacer) Pause(ctx context.Context, r sources.DelayRange) error {
	return Sleep(ctx, p.Delay(r))
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
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

// HostLimiter allows one request per interval to each host, with burst.
// A zero interval disables limiting.
type HostLimiter struct {
	interval time.Duration
	burst    int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostLimiter returns a limiter admitting one request per interval per
// host. Non-positive burst means 1.
func NewHostLimiter(interval time.Duration, burst int) *HostLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &HostLimiter{interval: interval, burst: burst, limiters: make(map[string]*rate.Limiter)}
}

func (h *HostLimiter) limiter(host string) *rate.Limiter {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(h.interval), h.burst)
		h.limiters[host] = l
	}
	return l
}

// Wait blocks until a request to host is admitted or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil || h.interval <= 0 {
		return nil
	}
	return h.limiter(host).Wait(ctx)
}

// SlowDown lowers host's rate to one request per d when d is longer than
// the configured interval. Used for robots.txt crawl-delay hints.
func (h *HostLimiter) SlowDown(host string, d time.Duration) {
	if h == nil || h.interval <= 0 || d <= h.interval {
		return
	}
	l := h.limiter(host)
	if l.Limit() > rate.Every(d) {
		l.SetLimit(rate.Every(d))
	}
}

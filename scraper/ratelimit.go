package scraper

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// domainLimiters hands out one token bucket per destination host, pacing
// requests independently of the parallelism ceiling. Used in multi-store
// runs where a shared bucket would let one slow store starve the rest.
type domainLimiters struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

func newDomainLimiters(rps float64, burst int) *domainLimiters {
	if burst < 1 {
		burst = 1
	}
	return &domainLimiters{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

func (d *domainLimiters) get(host string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	lim, ok := d.buckets[host]
	if !ok {
		lim = rate.NewLimiter(d.rps, d.burst)
		d.buckets[host] = lim
	}
	return lim
}

// Wait blocks until the host's bucket has a token or ctx ends.
func (d *domainLimiters) Wait(ctx context.Context, host string) error {
	return d.get(host).Wait(ctx)
}

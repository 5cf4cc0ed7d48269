package main

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTimeout   = 3 * time.Minute
	limiterSweepInterval = time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientsLimiter holds one token bucket per client ip.
type ClientsLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	clock   TickerClocker
}

// NewClientsLimiter returns a limiter allowing rps requests per second with
// the given burst to each client. It returns nil when rps is not positive.
func NewClientsLimiter(rps float64, burst int, clock TickerClocker) *ClientsLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &ClientsLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(rps),
		burst:   burst,
		clock:   clock,
	}
}

// Allow consumes a token from the client bucket and reports whether it was available.
func (cl *ClientsLimiter) Allow(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	c, found := cl.clients[ip]
	if !found {
		c = &clientLimiter{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[ip] = c
	}
	c.lastSeen = cl.clock.Now()
	return c.limiter.Allow()
}

// Size returns the number of tracked clients.
func (cl *ClientsLimiter) Size() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.clients)
}

// Evict removes clients not seen since the idle timeout.
func (cl *ClientsLimiter) Evict() {
	now := cl.clock.Now()
	cl.mu.Lock()
	for ip, c := range cl.clients {
		if now.Sub(c.lastSeen) > limiterIdleTimeout {
			delete(cl.clients, ip)
		}
	}
	cl.mu.Unlock()
}

// Janitor periodically evicts idle clients until the context is done.
func (cl *ClientsLimiter) Janitor(ctx context.Context) error {
	ticker := cl.clock.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cl.Evict()
		}
	}
}

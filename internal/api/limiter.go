package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ActorLimiter rate-limits edits per actor. Idle limiters are evicted so the
// map does not grow with every actor ever seen.
type ActorLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
	limiters map[string]*actorEntry
	now      func() time.Time
}

type actorEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewActorLimiter allows perMinute edits per actor with the given burst.
// A non-positive perMinute disables limiting.
func NewActorLimiter(perMinute, burst int) *ActorLimiter {
	if burst <= 0 {
		burst = 1
	}
	l := rate.Inf
	if perMinute > 0 {
		l = rate.Limit(float64(perMinute) / 60)
	}
	return &ActorLimiter{
		limit:    l,
		burst:    burst,
		idle:     10 * time.Minute,
		limiters: make(map[string]*actorEntry),
		now:      time.Now,
	}
}

// Allow reports whether actor may edit now.
func (a *ActorLimiter) Allow(actor string) bool {
	if a == nil || a.limit == rate.Inf {
		return true
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	e, ok := a.limiters[actor]
	if !ok {
		a.evict(now)
		e = &actorEntry{limiter: rate.NewLimiter(a.limit, a.burst)}
		a.limiters[actor] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (a *ActorLimiter) evict(now time.Time) {
	for k, e := range a.limiters {
		if now.Sub(e.lastSeen) > a.idle {
			delete(a.limiters, k)
		}
	}
}

// Len returns the number of tracked actors.
func (a *ActorLimiter) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.limiters)
}

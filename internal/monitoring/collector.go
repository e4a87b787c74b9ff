// Package monitoring probes the evidence store on a schedule and raises
// webhook alerts when it is down, slow, or behind an open breaker.
package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/provenance-cli/internal/resilience"
)

// pingTimeout bounds a single probe.
const pingTimeout = 5 * time.Second

// Pinger is the store surface the collector probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerSource is implemented by stores guarded by a circuit breaker.
type BreakerSource interface {
	Breaker() *resilience.Breaker
}

// Snapshot is one probe result.
type Snapshot struct {
	StoreUp             bool          `json:"store_up"`
	PingLatency         time.Duration `json:"ping_latency"`
	PingError           string        `json:"ping_error,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	BreakerState        string        `json:"breaker_state,omitempty"`
	BreakerFailures     int           `json:"breaker_failures"`
	CollectedAt         time.Time     `json:"collected_at"`
}

// Collector probes the store and remembers how many probes in a row failed.
type Collector struct {
	store Pinger
	now   func() time.Time

	mu       sync.Mutex
	failures int
}

// NewCollector creates a collector over st.
func NewCollector(st Pinger) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect pings the store once and records the result in the store gauges.
func (c *Collector) Collect(ctx context.Context) *Snapshot {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := c.now()
	err := c.store.Ping(pctx)
	latency := c.now().Sub(start)

	snap := &Snapshot{
		StoreUp:     err == nil,
		PingLatency: latency,
		CollectedAt: c.now().UTC(),
	}

	c.mu.Lock()
	if err != nil {
		c.failures++
		snap.PingError = err.Error()
	} else {
		c.failures = 0
	}
	snap.ConsecutiveFailures = c.failures
	c.mu.Unlock()

	if bs, ok := c.store.(BreakerSource); ok {
		b := bs.Breaker()
		snap.BreakerState = b.State().String()
		snap.BreakerFailures = b.Failures()
	}

	pingSeconds.Observe(latency.Seconds())
	if snap.StoreUp {
		storeUp.Set(1)
	} else {
		storeUp.Set(0)
	}
	return snap
}

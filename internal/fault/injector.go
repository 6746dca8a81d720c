// Package fault injects artificial latency and randomized transient failures
// in front of store operations, so callers exercise the same error handling
// they need against a real cluster.
package fault

import (
	"context"
	"math/rand"
	"time"

	"github.com/agentkube/mockcluster/internal/api"
)

// Config tunes the injector. Rates and latencies are demo tuning values, not
// contracts; tests pin them explicitly.
type Config struct {
	MinLatency time.Duration `json:"minLatency"`
	MaxLatency time.Duration `json:"maxLatency"`
	ErrorRate  float64       `json:"errorRate"` // probability in [0,1) of a transient failure
}

// DefaultConfig mimics a slightly flaky cluster connection.
func DefaultConfig() Config {
	return Config{
		MinLatency: 50 * time.Millisecond,
		MaxLatency: 300 * time.Millisecond,
		ErrorRate:  0.02,
	}
}

// Injector applies the delay-then-maybe-fail contract. One instance is shared
// by every call for every kind.
type Injector struct {
	cfg Config
}

func New(cfg Config) *Injector {
	if cfg.MaxLatency < cfg.MinLatency {
		cfg.MaxLatency = cfg.MinLatency
	}
	return &Injector{cfg: cfg}
}

// Inject sleeps for a uniform duration in [MinLatency, MaxLatency] and then,
// with probability ErrorRate, returns one of the three transient failures
// without the wrapped operation ever running. A nil return means the caller
// should proceed to the real operation.
func (inj *Injector) Inject(ctx context.Context) error {
	if d := inj.delay(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if inj.cfg.ErrorRate > 0 && rand.Float64() < inj.cfg.ErrorRate {
		switch rand.Intn(3) {
		case 0:
			return api.NewInternalError("injected fault: internal server error")
		case 1:
			return api.NewServiceUnavailable("injected fault: service unavailable")
		default:
			return api.NewGatewayTimeout("injected fault: gateway timeout")
		}
	}
	return nil
}

func (inj *Injector) delay() time.Duration {
	if inj.cfg.MaxLatency <= 0 {
		return 0
	}
	if inj.cfg.MaxLatency == inj.cfg.MinLatency {
		return inj.cfg.MinLatency
	}
	return inj.cfg.MinLatency + time.Duration(rand.Int63n(int64(inj.cfg.MaxLatency-inj.cfg.MinLatency)))
}

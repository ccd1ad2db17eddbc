// Package health implements liveness and readiness probes for the API server.
//
// Probes run periodically in the background. A probe flips to unhealthy only
// after three consecutive failures, so a single slow database ping does not
// take the service out of rotation, and flips back after one success.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

const (
	failuresBeforeUnhealthy = 3
	successesBeforeHealthy  = 1
)

// probe is one registered check plus its rolling state. The tick loop is the
// only writer of fails and oks; status is shared with HTTP handlers and
// guarded by mu.
type probe struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	fails int
	oks   int

	mu      sync.Mutex
	healthy bool
	lastErr error
}

func newProbe(name string, timeout time.Duration, fn CheckFunc) *probe {
	return &probe{
		name:    name,
		timeout: timeout,
		fn:      fn,
		healthy: true,
	}
}

func (p *probe) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.fn(ctx)

	if err != nil {
		p.oks = 0
		p.fails++
	} else {
		p.fails = 0
		p.oks++
	}

	p.mu.Lock()
	p.lastErr = err
	if p.fails >= failuresBeforeUnhealthy {
		p.healthy = false
	}
	if p.oks >= successesBeforeHealthy {
		p.healthy = true
	}
	p.mu.Unlock()
}

// status reports the probe's current verdict and, when unhealthy, the message
// of the most recent failure.
func (p *probe) status() (bool, string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.healthy {
		return true, "ok"
	}
	if p.lastErr != nil {
		return false, p.lastErr.Error()
	}
	return false, "unhealthy"
}

func (p *probe) loop(ctx context.Context, interval time.Duration) {
	p.tick(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.tick(ctx)
		}
	}
}

// Service aggregates liveness and readiness probes and serves them over HTTP.
// Register all probes before calling Start.
type Service struct {
	ready atomic.Bool

	mu        sync.Mutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// New returns a Service in the not-ready state. Call SetReady(true) once
// initialization has finished.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a probe for /livez. Liveness failures mean the
// process itself is broken, for example a goroutine leak.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, newProbe(name, timeout, fn))
}

// AddReadinessCheck registers a probe for /readyz. Readiness failures mean a
// dependency is unavailable and traffic should be routed elsewhere.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, newProbe(name, timeout, fn))
}

// Start launches one goroutine per registered probe, each firing at the given
// interval until the context is cancelled or Stop is called.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	all := append(append([]*probe(nil), s.liveness...), s.readiness...)
	s.mu.Unlock()

	for _, p := range all {
		go p.loop(ctx, interval)
	}
}

// Stop cancels the probe goroutines. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Graceful shutdown sets it to
// false first so load balancers drain before the listener closes.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the gate is open and every readiness probe passes.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}
	for _, p := range s.snapshot(&s.readiness) {
		if ok, _ := p.status(); !ok {
			return false
		}
	}
	return true
}

func (s *Service) snapshot(set *[]*probe) []*probe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*probe(nil), *set...)
}

type probeReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while every liveness probe passes, 503
// otherwise. The body lists each probe's state either way.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	report, healthy := collect(s.snapshot(&s.liveness))
	writeReport(w, report, healthy)
}

// ReadyEndpoint serves /readyz: 200 only when the manual gate is open and
// every readiness probe passes.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	report, healthy := collect(s.snapshot(&s.readiness))
	if !s.ready.Load() {
		report["_gate"] = "service not marked ready"
		healthy = false
	}
	writeReport(w, report, healthy)
}

func collect(probes []*probe) (map[string]string, bool) {
	report := make(map[string]string, len(probes))
	healthy := true
	for _, p := range probes {
		ok, msg := p.status()
		report[p.name] = msg
		if !ok {
			healthy = false
		}
	}
	return report, healthy
}

func writeReport(w http.ResponseWriter, report map[string]string, healthy bool) {
	resp := probeReport{Status: "ok", Checks: report}
	code := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveReady(t *testing.T, s *Service) (int, probeReport) {
	t.Helper()

	rec := httptest.NewRecorder()
	s.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var report probeReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	return rec.Code, report
}

func TestReadyEndpoint_GateClosed(t *testing.T) {
	s := New()

	code, report := serveReady(t, s)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", report.Status)
}

func TestReadyEndpoint_PassingProbe(t *testing.T) {
	s := New()
	s.AddReadinessCheck("db", time.Second, func(context.Context) error { return nil })
	s.Start(context.Background(), time.Hour)
	defer s.Stop()
	s.SetReady(true)

	code, report := serveReady(t, s)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, "ok", report.Checks["db"])
	assert.True(t, s.IsReady())
}

func TestProbe_FailureThreshold(t *testing.T) {
	p := newProbe("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	// Two consecutive failures are tolerated.
	p.tick(context.Background())
	p.tick(context.Background())
	ok, _ := p.status()
	assert.True(t, ok)

	// The third flips the probe.
	p.tick(context.Background())
	ok, msg := p.status()
	assert.False(t, ok)
	assert.Equal(t, "connection refused", msg)
}

func TestProbe_RecoversAfterOneSuccess(t *testing.T) {
	healthy := false
	p := newProbe("db", time.Second, func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	})

	for range failuresBeforeUnhealthy {
		p.tick(context.Background())
	}
	ok, _ := p.status()
	require.False(t, ok)

	healthy = true
	p.tick(context.Background())
	ok, _ = p.status()
	assert.True(t, ok)
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}

package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck flags the process as unhealthy once the goroutine count
// climbs past limit. Catches leaked request handlers and probe loops.
func GoroutineCountCheck(limit int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("%d goroutines running, limit %d", n, limit)
		}
		return nil
	}
}

// HeapAllocCheck flags the process as unhealthy when the live heap exceeds
// limit bytes.
func HeapAllocCheck(limit uint64) CheckFunc {
	return func(context.Context) error {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		if ms.HeapAlloc > limit {
			return errors.Errorf("heap at %d bytes, limit %d", ms.HeapAlloc, limit)
		}
		return nil
	}
}

package core

// export_limiter.go bounds how many exports are built at once.
//
// CSV and XLSX files are assembled in memory, so each export holds its full
// row set and output buffer until the response is written. The limiter is a
// semaphore: when every slot is taken, new exports wait up to maxWait and
// then fail with ErrTooManyExports.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyExports is returned when every export slot stays busy for the
// whole wait period.
var ErrTooManyExports = errors.New("too many concurrent exports")

// DefaultMaxConcurrentExports is the slot count used when none is configured.
const DefaultMaxConcurrentExports = 4

// DefaultExportWait is how long an export waits for a slot by default.
const DefaultExportWait = 10 * time.Second

// ExportLimiter caps concurrent export generation.
type ExportLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
}

// NewExportLimiter allows at most maxConcurrent exports at a time. Values
// <= 0 fall back to the package defaults.
func NewExportLimiter(maxConcurrent int, maxWait time.Duration) *ExportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentExports
	}
	if maxWait <= 0 {
		maxWait = DefaultExportWait
	}
	return &ExportLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting up to the limiter's maxWait. A cancelled ctx
// returns ctx.Err(). Callers must Release after a nil return.
func (l *ExportLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyExports
	}
}

// Release frees a slot taken by Acquire.
func (l *ExportLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.slots
}

// ExportLimiterStatus is a snapshot of limiter occupancy.
type ExportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status reports current occupancy.
func (l *ExportLimiter) Status() ExportLimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return ExportLimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}

// Package lifecycle tracks the gateway's shutdown phase. Once a drain
// begins, health reports not-ready so the telephony platform routes new
// calls elsewhere while in-flight turns finish.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// Lifecycle is the shared drain flag. The zero value is a running,
// non-draining process.
type Lifecycle struct {
	draining atomic.Bool
	since    atomic.Int64
}

// BeginDrain marks the process as draining. The first call records the
// drain start time; later calls are no-ops.
func (l *Lifecycle) BeginDrain() {
	if l == nil {
		return
	}
	if l.draining.CompareAndSwap(false, true) {
		l.since.Store(time.Now().UnixNano())
	}
}

// Draining reports whether shutdown has begun.
func (l *Lifecycle) Draining() bool {
	if l == nil {
		return false
	}
	return l.draining.Load()
}

// DrainingSince returns when the drain began. ok is false while the
// process is still accepting new calls.
func (l *Lifecycle) DrainingSince() (t time.Time, ok bool) {
	if l == nil || !l.draining.Load() {
		return time.Time{}, false
	}
	return time.Unix(0, l.since.Load()), true
}

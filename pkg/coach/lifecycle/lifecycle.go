package lifecycle

import (
	"sync/atomic"
	"time"
)

// Lifecycle is shared by handlers to learn whether the process is draining.
type Lifecycle struct {
	draining      atomic.Bool
	drainingSince atomic.Int64
}

func (l *Lifecycle) SetDraining(draining bool) {
	if l == nil {
		return
	}
	if draining && !l.draining.Load() {
		l.drainingSince.Store(time.Now().UnixNano())
	}
	if !draining {
		l.drainingSince.Store(0)
	}
	l.draining.Store(draining)
}

func (l *Lifecycle) IsDraining() bool {
	if l == nil {
		return false
	}
	return l.draining.Load()
}

// DrainingSince is zero unless draining.
func (l *Lifecycle) DrainingSince() time.Time {
	if l == nil {
		return time.Time{}
	}
	ns := l.drainingSince.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

package session

import "time"

// frameLimiter is a token bucket over inbound camera frames.
type frameLimiter struct {
	now          func() time.Time
	rate         int64
	tokens       int64
	burstSeconds int64
	lastRefill   time.Time
}

func newFrameLimiter(now func() time.Time, fps int, burstSeconds int) *frameLimiter {
	if fps <= 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	if burstSeconds <= 0 {
		burstSeconds = 1
	}
	l := &frameLimiter{
		now:          now,
		rate:         int64(fps),
		burstSeconds: int64(burstSeconds),
		lastRefill:   now(),
	}
	l.tokens = l.rate * l.burstSeconds
	return l
}

func (l *frameLimiter) Allow() bool {
	if l == nil {
		return true
	}
	l.refill()
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

func (l *frameLimiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill)
	if elapsed <= 0 {
		return
	}
	add := (elapsed.Nanoseconds() * l.rate) / int64(time.Second)
	if add <= 0 {
		// Keep lastRefill so sub-token intervals accumulate.
		return
	}
	l.tokens += add
	if maxTokens := l.rate * l.burstSeconds; l.tokens > maxTokens {
		l.tokens = maxTokens
	}
	l.lastRefill = now
}

package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	cleanupInterval = 5 * time.Minute
	idleTTL         = 15 * time.Minute
)

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a token bucket per key holding perMinute tokens that
// refill evenly over a minute.
type MemoryLimiter struct {
	mu       sync.Mutex
	limit    int
	interval time.Duration
	entries  map[string]*memoryEntry
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	m := newMemoryLimiter(perMinute, time.Now)
	go m.cleanupLoop()
	return m
}

func newMemoryLimiter(perMinute int, now func() time.Time) *MemoryLimiter {
	return &MemoryLimiter{
		limit:    perMinute,
		interval: time.Minute / time.Duration(perMinute),
		entries:  make(map[string]*memoryEntry),
		now:      now,
		stop:     make(chan struct{}),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		entry = &memoryEntry{limiter: rate.NewLimiter(rate.Every(m.interval), m.limit)}
		m.entries[key] = entry
	}
	entry.lastSeen = now

	res := Result{Limit: m.limit}
	if entry.limiter.AllowN(now, 1) {
		res.Allowed = true
		res.Remaining = int(math.Floor(entry.limiter.TokensAt(now)))
		return res, nil
	}

	missing := 1 - entry.limiter.TokensAt(now)
	res.RetryAfter = time.Duration(math.Ceil(missing * float64(m.interval)))
	return res, nil
}

func (m *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stop:
			return
		}
	}
}

// cleanup drops keys idle for longer than idleTTL.
func (m *MemoryLimiter) cleanup() {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, entry := range m.entries {
		if now.Sub(entry.lastSeen) > idleTTL {
			delete(m.entries, key)
		}
	}
}

func (m *MemoryLimiter) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

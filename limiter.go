package pubsite

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
)

// LoginLimiter rate-limits failed login attempts per client IP.
type LoginLimiter interface {
	// Check reports whether ip may attempt another login. It does not record
	// an attempt.
	Check(ctx context.Context, ip string) bool
	// Record registers a failed login attempt for ip.
	Record(ctx context.Context, ip string)
}

// MemoryLoginLimiter keeps attempts in process memory. It suits a single
// instance; use RedisLoginLimiter when several instances share traffic.
type MemoryLoginLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewLoginLimiter creates a MemoryLoginLimiter that allows max failed
// attempts per window.
func NewLoginLimiter(max int, window time.Duration) *MemoryLoginLimiter {
	l := &MemoryLoginLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *MemoryLoginLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
		cutoff := time.Now().Add(-l.window)
		l.mu.Lock()
		for ip, hits := range l.attempts {
			if kept := prune(hits, cutoff); len(kept) == 0 {
				delete(l.attempts, ip)
			} else {
				l.attempts[ip] = kept
			}
		}
		l.mu.Unlock()
	}
}

// Stop ends the background cleanup goroutine.
func (l *MemoryLoginLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Allow checks the limit and records the attempt in one step.
func (l *MemoryLoginLimiter) Allow(ip string) bool {
	ctx := context.Background()
	if !l.Check(ctx, ip) {
		return false
	}
	l.Record(ctx, ip)
	return true
}

// Check returns true if ip has fewer than max attempts inside the window.
func (l *MemoryLoginLimiter) Check(_ context.Context, ip string) bool {
	cutoff := time.Now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.attempts[ip], cutoff)
	l.attempts[ip] = kept
	return len(kept) < l.max
}

// Record registers a failed login attempt for ip.
func (l *MemoryLoginLimiter) Record(_ context.Context, ip string) {
	l.mu.Lock()
	l.attempts[ip] = append(l.attempts[ip], time.Now())
	l.mu.Unlock()
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// RedisLoginLimiter counts attempts in Redis with a fixed window per IP, so
// the limit holds across instances.
type RedisLoginLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
	prefix string
}

// NewRedisLoginLimiter creates a RedisLoginLimiter that allows max failed
// attempts per window.
func NewRedisLoginLimiter(rdb *redis.Client, max int, window time.Duration) *RedisLoginLimiter {
	return &RedisLoginLimiter{rdb: rdb, max: max, window: window, prefix: "pubsite:login:"}
}

// Check fails open when Redis is unreachable so an outage cannot lock the
// admin out.
func (l *RedisLoginLimiter) Check(ctx context.Context, ip string) bool {
	n, err := l.rdb.Get(ctx, l.prefix+ip).Int()
	if err == redis.Nil {
		return true
	}
	if err != nil {
		log.Warnf("login limiter: redis get: %v", err)
		return true
	}
	return n < l.max
}

// Record increments the attempt counter, starting the window on the first hit.
func (l *RedisLoginLimiter) Record(ctx context.Context, ip string) {
	key := l.prefix + ip
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		log.Warnf("login limiter: redis incr: %v", err)
		return
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			log.Warnf("login limiter: redis expire: %v", err)
		}
	}
}

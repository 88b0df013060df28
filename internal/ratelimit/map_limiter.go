// Package ratelimit keeps one token bucket per caller key for the write API.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Key は呼び出し元を表すバケットのキー。identity があればそれ、なければ接続元IP。
type Key struct {
	Identity string
	IP       string
}

func (k Key) String() string {
	if k.Identity != "" {
		return "id:" + k.Identity
	}
	return "ip:" + k.IP
}

// MapLimiter は Key ごとのトークンバケット。しばらく使われていないバケットは捨てる。
type MapLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New は rps / burst のどちらかが 0 以下なら nil（無制限）を返す。
func New(rps float64, burst int, idleTTL time.Duration) *MapLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &MapLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		buckets: make(map[string]*bucket),
	}
}

// Allow は now の時点で key のトークンを1つ消費できるかを返す。nil は常に許可。
func (l *MapLimiter) Allow(key Key, now time.Time) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lastSweep.IsZero() {
		l.lastSweep = now
	}
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}

	k := key.String()
	b, ok := l.buckets[k]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[k] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Len は保持しているバケット数
func (l *MapLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// idleTTL より古いバケットを捨てる。l.mu を保持して呼ぶ
func (l *MapLimiter) sweep(now time.Time) {
	cutoff := now.Add(-l.idleTTL)
	for k, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}

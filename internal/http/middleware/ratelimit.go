package middleware

import (
	"sync"
	"time"
)

type clientInfo struct {
	last  time.Time
	count int
}

// localLimiter is the in-process fixed window used when Redis is not
// configured. Counters live only as long as the process.
type localLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
	window  time.Duration
}

func newLocalLimiter(window time.Duration) *localLimiter {
	return &localLimiter{clients: make(map[string]*clientInfo), window: window}
}

// hit counts one request for key and returns the count in the current window.
func (l *localLimiter) hit(key string, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	ci, ok := l.clients[key]
	if !ok || now.Sub(ci.last) > l.window {
		if len(l.clients) > 10000 {
			l.evict(now)
		}
		l.clients[key] = &clientInfo{last: now, count: 1}
		return 1
	}
	ci.count++
	return ci.count
}

func (l *localLimiter) evict(now time.Time) {
	for k, ci := range l.clients {
		if now.Sub(ci.last) > l.window {
			delete(l.clients, k)
		}
	}
}

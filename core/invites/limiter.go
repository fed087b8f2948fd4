package invites

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// SendLimiter throttles invitations per inviting user. Idle buckets age out of the cache.
type SendLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets *expirable.LRU[int64, *rate.Limiter]
}

func NewSendLimiter(perHour, burst int) *SendLimiter {
	if perHour <= 0 {
		perHour = 30
	}
	if burst <= 0 {
		burst = 1
	}
	return &SendLimiter{
		limit:   rate.Every(time.Hour / time.Duration(perHour)),
		burst:   burst,
		buckets: expirable.NewLRU[int64, *rate.Limiter](10000, nil, 2*time.Hour),
	}
}

func (l *SendLimiter) Allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	b, ok := l.buckets.Get(userID)
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets.Add(userID, b)
	}
	l.mu.Unlock()
	return b.AllowN(now, 1)
}

package auth

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const maxTrackedSubjects = 4096

// SubjectLimiter keeps one token bucket per token subject. The least
// recently seen subjects are evicted once the tracked set is full.
type SubjectLimiter struct {
	rate     rate.Limit
	burst    int
	limiters *lru.Cache[string, *rate.Limiter]
}

// NewSubjectLimiter allows rps requests per second per subject with the
// given burst
func NewSubjectLimiter(rps float64, burst int) (*SubjectLimiter, error) {
	if burst < 1 {
		burst = 1
	}
	limiters, err := lru.New[string, *rate.Limiter](maxTrackedSubjects)
	if err != nil {
		return nil, fmt.Errorf("failed to create limiter set: %w", err)
	}
	return &SubjectLimiter{rate: rate.Limit(rps), burst: burst, limiters: limiters}, nil
}

// Allow reports whether subject may make a request now
func (l *SubjectLimiter) Allow(subject string) bool {
	limiter, ok := l.limiters.Get(subject)
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		if previous, found, _ := l.limiters.PeekOrAdd(subject, limiter); found {
			limiter = previous
		}
	}
	return limiter.Allow()
}

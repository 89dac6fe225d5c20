package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// Fallback limits when the security config leaves rate limiting unset.
const (
	defaultRPS   = 25
	defaultBurst = 50
)

// limiterPool keeps one token bucket per bearer token so a chatty client
// cannot starve the others.
type limiterPool struct {
	cfg SecConfig

	mu      sync.Mutex
	byToken map[string]*rate.Limiter
}

func newLimiterPool(cfg SecConfig) *limiterPool {
	return &limiterPool{cfg: cfg, byToken: make(map[string]*rate.Limiter)}
}

// Allow reports whether the request fits the token's bucket.
func (p *limiterPool) Allow(token string) bool {
	p.mu.Lock()
	l, ok := p.byToken[token]
	if !ok {
		rps, burst := p.cfg.RPS, p.cfg.Burst
		if rps <= 0 {
			rps = defaultRPS
		}
		if burst <= 0 {
			burst = defaultBurst
		}
		l = rate.NewLimiter(rate.Limit(rps), burst)
		p.byToken[token] = l
	}
	p.mu.Unlock()
	return l.Allow()
}

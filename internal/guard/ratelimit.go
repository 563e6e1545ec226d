package guard

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a per-client token bucket. New clients start with
// a full burst.
type RateLimiter struct {
	perMinute int
	burst     int

	mu      sync.Mutex
	clients map[string]*rate.Limiter
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// NewRateLimiter builds a limiter admitting perMinute requests per
// client with the given burst size.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		perMinute: perMinute,
		burst:     burst,
		clients:   make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) limiterFor(clientID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	lim, ok := rl.clients[clientID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(rl.perMinute)/60.0), rl.burst)
		rl.clients[clientID] = lim
	}
	return lim
}

// Check admits or refuses one request for clientID.
func (rl *RateLimiter) Check(clientID string) Decision {
	lim := rl.limiterFor(clientID)

	res := lim.Reserve()
	if delay := res.Delay(); delay > 0 {
		// Refused; hand the token back so the wait estimate stays honest.
		res.Cancel()
		return Decision{
			Allowed:    false,
			Limit:      rl.perMinute,
			Remaining:  0,
			RetryAfter: delay,
		}
	}

	remaining := int(lim.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   true,
		Limit:     rl.perMinute,
		Remaining: remaining,
	}
}

// ClientID derives a stable client identity from the request. An API
// key wins over proxy headers, which win over the socket peer.
func ClientID(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		if len(key) > 8 {
			key = key[:8]
		}
		return "key:" + key
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return "ip:" + first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}

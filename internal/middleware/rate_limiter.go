package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fakhrymubarak/skyglow-weather/internal/config"
	"github.com/fakhrymubarak/skyglow-weather/internal/model"
)

// paramKey is the query parameter limited per distinct value (default: "location").
var paramKey = "location"

// SetParamKey sets the query parameter key for per-param rate limiting. Used primarily for testing.
func SetParamKey(key string) {
	paramKey = key
}

// visitor holds the rate limiter and last seen time for one bucket key.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorSet is a keyed collection of limiters sharing one per-minute rate and burst.
type visitorSet struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limits   func() (perMinute float64, burst int)
}

func newVisitorSet(limits func() (float64, int)) *visitorSet {
	return &visitorSet{visitors: make(map[string]*visitor), limits: limits}
}

// get returns the limiter for key, creating it from the configured limits on first use.
func (s *visitorSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, exists := s.visitors[key]
	if !exists {
		perMinute, burst := s.limits()
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(perMinute/60.0), burst)}
		s.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// evict removes entries unseen for longer than idle.
func (s *visitorSet) evict(idle time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, v := range s.visitors {
		if time.Since(v.lastSeen) > idle {
			delete(s.visitors, key)
		}
	}
}

func (s *visitorSet) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitors = make(map[string]*visitor)
}

var (
	// globalVisitors is keyed by client IP.
	globalVisitors = newVisitorSet(config.GetGlobalRateLimiterConfig)
	// paramVisitors is keyed by client IP and parameter value.
	paramVisitors = newVisitorSet(config.GetParamRateLimiterConfig)
)

// StartRateLimiterCleanup evicts idle visitors every minute until ctx is done.
func StartRateLimiterCleanup(ctx context.Context) {
	idle := config.GetRateLimiterCleanupTimeout()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				globalVisitors.evict(idle)
				paramVisitors.evict(idle)
			}
		}
	}()
}

// ResetVisitors clears all visitor states for both global and per-param limiters. Used primarily for testing.
func ResetVisitors() {
	globalVisitors.reset()
	paramVisitors.reset()
}

// getIP extracts the client's IP address from the HTTP request, considering X-Forwarded-For headers.
func getIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // fallback
	}
	return ip
}

// getParam returns the normalized value of the limited query parameter.
func getParam(r *http.Request) string {
	param := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(paramKey)))
	if param == "" {
		// If param is missing, treat as a single bucket
		return "__none__"
	}
	return param
}

func tooManyRequests(w http.ResponseWriter, errMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(model.Response{
		Error:   &errMsg,
		Message: message,
	})
}

// RateLimitMiddleware returns an HTTP middleware that enforces global and per-parameter rate limiting.
// If the rate limit is exceeded, it responds with a 429 status and a JSON error message.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getIP(r)
		param := getParam(r)

		if !globalVisitors.get(ip).Allow() {
			perMinute, _ := config.GetGlobalRateLimiterConfig()
			config.GetLogger().Warnw("Global rate limit exceeded", "ip", ip, "path", r.URL.Path)
			tooManyRequests(w,
				fmt.Sprintf("Rate limit exceeded: max %g requests per minute per user/IP", perMinute),
				"Too Many Requests (global limit)")
			return
		}
		if !paramVisitors.get(ip + "|" + param).Allow() {
			perMinute, _ := config.GetParamRateLimiterConfig()
			config.GetLogger().Warnw("Per-param rate limit exceeded", "ip", ip, paramKey, param)
			tooManyRequests(w,
				fmt.Sprintf("Rate limit exceeded: max %g requests per minute per unique param per user/IP", perMinute),
				"Too Many Requests (per-param limit)")
			return
		}
		next.ServeHTTP(w, r)
	})
}

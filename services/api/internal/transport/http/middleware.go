package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

type actorKey struct{}

// WithActor resolves the caller from the upstream identity headers. A request
// without both headers, or with an unknown role, carries no actor and is
// rejected by the engine's authorization checks.
func WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderActorID))
		role, ok := domain.ParseRole(r.Header.Get(HeaderActorRole))
		if id != "" && ok {
			r = r.WithContext(context.WithValue(r.Context(), actorKey{}, &domain.Actor{ID: id, Role: role}))
		}
		next.ServeHTTP(w, r)
	})
}

func actorFromContext(ctx context.Context) *domain.Actor {
	actor, _ := ctx.Value(actorKey{}).(*domain.Actor)
	return actor
}

// RequestLogger logs basic request details and latency.
func RequestLogger(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		event := logger.Info()
		if rec.status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("actor", r.Header.Get(HeaderActorID)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RateLimiter holds one token bucket per caller. Callers are keyed by actor
// id, falling back to the remote address.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter returns nil when rps is not positive, which disables
// limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *RateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// RateLimit rejects callers that exceed their bucket with 429.
func RateLimit(limiter *RateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderActorID)
		if key == "" {
			key = remoteHost(r.RemoteAddr)
		}
		if !limiter.Allow(key) {
			writeErrorResponse(w, http.StatusTooManyRequests, errorResponse{
				Error:     "rate limit exceeded",
				Code:      codeRateLimited,
				Retryable: true,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func remoteHost(addr string) string {
	if i := strings.LastIndexByte(addr, ':'); i > 0 {
		return addr[:i]
	}
	return addr
}

package api

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Eo-0118/Black-Kingdom/internal/auth"
	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

const (
	headerRequestID = "X-Request-ID"
	keyRequestID    = "request_id"
	keyIdentity     = "identity"
)

// TokenValidator turns a bearer token into an identity. *auth.Tokens
// implements it.
type TokenValidator interface {
	Validate(token string) (*models.Identity, error)
}

// HTTPObserver records request metrics. *metrics.Metrics implements it.
type HTTPObserver interface {
	ObserveHTTP(route string, code int, elapsed time.Duration)
}

// RequestID reuses the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(keyRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// RequestLogger logs every request once it completes and feeds the HTTP
// metrics.
func RequestLogger(logger *zerolog.Logger, observer HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		code := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if observer != nil {
			observer.ObserveHTTP(route, code, elapsed)
		}

		event := logger.Info()
		if code >= http.StatusInternalServerError {
			event = logger.Warn()
		}
		event.
			Str("request_id", requestID(c)).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", code).
			Dur("latency", elapsed).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery converts panics into a 500 response.
func Recovery(logger *zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Error().
			Interface("panic", recovered).
			Str("request_id", requestID(c)).
			Str("path", c.Request.URL.Path).
			Msg("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error:     "internal server error",
			RequestID: requestID(c),
		})
	})
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(tokens TokenValidator, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := auth.BearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			writeError(c, logger, &models.UnauthenticatedError{Reason: "missing bearer token"})
			return
		}
		identity, err := tokens.Validate(raw)
		if err != nil {
			logger.Debug().Err(err).Str("request_id", requestID(c)).Msg("token rejected")
			writeError(c, logger, &models.UnauthenticatedError{Reason: "invalid or expired token"})
			return
		}
		c.Set(keyIdentity, identity)
		c.Next()
	}
}

// RateLimit throttles requests per client IP with a token bucket.
func RateLimit(perMinute float64, burst int, logger *zerolog.Logger) gin.HandlerFunc {
	limiters := newIPLimiters(rate.Limit(perMinute/60), burst)
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			logger.Warn().Str("client_ip", c.ClientIP()).Str("route", c.FullPath()).Msg("rate limited")
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error:     "too many attempts, try again later",
				RequestID: requestID(c),
			})
			return
		}
		c.Next()
	}
}

type ipLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*ipLimiter
	lastGC   time.Time
}

type ipLimiter struct {
	*rate.Limiter
	seen time.Time
}

const limiterIdle = 10 * time.Minute

func newIPLimiters(limit rate.Limit, burst int) *ipLimiters {
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiters{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*ipLimiter),
		lastGC:   time.Now(),
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastGC) > limiterIdle {
		for key, lim := range l.limiters {
			if now.Sub(lim.seen) > limiterIdle {
				delete(l.limiters, key)
			}
		}
		l.lastGC = now
	}

	lim, ok := l.limiters[ip]
	if !ok {
		lim = &ipLimiter{Limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = lim
	}
	lim.seen = now
	return lim.Limiter
}

func requestID(c *gin.Context) string {
	return c.GetString(keyRequestID)
}

// identityFrom returns the caller set by RequireAuth, or nil.
func identityFrom(c *gin.Context) *models.Identity {
	v, ok := c.Get(keyIdentity)
	if !ok {
		return nil
	}
	identity, _ := v.(*models.Identity)
	return identity
}

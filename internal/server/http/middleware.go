package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/veritls/veritls/internal/observability"
)

// RequestIDHeader is the header name for request ID.
const RequestIDHeader = "X-Request-ID"

// RequestID returns a middleware that attaches a request ID to each
// request, generating one when the client did not send any.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := observability.ContextWithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		c.Next()
	}
}

// RequestLogger returns a middleware that logs each request.
func RequestLogger(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("http request",
			observability.String("method", c.Request.Method),
			observability.String("path", c.Request.URL.Path),
			observability.Int("status", c.Writer.Status()),
			observability.Int("size", c.Writer.Size()),
			observability.Duration("duration", time.Since(start)),
			observability.String("remote_addr", c.ClientIP()),
			observability.String("request_id", observability.RequestIDFromContext(c.Request.Context())),
		)
	}
}

// RequestMetrics returns a middleware that records request metrics.
func RequestMetrics(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.RequestStarted()

		c.Next()

		metrics.RequestFinished()
		// FullPath is the route template, keeping label cardinality
		// bounded regardless of request paths.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// Tracing returns a middleware that opens a span per request.
func Tracing(tracer *observability.Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.StartSpan(c.Request.Context(), c.Request.Method+" "+c.FullPath())
		defer span.End()

		span.SetAttributes(
			observability.StringAttr("http.method", c.Request.Method),
			observability.StringAttr("http.target", c.Request.URL.Path),
		)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RateLimiter wraps a token-bucket limiter shared by all clients of
// the diagnostic server.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a rate limiter with the given sustained rate
// and burst.
func NewRateLimiter(rps, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Allow reports whether a request may proceed.
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// RateLimit returns a middleware that rejects requests above the
// configured rate with 429.
func RateLimit(rl *RateLimiter, logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow() {
			logger.Warn("rate limit exceeded",
				observability.String("client_ip", c.ClientIP()),
				observability.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}

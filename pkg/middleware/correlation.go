package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sellerops/fba-fees/pkg/errors"
	"github.com/sellerops/fba-fees/pkg/logging"
)

// Headers carrying request identity
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
)

// RequestIDs stamps every request with a request ID and a correlation ID.
// Caller-supplied values are kept; missing ones are minted. Both are echoed
// back as response headers and stored on the request context for logging.
func RequestIDs() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logging.ContextWithRequestID(c.Request.Context(), echoHeader(c, HeaderRequestID))
		ctx = logging.ContextWithCorrelationID(ctx, echoHeader(c, HeaderCorrelationID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func echoHeader(c *gin.Context, name string) string {
	v := c.GetHeader(name)
	if v == "" {
		v = uuid.NewString()
	}
	c.Header(name, v)
	return v
}

// GetRequestID returns the ID assigned by RequestIDs, or "" outside it.
func GetRequestID(c *gin.Context) string {
	return logging.RequestIDFromContext(c.Request.Context())
}

// AccessLog emits one line per request, leveled by status.
func AccessLog(logger *logging.Logger, quietPaths ...string) gin.HandlerFunc {
	quiet := pathSet(quietPaths)
	return func(c *gin.Context) {
		if quiet[c.Request.URL.Path] {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		logger.HTTPRequest(c.Request.Context(), c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start), c.ClientIP(), c.Request.UserAgent())
	}
}

// Recovery turns a handler panic into an INTERNAL_ERROR body.
func Recovery(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Panic(c.Request.Context(), r)
				AbortWithAppError(c, errors.ErrInternal("An unexpected error occurred"))
			}
		}()
		c.Next()
	}
}

func pathSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}

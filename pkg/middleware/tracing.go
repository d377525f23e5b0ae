package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/sellerops/fba-fees/pkg/logging"
)

// Tracing opens a server span named "METHOD /route" per request, continuing
// a trace propagated in the request headers. Quiet paths get no span.
func Tracing(serviceName string, quietPaths ...string) gin.HandlerFunc {
	tracer := otel.Tracer(serviceName)
	quiet := pathSet(quietPaths)

	return func(c *gin.Context) {
		if quiet[c.Request.URL.Path] {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethodKey.String(c.Request.Method),
				semconv.HTTPRouteKey.String(route),
				attribute.String("request.id", logging.RequestIDFromContext(ctx)),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		for _, e := range c.Errors {
			span.RecordError(e.Err)
		}
	}
}

// SetSpanAttributes annotates the current request's span.
func SetSpanAttributes(c *gin.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(c.Request.Context()).SetAttributes(attrs...)
}

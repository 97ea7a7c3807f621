package telemetry

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ContextKey type for context keys
type ContextKey string

const (
	// CorrelationIDKey is the context key for correlation ID
	CorrelationIDKey ContextKey = "correlation_id"
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"
)

const (
	// HeaderCorrelationID is the HTTP header for correlation ID
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is the HTTP header for request ID
	HeaderRequestID = "X-Request-ID"
)

// CorrelationMiddleware attaches correlation and request IDs to the request
// context and echoes them in response headers. Missing IDs are generated.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := WithCorrelation(r.Context(), correlationID, requestID)

		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(
				attribute.String("correlation.id", correlationID),
				attribute.String("request.id", requestID),
			)
		}

		w.Header().Set(HeaderCorrelationID, correlationID)
		w.Header().Set(HeaderRequestID, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithCorrelation stores both IDs in ctx.
func WithCorrelation(ctx context.Context, correlationID, requestID string) context.Context {
	ctx = context.WithValue(ctx, CorrelationIDKey, correlationID)
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetCorrelationID retrieves correlation ID from context
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(CorrelationIDKey).(string)
	return id
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// EnrichLogFields adds correlation IDs and the active trace context to log fields
func EnrichLogFields(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}

	if correlationID := GetCorrelationID(ctx); correlationID != "" {
		fields["correlation_id"] = correlationID
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields["request_id"] = requestID
	}

	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		fields["trace_id"] = spanCtx.TraceID().String()
		fields["span_id"] = spanCtx.SpanID().String()
	}

	return fields
}

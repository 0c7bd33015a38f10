package app

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinarc/ediary/internal/services/diary/auth"
)

// adminKeyHeader carries the opaque admin credential on the admin plane.
const adminKeyHeader = "X-Admin-Key"

type scopedHandler func(w http.ResponseWriter, r *http.Request, scope auth.Scope)

// admin resolves the request credential into a scope before running the
// handler. Scopes are resolved fresh on every request; nothing is cached, so
// key rotation applies immediately.
func (h handlers) admin(next scopedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := h.resolver.Resolve(r.Context(), r.Header.Get(adminKeyHeader))
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, scope)
	}
}

// traceRequests opens one span per request. With no provider configured the
// global tracer is a noop.
func traceRequests(next http.Handler) http.Handler {
	tracer := otel.Tracer("ediary/diary")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			))
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

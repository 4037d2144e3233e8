package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/broady/restive"
	"github.com/google/uuid"
)

// DefaultRequestIDHeader is the header used when RequestIDInterceptor is
// given an empty name.
const DefaultRequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID returns a context carrying id. RequestIDInterceptor sends
// it instead of generating a new one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDInterceptor creates an interceptor that tags every request with
// a request ID header. The ID is taken, in order, from the context, from a
// header the endpoint already sends, or generated as a random UUID. The ID
// is stored in the context passed on, so later interceptors can log it.
func RequestIDInterceptor(header string) restive.Interceptor {
	if header == "" {
		header = DefaultRequestIDHeader
	}
	header = http.CanonicalHeaderKey(header)

	return func(ctx context.Context, req *restive.RequestInfo, next restive.Invoker) (any, error) {
		existing, present := lookupHeader(req, header)
		id := RequestIDFromContext(ctx)
		switch {
		case id != "":
		case present && existing != "":
			id = existing
		default:
			id = uuid.New().String()
		}
		if existing != id {
			req.AddHeader(header, id)
		}
		return next(WithRequestID(ctx, id), req)
	}
}

// lookupHeader finds the last value the request would send for name.
func lookupHeader(req *restive.RequestInfo, name string) (string, bool) {
	var (
		value string
		found bool
	)
	for _, line := range req.Headers() {
		k, v, ok := strings.Cut(line, ":")
		if http.CanonicalHeaderKey(strings.TrimSpace(k)) != name {
			continue
		}
		if !ok {
			value, found = "", false
			continue
		}
		value, found = strings.TrimSpace(v), true
	}
	return value, found
}

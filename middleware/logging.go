// Package middleware provides restive interceptors for common client-side
// concerns.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/broady/restive"
)

// LoggingInterceptor creates an interceptor that logs endpoint calls using slog.
// It logs the start and end of each call, including duration and error status.
// When RequestIDInterceptor runs first, each line carries the request ID.
func LoggingInterceptor(logger *slog.Logger) restive.Interceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, req *restive.RequestInfo, next restive.Invoker) (any, error) {
		start := time.Now()
		l := logger.With(slog.String("endpoint", req.Endpoint))
		if id := RequestIDFromContext(ctx); id != "" {
			l = l.With(slog.String("request_id", id))
		}

		l.InfoContext(ctx, "request started",
			slog.String("method", req.Verb),
			slog.String("path", req.Path),
		)

		res, err := next(ctx, req)
		duration := time.Since(start)

		if err != nil {
			l.ErrorContext(ctx, "request failed",
				slog.Duration("duration", duration),
				slog.Any("error", err),
			)
		} else {
			l.InfoContext(ctx, "request completed",
				slog.Duration("duration", duration),
			)
		}

		return res, err
	}
}

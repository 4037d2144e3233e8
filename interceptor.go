package restive

import (
	"context"
)

// Invoker runs the next step of a call: the next interceptor, or the
// Executor itself.
type Invoker func(ctx context.Context, req *RequestInfo) (res any, err error)

// Interceptor is a hook that wraps every endpoint call after its RequestInfo
// has been assembled and before it reaches the Executor.
//
//	func timing(ctx context.Context, req *restive.RequestInfo, next restive.Invoker) (any, error) {
//	    start := time.Now()
//	    res, err := next(ctx, req)
//	    log.Printf("%s took %v", req.Endpoint, time.Since(start))
//	    return res, err
//	}
//
// Interceptors can:
//   - Inspect or add to the request (for example with RequestInfo.AddHeader)
//   - Inspect or replace the result
//   - Short-circuit by returning without calling next
//   - Pass a derived context to next; it becomes the request's context
//
// res has the endpoint's declared result type, or is nil for endpoints that
// only return an error.
type Interceptor func(ctx context.Context, req *RequestInfo, next Invoker) (res any, err error)

// chainInterceptors wraps final with interceptors.
// The first interceptor in the slice is the outer-most one (runs first).
func chainInterceptors(interceptors []Interceptor, final Invoker) Invoker {
	chain := final
	for i := len(interceptors) - 1; i >= 0; i-- {
		current := interceptors[i]
		next := chain
		chain = func(ctx context.Context, req *RequestInfo) (any, error) {
			return current(ctx, req, next)
		}
	}
	return chain
}

package restive

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestChainInterceptors_Empty(t *testing.T) {
	called := false
	final := func(ctx context.Context, req *RequestInfo) (any, error) {
		called = true
		return "result", nil
	}
	res, err := chainInterceptors(nil, final)(context.Background(), &RequestInfo{})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if res != "result" || !called {
		t.Errorf("expected final invoker to run, got %v", res)
	}
}

func TestChainInterceptors_Order(t *testing.T) {
	var order []string
	mk := func(name string) Interceptor {
		return func(ctx context.Context, req *RequestInfo, next Invoker) (any, error) {
			order = append(order, "before-"+name)
			res, err := next(ctx, req)
			order = append(order, "after-"+name)
			return res, err
		}
	}
	final := func(ctx context.Context, req *RequestInfo) (any, error) {
		order = append(order, "final")
		return nil, nil
	}

	_, _ = chainInterceptors([]Interceptor{mk("1"), mk("2"), mk("3")}, final)(context.Background(), &RequestInfo{})

	want := []string{"before-1", "before-2", "before-3", "final", "after-3", "after-2", "after-1"}
	if !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestRegistry_Interceptors(t *testing.T) {
	var seen []string
	r := NewRegistry().
		WithInterceptor(func(ctx context.Context, req *RequestInfo, next Invoker) (any, error) {
			seen = append(seen, req.Endpoint)
			req.AddHeader("X-Trace", "abc")
			return next(ctx, req)
		})

	exec := &fakeExecutor{}
	users := MustNew[usersAPI](r, exec)
	if err := users.Delete(context.Background(), "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(seen, []string{"usersAPI.Delete"}) {
		t.Errorf("expected interceptor to see usersAPI.Delete, got %v", seen)
	}
	_, req := exec.last()
	if want := []string{"Accept: application/json", "X-Trace: abc"}; !slices.Equal(req.Headers(), want) {
		t.Errorf("headers = %v, want %v", req.Headers(), want)
	}
}

func TestRegistry_InterceptorAppendDoesNotLeak(t *testing.T) {
	type api struct {
		Service `headers:"A: 1 | B: 2 | C: 3"`
		Ping    func() error `rest:"GET /ping" headers:"D: 4 | E: 5 | F: 6"`
	}
	first := true
	r := NewRegistry().
		WithInterceptor(func(ctx context.Context, req *RequestInfo, next Invoker) (any, error) {
			if first {
				first = false
				req.ClassHeaders = append(req.ClassHeaders, "X: leaked")
				req.MethodHeaders = append(req.MethodHeaders, "X: leaked")
			}
			return next(ctx, req)
		})

	exec := &fakeExecutor{}
	c := MustNew[api](r, exec)
	for range 2 {
		if err := c.Ping(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	_, req := exec.last()
	if slices.Contains(req.ClassHeaders[:cap(req.ClassHeaders)], "X: leaked") {
		t.Errorf("class headers leaked between calls: %v", req.ClassHeaders[:cap(req.ClassHeaders)])
	}
	if slices.Contains(req.MethodHeaders[:cap(req.MethodHeaders)], "X: leaked") {
		t.Errorf("method headers leaked between calls: %v", req.MethodHeaders[:cap(req.MethodHeaders)])
	}
	if want := []string{"A: 1", "B: 2", "C: 3", "D: 4", "E: 5", "F: 6"}; !slices.Equal(req.Headers(), want) {
		t.Errorf("headers = %v, want %v", req.Headers(), want)
	}
}

func TestRegistry_InterceptorReplacesContext(t *testing.T) {
	type key struct{}
	r := NewRegistry().
		WithInterceptor(func(ctx context.Context, req *RequestInfo, next Invoker) (any, error) {
			return next(context.WithValue(ctx, key{}, "intercepted"), req)
		})

	exec := &fakeExecutor{}
	users := MustNew[usersAPI](r, exec)
	_ = users.Delete(context.Background(), "1")

	_, req := exec.last()
	if req.Context().Value(key{}) != "intercepted" {
		t.Error("expected interceptor context to reach the executor")
	}
}

func TestRegistry_InterceptorShortCircuit(t *testing.T) {
	cached := &user{ID: "cached"}
	r := NewRegistry().
		WithInterceptor(func(ctx context.Context, req *RequestInfo, next Invoker) (any, error) {
			if req.Endpoint == "usersAPI.Get" {
				return cached, nil
			}
			return next(ctx, req)
		})

	exec := &fakeExecutor{}
	users := MustNew[usersAPI](r, exec)
	u, err := users.Get(context.Background(), "1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u != cached {
		t.Errorf("expected cached user, got %+v", u)
	}
	if len(exec.reqs) != 0 {
		t.Errorf("expected executor not to be called, got %d calls", len(exec.reqs))
	}
}

func TestRegistry_InterceptorWrongResultType(t *testing.T) {
	r := NewRegistry().
		WithInterceptor(func(ctx context.Context, req *RequestInfo, next Invoker) (any, error) {
			return 42, nil
		})
	users := MustNew[usersAPI](r, &fakeExecutor{})

	u, err := users.Get(context.Background(), "1", false)
	if err == nil {
		t.Fatal("expected error for mismatched result type")
	}
	if u != nil {
		t.Errorf("expected nil result, got %+v", u)
	}
}

func TestRegistry_InterceptorError(t *testing.T) {
	denied := errors.New("denied")
	r := NewRegistry().
		WithInterceptor(func(ctx context.Context, req *RequestInfo, next Invoker) (any, error) {
			return nil, denied
		})
	users := MustNew[usersAPI](r, &fakeExecutor{})

	if _, err := users.Bio("1"); !errors.Is(err, denied) {
		t.Errorf("expected denied, got %v", err)
	}
}

package restive

import (
	"context"
	"net/http"
	"reflect"
	"sync"
)

// fakeExecutor records requests and answers with programmed values.
// testutil.Recorder cannot be used here without an import cycle.
type fakeExecutor struct {
	mu   sync.Mutex
	reqs []*RequestInfo
	ops  []string

	err   error
	text  string
	raw   *http.Response
	meta  *ResponseMeta
	value any
}

func (f *fakeExecutor) record(op string, req *RequestInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
	f.reqs = append(f.reqs, req)
}

func (f *fakeExecutor) last() (string, *RequestInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reqs) == 0 {
		return "", nil
	}
	return f.ops[len(f.ops)-1], f.reqs[len(f.reqs)-1]
}

func (f *fakeExecutor) Send(req *RequestInfo) error {
	f.record("Send", req)
	return f.err
}

func (f *fakeExecutor) SendRaw(req *RequestInfo) (*http.Response, error) {
	f.record("SendRaw", req)
	return f.raw, f.err
}

func (f *fakeExecutor) SendText(req *RequestInfo) (string, error) {
	f.record("SendText", req)
	return f.text, f.err
}

func (f *fakeExecutor) SendWrapped(req *RequestInfo, content any) (*ResponseMeta, error) {
	f.record("SendWrapped", req)
	if f.err != nil {
		return nil, f.err
	}
	f.assign(content)
	return f.meta, nil
}

func (f *fakeExecutor) SendTyped(req *RequestInfo, out any) error {
	f.record("SendTyped", req)
	if f.err != nil {
		return f.err
	}
	f.assign(out)
	return nil
}

func (f *fakeExecutor) assign(dst any) {
	if f.value == nil {
		return
	}
	reflect.ValueOf(dst).Elem().Set(reflect.ValueOf(f.value))
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type usersAPI struct {
	Service `headers:"Accept: application/json"`

	Get      func(ctx context.Context, id string, isActive bool) (*user, error)                     `rest:"GET /users/{id}" params:"ctx, id path, isActive query=active"`
	List     func(ctx context.Context, page int, q string) ([]user, error)                          `rest:"GET /users" params:"ctx, page, q query=search"`
	Create   func(ctx context.Context, u *user, token string) (*Response[user], error)              `rest:"POST /users" params:"ctx, u body, token header=Authorization" headers:"Content-Type: application/json"`
	Update   func(ctx context.Context, id string, u user) (Response[user], error)                   `rest:"PUT /users/{id}" params:"ctx, id path, u body=form" status:"any"`
	Delete   func(ctx context.Context, id string) error                                             `rest:"DELETE /users/{id}" params:"ctx, id path"`
	Avatar   func(ctx context.Context, id string) (*http.Response, error)                           `rest:"GET /users/{id}/avatar" params:"ctx, id path"`
	Bio      func(id string) (string, error)                                                        `rest:"GET /users/{id}/bio" params:"id path"`
	Ping     func() error                                                                           `rest:"HEAD /ping"`
	Messages func(ctx context.Context, from string, to string, body []byte) (map[string]any, error) `rest:"POST /users/{from}/messages/{to}" params:"ctx, from path, to path, body body=raw"`

	helper func()
}

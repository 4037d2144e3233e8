// Package testutil provides testing helpers for restive clients.
// This package is designed to be import-cycle safe and can be used from any
// package except restive itself.
package testutil

import (
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/broady/restive"
)

// Call is one request seen by a Recorder.
type Call struct {
	Op      string // Executor method name, e.g. "SendTyped"
	Request *restive.RequestInfo
}

// Recorder is a restive.Executor that records every request and answers
// with programmed results. Configure it with the fluent With methods before
// use; it is safe for concurrent calls afterwards.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	err   error
	text  string
	raw   *http.Response
	meta  *restive.ResponseMeta
	value any
}

var _ restive.Executor = (*Recorder)(nil)

// NewRecorder creates a Recorder that answers every call with a zero result.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// WithError makes every call fail with err.
func (r *Recorder) WithError(err error) *Recorder {
	r.err = err
	return r
}

// WithText sets the result of SendText.
func (r *Recorder) WithText(s string) *Recorder {
	r.text = s
	return r
}

// WithRaw sets the result of SendRaw.
func (r *Recorder) WithRaw(resp *http.Response) *Recorder {
	r.raw = resp
	return r
}

// WithMeta sets the metadata returned by SendWrapped.
func (r *Recorder) WithMeta(m restive.ResponseMeta) *Recorder {
	r.meta = &m
	return r
}

// WithValue sets the value assigned into typed and wrapped destinations.
// It must be assignable to the endpoint's result (or content) type.
func (r *Recorder) WithValue(v any) *Recorder {
	r.value = v
	return r
}

func (r *Recorder) record(op string, req *restive.RequestInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Request: req})
}

// Send implements restive.Executor.
func (r *Recorder) Send(req *restive.RequestInfo) error {
	r.record("Send", req)
	return r.err
}

// SendRaw implements restive.Executor.
func (r *Recorder) SendRaw(req *restive.RequestInfo) (*http.Response, error) {
	r.record("SendRaw", req)
	if r.err != nil {
		return nil, r.err
	}
	return r.raw, nil
}

// SendText implements restive.Executor.
func (r *Recorder) SendText(req *restive.RequestInfo) (string, error) {
	r.record("SendText", req)
	if r.err != nil {
		return "", r.err
	}
	return r.text, nil
}

// SendWrapped implements restive.Executor.
func (r *Recorder) SendWrapped(req *restive.RequestInfo, content any) (*restive.ResponseMeta, error) {
	r.record("SendWrapped", req)
	if r.err != nil {
		return nil, r.err
	}
	if err := r.assign(content); err != nil {
		return nil, err
	}
	if r.meta != nil {
		m := *r.meta
		return &m, nil
	}
	return &restive.ResponseMeta{StatusCode: http.StatusOK}, nil
}

// SendTyped implements restive.Executor.
func (r *Recorder) SendTyped(req *restive.RequestInfo, out any) error {
	r.record("SendTyped", req)
	if r.err != nil {
		return r.err
	}
	return r.assign(out)
}

func (r *Recorder) assign(dst any) error {
	if r.value == nil {
		return nil
	}
	dv := reflect.ValueOf(dst).Elem()
	v := reflect.ValueOf(r.value)
	if !v.Type().AssignableTo(dv.Type()) {
		return fmt.Errorf("testutil: recorded value has type %T, destination is %v", r.value, dv.Type())
	}
	dv.Set(v)
	return nil
}

// Calls returns a copy of every recorded call in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Requests returns every recorded request in order.
func (r *Recorder) Requests() []*restive.RequestInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*restive.RequestInfo, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Request
	}
	return out
}

// Last returns the most recent request, or nil.
func (r *Recorder) Last() *restive.RequestInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1].Request
}

// Reset forgets recorded calls. Programmed results are kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// AssertRoute checks the verb and path template of a request.
func AssertRoute(t *testing.T, req *restive.RequestInfo, verb, path string) {
	t.Helper()
	if req == nil {
		t.Fatalf("expected request %s %s, got none", verb, path)
	}
	if req.Verb != verb || req.Path != path {
		t.Errorf("expected route %s %s, got %s %s", verb, path, req.Verb, req.Path)
	}
}

// AssertParam checks that params contains name with the expected value.
func AssertParam(t *testing.T, params []restive.Param, name string, expected any) {
	t.Helper()
	for _, p := range params {
		if p.Name == name {
			if !reflect.DeepEqual(p.Value, expected) {
				t.Errorf("expected param %s=%v, got %v", name, expected, p.Value)
			}
			return
		}
	}
	t.Errorf("expected param %s, got %v", name, params)
}

// AssertHeaders checks the full, ordered header list of a request.
func AssertHeaders(t *testing.T, req *restive.RequestInfo, expected ...string) {
	t.Helper()
	if actual := req.Headers(); !slices.Equal(actual, expected) {
		t.Errorf("expected headers %q, got %q", expected, actual)
	}
}

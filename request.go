package restive

import (
	"context"
	"fmt"
	"reflect"
)

// Param is a named value bound from a call argument.
type Param struct {
	Name  string
	Value any
}

// Body is the body argument of a call together with how to serialize it.
type Body struct {
	Method BodyMethod
	Value  any
}

// RequestInfo describes one outgoing request before transport.
//
// A fresh RequestInfo is assembled for every call and handed to the
// Executor; it is never reused. ClassHeaders and MethodHeaders are shared
// with every call of the endpoint and must not be modified.
type RequestInfo struct {
	// Endpoint is "Service.Method", for logging.
	Endpoint string

	Verb string
	// Path is the route template. Placeholders are filled from PathParams
	// by the Executor.
	Path string

	PathParams  []Param
	QueryParams []Param // declaration order

	// Header sources are kept apart since they are fixed at different times:
	// per service, per method, and per call.
	ClassHeaders  []string
	MethodHeaders []string
	HeaderParams  []Param

	Body *Body

	// AllowAnyStatus is the resolved status-code policy. When false the
	// Executor treats non-success status codes as errors.
	AllowAnyStatus bool

	ctx context.Context
}

// NewRequestInfo returns a RequestInfo for the given verb and template.
func NewRequestInfo(verb, path string) *RequestInfo {
	return &RequestInfo{Verb: verb, Path: path}
}

// Context returns the cancellation context attached to the request, or
// context.Background if none was passed.
func (r *RequestInfo) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// SetContext attaches a cancellation context. A nil ctx is ignored.
func (r *RequestInfo) SetContext(ctx context.Context) {
	if ctx != nil {
		r.ctx = ctx
	}
}

// Headers returns every header line in the order class, method, then
// per-call header parameters formatted as "Name: value". Header parameters
// with a nil value are left out.
//
// Lines are not merged by name; how repeated names are applied is up to
// the Executor.
func (r *RequestInfo) Headers() []string {
	out := make([]string, 0, len(r.ClassHeaders)+len(r.MethodHeaders)+len(r.HeaderParams))
	out = append(out, r.ClassHeaders...)
	out = append(out, r.MethodHeaders...)
	for _, p := range r.HeaderParams {
		v, ok := headerValue(p.Value)
		if !ok {
			continue
		}
		out = append(out, p.Name+": "+v)
	}
	return out
}

// AddHeader appends a per-call header parameter.
func (r *RequestInfo) AddHeader(name string, value any) {
	r.HeaderParams = append(r.HeaderParams, Param{Name: name, Value: value})
}

func headerValue(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	return fmt.Sprint(rv.Interface()), true
}

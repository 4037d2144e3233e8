package restive

import (
	"context"
	"fmt"
	"reflect"

	"github.com/broady/restive/internal/meta"
)

// factory is the compiled form of a service struct. It is immutable and
// shared by every client built from the same type.
type factory struct {
	typ     reflect.Type
	desc    *ServiceDescriptor
	methods []*endpoint
}

// endpoint is one compiled endpoint field.
type endpoint struct {
	desc     *MethodDescriptor
	name     string // Service.Method
	fnType   reflect.Type
	result   reflect.Type // nil for ShapeVoid
	dispatch func(exec Executor, req *RequestInfo) (any, error)

	classHeaders   []string
	allowAnyStatus bool
	cancel         int // index of the context argument, -1 if none
	body           *ParameterDescriptor
	queries        []ParameterDescriptor // labeled and unlabeled, declaration order
	paths          []ParameterDescriptor
	headers        []ParameterDescriptor
}

func build(t reflect.Type, desc *ServiceDescriptor) *factory {
	f := &factory{typ: t, desc: desc}
	for _, m := range desc.Methods {
		ep := &endpoint{
			desc:           m,
			name:           desc.Name + "." + m.Name,
			fnType:         m.Func,
			result:         m.Result,
			dispatch:       dispatcher(m),
			classHeaders:   desc.Headers,
			allowAnyStatus: m.ResolveStatus(desc.Status) == StatusAny,
			cancel:         -1,
			queries:        m.ByRole(meta.RoleQuery, meta.RoleUnlabeledQuery),
			paths:          m.ByRole(meta.RolePath),
			headers:        m.ByRole(meta.RoleHeader),
		}
		if m.Shape == ShapeVoid {
			ep.result = nil
		}
		for _, p := range m.Params {
			switch p.Role {
			case meta.RoleCancellation:
				ep.cancel = p.Index
			case meta.RoleBody:
				body := p
				ep.body = &body
			}
		}
		f.methods = append(f.methods, ep)
	}
	return f
}

// instantiate returns a new *T with every endpoint field bound to exec.
func (f *factory) instantiate(exec Executor, interceptors []Interceptor) (v reflect.Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			cause, ok := rec.(error)
			if !ok {
				cause = fmt.Errorf("%v", rec)
			}
			err = &Error{
				Code:    CodeImplementationCreationFailed,
				Message: fmt.Sprintf("cannot materialize client: %v", rec),
				Service: f.desc.Name,
				cause:   cause,
			}
		}
	}()

	v = reflect.New(f.typ)
	elem := v.Elem()
	for _, ep := range f.methods {
		elem.FieldByIndex(ep.desc.Index).Set(ep.bind(exec, interceptors))
	}
	return v, nil
}

// bind produces the func value stored in the endpoint field.
func (ep *endpoint) bind(exec Executor, interceptors []Interceptor) reflect.Value {
	final := func(ctx context.Context, req *RequestInfo) (any, error) {
		req.SetContext(ctx)
		return ep.dispatch(exec, req)
	}
	invoke := chainInterceptors(interceptors, final)

	return reflect.MakeFunc(ep.fnType, func(args []reflect.Value) []reflect.Value {
		req := ep.assemble(args)
		res, err := invoke(req.Context(), req)
		return ep.results(res, err)
	})
}

// assemble builds the RequestInfo for one call from the compiled metadata
// and the live arguments.
func (ep *endpoint) assemble(args []reflect.Value) *RequestInfo {
	req := &RequestInfo{
		Endpoint: ep.name,
		Verb:     ep.desc.Verb,
		Path:     ep.desc.Path,
	}
	if ep.cancel >= 0 {
		if ctx, ok := args[ep.cancel].Interface().(context.Context); ok {
			req.SetContext(ctx)
		}
	}
	if len(ep.classHeaders) > 0 {
		req.ClassHeaders = ep.classHeaders
	}
	if len(ep.desc.Headers) > 0 {
		req.MethodHeaders = ep.desc.Headers
	}
	req.AllowAnyStatus = ep.allowAnyStatus

	if ep.body != nil {
		req.Body = &Body{Method: ep.body.Body, Value: args[ep.body.Index].Interface()}
	}
	if len(ep.queries) > 0 {
		req.QueryParams = make([]Param, 0, len(ep.queries))
		for _, p := range ep.queries {
			req.QueryParams = append(req.QueryParams, Param{Name: p.Key(), Value: args[p.Index].Interface()})
		}
	}
	if len(ep.paths) > 0 {
		req.PathParams = make([]Param, 0, len(ep.paths))
		for _, p := range ep.paths {
			req.PathParams = append(req.PathParams, Param{Name: p.Key(), Value: args[p.Index].Interface()})
		}
	}
	if len(ep.headers) > 0 {
		req.HeaderParams = make([]Param, 0, len(ep.headers))
		for _, p := range ep.headers {
			req.HeaderParams = append(req.HeaderParams, Param{Name: p.Key(), Value: args[p.Index].Interface()})
		}
	}
	return req
}

// results converts an invocation outcome into the func's return values.
func (ep *endpoint) results(res any, err error) []reflect.Value {
	if ep.result == nil {
		return []reflect.Value{errorValue(err)}
	}
	if err != nil {
		return []reflect.Value{reflect.Zero(ep.result), errorValue(err)}
	}
	v, convErr := resultValue(res, ep.result)
	if convErr != nil {
		return []reflect.Value{reflect.Zero(ep.result), errorValue(fmt.Errorf("restive: %s: %w", ep.name, convErr))}
	}
	return []reflect.Value{v, errorValue(nil)}
}

func errorValue(err error) reflect.Value {
	if err == nil {
		return reflect.Zero(errorType)
	}
	return reflect.ValueOf(&err).Elem()
}

func resultValue(res any, t reflect.Type) (reflect.Value, error) {
	if res == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(res)
	if rv.Type() == t {
		return rv, nil
	}
	if rv.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("result has type %T, want %v", res, t)
}

// dispatcher selects the Executor operation for a method's return shape.
func dispatcher(m *MethodDescriptor) func(Executor, *RequestInfo) (any, error) {
	switch m.Shape {
	case ShapeVoid:
		return func(exec Executor, req *RequestInfo) (any, error) {
			return nil, exec.Send(req)
		}
	case ShapeRawMessage:
		return func(exec Executor, req *RequestInfo) (any, error) {
			resp, err := exec.SendRaw(req)
			if err != nil {
				return nil, err
			}
			return resp, nil
		}
	case ShapeRawText:
		return func(exec Executor, req *RequestInfo) (any, error) {
			text, err := exec.SendText(req)
			if err != nil {
				return nil, err
			}
			return text, nil
		}
	case ShapeWrapped:
		return wrappedDispatcher(m.Result)
	default:
		result := m.Result
		return func(exec Executor, req *RequestInfo) (any, error) {
			out := reflect.New(result)
			if err := exec.SendTyped(req, out.Interface()); err != nil {
				return nil, err
			}
			return out.Elem().Interface(), nil
		}
	}
}

func wrappedDispatcher(result reflect.Type) func(Executor, *RequestInfo) (any, error) {
	isPtr := result.Kind() == reflect.Pointer
	elem := result
	if isPtr {
		elem = result.Elem()
	}
	return func(exec Executor, req *RequestInfo) (any, error) {
		rv := reflect.New(elem)
		w := rv.Interface().(wrapper)
		m, err := exec.SendWrapped(req, w.contentPtr())
		if err != nil {
			return nil, err
		}
		if m != nil {
			w.setMeta(*m)
		}
		if isPtr {
			return rv.Interface(), nil
		}
		return rv.Elem().Interface(), nil
	}
}

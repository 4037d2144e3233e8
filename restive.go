// Package restive turns a declarative description of an HTTP API into a
// callable client.
//
// A service is a struct whose exported func fields carry routing metadata in
// struct tags. New compiles the metadata once per type, validates it, and
// returns a value whose fields issue requests through an Executor:
//
//	type Users struct {
//	    restive.Service `headers:"Accept: application/json"`
//
//	    Get    func(ctx context.Context, id string, active bool) (*User, error) `rest:"GET /users/{id}" params:"ctx, id path, active query"`
//	    Create func(ctx context.Context, u *User) (*restive.Response[User], error) `rest:"POST /users" params:"ctx, u body"`
//	    Delete func(ctx context.Context, id string) error `rest:"DELETE /users/{id}" params:"ctx, id path"`
//	}
//
//	users, err := restive.New[Users](restive.NewRegistry(), httpexec.New("https://api.example.com"))
//	u, err := users.Get(ctx, "42", true)
//
// Every metadata error is reported by New. A client that was built never
// fails validation at call time; only the Executor can fail a call.
package restive

import (
	"reflect"
)

// New builds a client for service struct T whose endpoints send through
// exec. Metadata for T is compiled once per Registry and reused.
func New[T any](r *Registry, exec Executor) (*T, error) {
	t := reflect.TypeFor[T]()
	if r == nil {
		return nil, Errorf(CodeImplementationCreationFailed, "nil registry").withService(t)
	}
	if exec == nil {
		return nil, Errorf(CodeImplementationCreationFailed, "nil executor").withService(t)
	}

	f, interceptors, err := r.factoryFor(t)
	if err != nil {
		return nil, err
	}
	v, err := f.instantiate(exec, interceptors)
	if err != nil {
		return nil, err
	}
	return v.Interface().(*T), nil
}

// MustNew is like New but panics on error.
func MustNew[T any](r *Registry, exec Executor) *T {
	c, err := New[T](r, exec)
	if err != nil {
		panic(err)
	}
	return c
}

func (e *Error) withService(t reflect.Type) *Error {
	if t != nil {
		e.Service = t.Name()
	}
	return e
}

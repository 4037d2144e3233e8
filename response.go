package restive

import "net/http"

// ResponseMeta is the transport-level part of a response.
type ResponseMeta struct {
	StatusCode int
	Header     http.Header
	Body       []byte // raw body as received
}

// IsSuccess reports whether the status code is in the 2xx range.
func (m ResponseMeta) IsSuccess() bool {
	return m.StatusCode >= 200 && m.StatusCode < 300
}

// Response wraps a deserialized value with its status, headers and raw body.
// Declare an endpoint result as *Response[T] or Response[T] to receive it.
//
// Example:
//
//	type Users struct {
//	    restive.Service
//	    Get func(ctx context.Context, id string) (*restive.Response[User], error) `rest:"GET /users/{id}" params:"ctx, id path"`
//	}
type Response[T any] struct {
	ResponseMeta
	Content T
}

func (r *Response[T]) contentPtr() any {
	return &r.Content
}

func (r *Response[T]) setMeta(m ResponseMeta) {
	r.ResponseMeta = m
}

// wrapper is implemented by *Response[T] for every T. The unexported methods
// keep other types from matching the wrapped return shape.
type wrapper interface {
	contentPtr() any
	setMeta(ResponseMeta)
}

package restive

import "net/http"

// Executor performs requests on behalf of generated clients. Each operation
// matches one return shape:
//
//	error                        Send
//	(*http.Response, error)      SendRaw
//	(string, error)              SendText
//	(*Response[T], error)        SendWrapped
//	(T, error)                   SendTyped
//
// content and out are non-nil pointers to the value to decode into.
// Implementations must be safe for concurrent use; errors they return reach
// the caller of the endpoint unchanged.
type Executor interface {
	Send(req *RequestInfo) error
	SendRaw(req *RequestInfo) (*http.Response, error)
	SendText(req *RequestInfo) (string, error)
	SendWrapped(req *RequestInfo, content any) (*ResponseMeta, error)
	SendTyped(req *RequestInfo, out any) error
}

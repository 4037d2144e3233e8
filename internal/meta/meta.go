// Package meta holds the descriptors a service struct compiles into and the
// struct tag grammar they are read from.
//
// Descriptor types live in an internal package so that external packages
// can inspect them but never build them by hand; every descriptor is produced
// by CompileService and CompileMethod.
package meta

import (
	"reflect"
)

// Role classifies where a parameter's value lands in a request.
type Role int

const (
	RoleUnlabeledQuery Role = iota
	RolePath
	RoleQuery
	RoleHeader
	RoleBody
	RoleCancellation
)

func (r Role) String() string {
	switch r {
	case RoleUnlabeledQuery:
		return "unlabeled-query"
	case RolePath:
		return "path"
	case RoleQuery:
		return "query"
	case RoleHeader:
		return "header"
	case RoleBody:
		return "body"
	case RoleCancellation:
		return "ctx"
	default:
		return "unknown"
	}
}

// ReturnShape is the declared result category of an endpoint. It selects the
// Executor operation used to run the call.
type ReturnShape int

const (
	ShapeUnsupported ReturnShape = iota
	ShapeVoid                    // error
	ShapeRawText                 // (string, error)
	ShapeRawMessage              // (*http.Response, error)
	ShapeWrapped                 // (*Response[T], error)
	ShapeTyped                   // (T, error)
)

func (s ReturnShape) String() string {
	switch s {
	case ShapeVoid:
		return "void"
	case ShapeRawText:
		return "raw-text"
	case ShapeRawMessage:
		return "raw-message"
	case ShapeWrapped:
		return "wrapped"
	case ShapeTyped:
		return "typed"
	default:
		return "unsupported"
	}
}

// StatusPolicy controls whether non-success status codes are errors.
type StatusPolicy int

const (
	StatusStrict StatusPolicy = iota
	StatusAny
)

func (p StatusPolicy) String() string {
	if p == StatusAny {
		return "any"
	}
	return "strict"
}

// BodyMethod selects how a body parameter is serialized.
type BodyMethod int

const (
	BodyJSON BodyMethod = iota
	BodyForm
	BodyRaw
)

func (m BodyMethod) String() string {
	switch m {
	case BodyForm:
		return "form"
	case BodyRaw:
		return "raw"
	default:
		return "json"
	}
}

// ServiceDescriptor is the class-level description of a service struct.
// It is immutable once CompileService and the per-method compilation finish.
type ServiceDescriptor struct {
	Name    string
	Headers []string
	Status  StatusPolicy
	Methods []*MethodDescriptor
}

// MethodDescriptor describes one endpoint field.
type MethodDescriptor struct {
	Name    string
	Index   []int // struct field index path, as for reflect.Value.FieldByIndex
	Verb    string
	Path    string
	Params  []ParameterDescriptor
	Headers []string
	Status  *StatusPolicy // nil when the method does not override the service
	Shape   ReturnShape

	// Result is the first declared result type; nil for ShapeVoid and for
	// descriptors compiled from static type information.
	Result reflect.Type
	Func   reflect.Type
}

// ParameterDescriptor describes one func parameter.
type ParameterDescriptor struct {
	Index    int
	Role     Role
	Declared string
	Name     string     // explicit name override, if any
	Body     BodyMethod // only meaningful for RoleBody
	Type     reflect.Type
}

// Key returns the name used to place the value in the request: the explicit
// override when present, the declared name otherwise.
func (p ParameterDescriptor) Key() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Declared
}

// ResolveStatus returns the method override if set, else the service policy.
func (m *MethodDescriptor) ResolveStatus(service StatusPolicy) StatusPolicy {
	if m.Status != nil {
		return *m.Status
	}
	return service
}

// ByRole returns the parameters with the given role in declaration order.
func (m *MethodDescriptor) ByRole(roles ...Role) []ParameterDescriptor {
	var out []ParameterDescriptor
	for _, p := range m.Params {
		for _, r := range roles {
			if p.Role == r {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

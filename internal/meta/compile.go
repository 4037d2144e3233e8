package meta

import (
	"fmt"
	"reflect"
)

// MethodInput is everything a front end extracted for one endpoint field.
type MethodInput struct {
	Name   string
	Index  []int
	Tag    reflect.StructTag
	Params []ParamInput
	Shape  ReturnShape
	Result reflect.Type
	Func   reflect.Type
}

// CompileService reads the class-level tags of a service marker field.
func CompileService(name string, tag reflect.StructTag) (*ServiceDescriptor, error) {
	status, err := ParseStatus(tag.Get(TagStatus))
	if err != nil {
		return nil, err
	}
	svc := &ServiceDescriptor{
		Name:    name,
		Headers: ParseHeaders(tag.Get(TagHeaders)),
	}
	if status != nil {
		svc.Status = *status
	}
	return svc, nil
}

// CompileMethod validates one endpoint and produces its descriptor.
//
// Routing metadata is checked first; no other validation runs for a method
// without it. Parameters are then classified, the path template is checked
// against the path parameters, and finally the return shape.
func CompileMethod(in MethodInput) (*MethodDescriptor, error) {
	route, err := ParseRoute(in.Tag.Get(TagRoute))
	if err != nil {
		return nil, err
	}

	paramsTag, present := in.Tag.Lookup(TagParams)
	params, err := ParseParams(paramsTag, present, in.Params)
	if err != nil {
		return nil, err
	}

	var bodies, cancels int
	for _, p := range params {
		switch p.Role {
		case RoleBody:
			bodies++
		case RoleCancellation:
			cancels++
		}
	}
	if bodies > 1 {
		return nil, fmt.Errorf("%w: %d parameters are marked body", ErrMultipleBodyParameters, bodies)
	}
	if cancels > 1 {
		return nil, fmt.Errorf("%w: %d context parameters", ErrMultipleCancellationParameters, cancels)
	}

	if err := ValidatePath(route.Path, params); err != nil {
		return nil, err
	}

	status, err := ParseStatus(in.Tag.Get(TagStatus))
	if err != nil {
		return nil, err
	}

	if in.Shape == ShapeUnsupported {
		if in.Func != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedReturnShape, in.Func)
		}
		return nil, ErrUnsupportedReturnShape
	}

	return &MethodDescriptor{
		Name:    in.Name,
		Index:   in.Index,
		Verb:    route.Verb,
		Path:    route.Path,
		Params:  params,
		Headers: ParseHeaders(in.Tag.Get(TagHeaders)),
		Status:  status,
		Shape:   in.Shape,
		Result:  in.Result,
		Func:    in.Func,
	}, nil
}

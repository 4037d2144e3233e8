package restive

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"slices"

	"github.com/broady/restive/internal/meta"
)

// Service is embedded in a service struct to carry service-level tags:
//
//	type Users struct {
//	    restive.Service `headers:"Accept: application/json" status:"strict"`
//	    ...
//	}
//
// Embedding it is optional for runtime use, but `restive check` only
// reports on structs that embed it.
type Service struct{}

var (
	errorType        = reflect.TypeFor[error]()
	contextType      = reflect.TypeFor[context.Context]()
	stringType       = reflect.TypeFor[string]()
	httpResponseType = reflect.TypeFor[*http.Response]()
	serviceType      = reflect.TypeFor[Service]()
	wrapperType      = reflect.TypeFor[wrapper]()
)

// Describe compiles the metadata of service struct T without building a
// client. It reports the same errors New would.
func Describe[T any]() (*ServiceDescriptor, error) {
	return describe(reflect.TypeFor[T]())
}

func describe(t reflect.Type) (*ServiceDescriptor, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, Errorf(CodeNotAnInterface, "%v is not a service struct", t)
	}
	name := t.Name()

	var classTag reflect.StructTag
	for i := range t.NumField() {
		if f := t.Field(i); f.Anonymous && f.Type == serviceType {
			classTag = f.Tag
			break
		}
	}
	svc, err := meta.CompileService(name, classTag)
	if err != nil {
		return nil, buildError(name, "", err)
	}

	if err := describeFields(svc, t, nil); err != nil {
		return nil, err
	}
	return svc, nil
}

// describeFields compiles the endpoint fields of t and of the structs it
// embeds by value, so promoted endpoints are bound like direct ones.
func describeFields(svc *ServiceDescriptor, t reflect.Type, parent []int) error {
	for i := range t.NumField() {
		f := t.Field(i)
		index := append(slices.Clip(parent), i)

		switch {
		case f.Anonymous && f.Type == serviceType:
			continue
		case f.Anonymous && f.Type.Kind() == reflect.Struct:
			if err := describeFields(svc, f.Type, index); err != nil {
				return err
			}
			continue
		case f.Anonymous && f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct:
			if hasFuncFields(f.Type.Elem()) {
				return &Error{
					Code:    CodeMalformedMetadata,
					Message: fmt.Sprintf("embedded %v holds endpoint fields; embed it by value", f.Type),
					Service: svc.Name,
					Method:  f.Name,
				}
			}
			continue
		case f.Type.Kind() != reflect.Func:
			continue
		}

		_, tagged := f.Tag.Lookup(meta.TagRoute)
		if !f.IsExported() {
			if tagged {
				return &Error{
					Code:    CodeImplementationCreationFailed,
					Message: "endpoint field is unexported and cannot be set",
					Service: svc.Name,
					Method:  f.Name,
				}
			}
			continue
		}

		inputs := make([]meta.ParamInput, f.Type.NumIn())
		for j := range inputs {
			pt := f.Type.In(j)
			inputs[j] = meta.ParamInput{Type: pt, IsContext: pt == contextType}
		}
		shape, result := returnShape(f.Type)

		m, err := meta.CompileMethod(meta.MethodInput{
			Name:   f.Name,
			Index:  index,
			Tag:    f.Tag,
			Params: inputs,
			Shape:  shape,
			Result: result,
			Func:   f.Type,
		})
		if err != nil {
			return buildError(svc.Name, f.Name, err)
		}
		svc.Methods = append(svc.Methods, m)
	}
	return nil
}

// hasFuncFields reports whether t, or a struct it embeds, has func fields.
func hasFuncFields(t reflect.Type) bool {
	for i := range t.NumField() {
		f := t.Field(i)
		switch {
		case f.Type.Kind() == reflect.Func:
			return true
		case f.Anonymous && f.Type.Kind() == reflect.Struct && hasFuncFields(f.Type):
			return true
		}
	}
	return false
}

// returnShape classifies a func's results. The last result must be error.
func returnShape(ft reflect.Type) (meta.ReturnShape, reflect.Type) {
	n := ft.NumOut()
	if n == 0 || n > 2 || ft.Out(n-1) != errorType {
		return meta.ShapeUnsupported, nil
	}
	if n == 1 {
		return meta.ShapeVoid, nil
	}

	r := ft.Out(0)
	switch {
	case r == httpResponseType:
		return meta.ShapeRawMessage, r
	case r == stringType:
		return meta.ShapeRawText, r
	case isWrapped(r):
		return meta.ShapeWrapped, r
	default:
		return meta.ShapeTyped, r
	}
}

func isWrapped(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		return t.Elem().Kind() == reflect.Struct && t.Implements(wrapperType)
	}
	return t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(wrapperType)
}

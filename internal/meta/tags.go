package meta

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Struct tag keys read from service structs.
const (
	TagRoute   = "rest"
	TagParams  = "params"
	TagHeaders = "headers"
	TagStatus  = "status"
)

var (
	ErrMissingRoute                   = errors.New("missing routing metadata")
	ErrDuplicatePathParameter         = errors.New("duplicate path parameter")
	ErrPathParameterMismatch          = errors.New("path parameter mismatch")
	ErrMultipleBodyParameters         = errors.New("multiple body parameters")
	ErrMultipleCancellationParameters = errors.New("multiple cancellation parameters")
	ErrUnsupportedReturnShape         = errors.New("unsupported return shape")
	ErrMalformedTag                   = errors.New("malformed tag")
)

var validate = validator.New()

// Route is the parsed value of a `rest:"VERB /path"` tag.
type Route struct {
	Verb string `validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	Path string `validate:"required,startswith=/"`
}

// ParseRoute parses a route tag. An empty tag yields ErrMissingRoute.
func ParseRoute(tag string) (Route, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Route{}, ErrMissingRoute
	}
	verb, path, ok := strings.Cut(tag, " ")
	if !ok {
		return Route{}, fmt.Errorf("%w: route %q must be \"VERB /path\"", ErrMalformedTag, tag)
	}
	r := Route{
		Verb: strings.ToUpper(verb),
		Path: strings.TrimSpace(path),
	}
	if err := validate.Struct(r); err != nil {
		var valErrs validator.ValidationErrors
		if errors.As(err, &valErrs) && len(valErrs) > 0 {
			return Route{}, fmt.Errorf("%w: route %q: %s failed %s validation", ErrMalformedTag, tag, valErrs[0].Field(), valErrs[0].Tag())
		}
		return Route{}, fmt.Errorf("%w: route %q: %v", ErrMalformedTag, tag, err)
	}
	return r, nil
}

// ParseHeaders splits a `headers` tag into its ordered header strings.
// Entries are separated by '|' so header values may contain ',' and ';'.
func ParseHeaders(tag string) []string {
	var headers []string
	for _, h := range strings.Split(tag, "|") {
		if h = strings.TrimSpace(h); h != "" {
			headers = append(headers, h)
		}
	}
	return slices.Clip(headers)
}

// ParseStatus parses a `status` tag. It returns nil when the tag is empty.
func ParseStatus(tag string) (*StatusPolicy, error) {
	var p StatusPolicy
	switch strings.TrimSpace(tag) {
	case "":
		return nil, nil
	case "strict":
		p = StatusStrict
	case "any":
		p = StatusAny
	default:
		return nil, fmt.Errorf("%w: status %q must be \"any\" or \"strict\"", ErrMalformedTag, tag)
	}
	return &p, nil
}

// ParamInput is what a front end knows about a func parameter before its
// params tag entry is applied.
type ParamInput struct {
	IsContext bool
	Type      reflect.Type // nil from static analysis
}

// ParseParams applies a params tag to a parameter list. present reports
// whether the tag exists at all.
//
// Each comma separated entry is "declaredName [role[=value]]" and lines up
// with the parameter at the same position.
func ParseParams(tag string, present bool, inputs []ParamInput) ([]ParameterDescriptor, error) {
	var entries []string
	if present && strings.TrimSpace(tag) != "" {
		entries = strings.Split(tag, ",")
	}
	if len(entries) != len(inputs) {
		if !present || len(entries) == 0 {
			for i, in := range inputs {
				if !in.IsContext {
					return nil, fmt.Errorf("%w: parameter %d has no params entry", ErrMalformedTag, i)
				}
			}
			entries = make([]string, len(inputs))
		} else {
			return nil, fmt.Errorf("%w: params has %d entries, func has %d parameters", ErrMalformedTag, len(entries), len(inputs))
		}
	}

	params := make([]ParameterDescriptor, 0, len(inputs))
	for i, in := range inputs {
		p, err := parseEntry(i, entries[i], in.IsContext)
		if err != nil {
			return nil, err
		}
		p.Type = in.Type
		params = append(params, p)
	}
	return params, nil
}

func parseEntry(index int, entry string, isContext bool) (ParameterDescriptor, error) {
	p := ParameterDescriptor{Index: index}
	fields := strings.Fields(entry)
	switch len(fields) {
	case 0:
		if !isContext {
			return p, fmt.Errorf("%w: parameter %d has an empty params entry", ErrMalformedTag, index)
		}
		p.Role = RoleCancellation
		return p, nil
	case 1, 2:
	default:
		return p, fmt.Errorf("%w: params entry %q has too many fields", ErrMalformedTag, entry)
	}

	p.Declared = fields[0]
	if len(fields) == 1 {
		if isContext {
			p.Role = RoleCancellation
		} else {
			p.Role = RoleUnlabeledQuery
		}
		return p, nil
	}

	role, value, hasValue := strings.Cut(fields[1], "=")
	if hasValue && value == "" {
		return p, fmt.Errorf("%w: params entry %q has an empty value", ErrMalformedTag, entry)
	}
	switch role {
	case "path":
		p.Role, p.Name = RolePath, value
	case "query":
		p.Role, p.Name = RoleQuery, value
	case "header":
		p.Role, p.Name = RoleHeader, value
	case "body":
		p.Role = RoleBody
		switch value {
		case "", "json":
			p.Body = BodyJSON
		case "form":
			p.Body = BodyForm
		case "raw":
			p.Body = BodyRaw
		default:
			return p, fmt.Errorf("%w: unknown body method %q", ErrMalformedTag, value)
		}
	case "ctx":
		if hasValue {
			return p, fmt.Errorf("%w: ctx parameter %q takes no value", ErrMalformedTag, p.Declared)
		}
		p.Role = RoleCancellation
	default:
		return p, fmt.Errorf("%w: unknown role %q for parameter %q", ErrMalformedTag, role, p.Declared)
	}

	if isContext && p.Role != RoleCancellation {
		return p, fmt.Errorf("%w: context.Context parameter %q must use role ctx", ErrMalformedTag, p.Declared)
	}
	if !isContext && p.Role == RoleCancellation {
		return p, fmt.Errorf("%w: parameter %q has role ctx but is not a context.Context", ErrMalformedTag, p.Declared)
	}
	return p, nil
}

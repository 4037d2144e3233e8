package httpexec

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/broady/restive"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

var (
	validate      = validator.New()
	schemaEncoder = schema.NewEncoder()
)

func init() {
	schemaEncoder.SetAliasTag("json")
}

// newRequest turns a RequestInfo into an *http.Request bound to the
// request's context.
func (c *Client) newRequest(req *restive.RequestInfo) (*http.Request, error) {
	target, err := c.resolve(req)
	if err != nil {
		return nil, err
	}

	body, contentType, err := c.encodeBody(req)
	if err != nil {
		return nil, err
	}

	hreq, err := http.NewRequestWithContext(req.Context(), req.Verb, target, body)
	if err != nil {
		return nil, fmt.Errorf("httpexec: %s: %w", req.Endpoint, err)
	}
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		hreq.Header.Set("User-Agent", c.userAgent)
	}
	applyHeaders(hreq.Header, req.Headers())
	return hreq, nil
}

// resolve fills the route template and appends query parameters after any
// literal query string it already carries.
func (c *Client) resolve(req *restive.RequestInfo) (string, error) {
	path, literal, _ := strings.Cut(req.Path, "?")

	values := make(map[string]string, len(req.PathParams))
	for _, p := range req.PathParams {
		s, err := scalar(p.Value)
		if err != nil {
			return "", fmt.Errorf("httpexec: %s: path parameter %q: %w", req.Endpoint, p.Name, err)
		}
		values[p.Name] = s
	}
	path = expandPath(path, values)

	query, err := encodeQuery(req.QueryParams)
	if err != nil {
		return "", fmt.Errorf("httpexec: %s: %w", req.Endpoint, err)
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimSuffix(c.baseURL, "/"))
	sb.WriteString(path)
	if literal != "" || query != "" {
		sb.WriteByte('?')
		sb.WriteString(literal)
		if literal != "" && query != "" {
			sb.WriteByte('&')
		}
		sb.WriteString(query)
	}
	return sb.String(), nil
}

// expandPath replaces each {name} in path with its escaped value.
func expandPath(path string, values map[string]string) string {
	var sb strings.Builder
	for {
		open := strings.IndexByte(path, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(path[open:], '}')
		if end < 0 {
			break
		}
		name := strings.TrimSpace(path[open+1 : open+end])
		sb.WriteString(path[:open])
		if v, ok := values[name]; ok {
			sb.WriteString(url.PathEscape(v))
		} else {
			sb.WriteString(path[open : open+end+1])
		}
		path = path[open+end+1:]
	}
	sb.WriteString(path)
	return sb.String()
}

// encodeQuery serializes query parameters in declaration order. Nil values
// are omitted, slices repeat the key and structs expand to one pair per
// field, in struct field order.
func encodeQuery(params []restive.Param) (string, error) {
	var pairs []string
	add := func(k, v string) {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(v))
	}
	for _, p := range params {
		rv, ok := deref(p.Value)
		if !ok {
			continue
		}
		switch {
		case isText(rv):
			s, err := scalar(rv.Interface())
			if err != nil {
				return "", fmt.Errorf("query parameter %q: %w", p.Name, err)
			}
			add(p.Name, s)
		case rv.Kind() == reflect.Struct:
			vals := url.Values{}
			if err := schemaEncoder.Encode(rv.Interface(), vals); err != nil {
				return "", fmt.Errorf("query parameter %q: %w", p.Name, err)
			}
			for _, k := range fieldOrder(rv.Type(), vals) {
				for _, v := range vals[k] {
					add(k, v)
				}
			}
		case (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8:
			for i := range rv.Len() {
				ev, ok := deref(rv.Index(i).Interface())
				if !ok {
					continue
				}
				s, err := scalar(ev.Interface())
				if err != nil {
					return "", fmt.Errorf("query parameter %q: %w", p.Name, err)
				}
				add(p.Name, s)
			}
		default:
			s, err := scalar(rv.Interface())
			if err != nil {
				return "", fmt.Errorf("query parameter %q: %w", p.Name, err)
			}
			add(p.Name, s)
		}
	}
	return strings.Join(pairs, "&"), nil
}

// fieldOrder returns the keys of vals in the declaration order of the
// fields of t that produced them. Nested structs are flattened the way the
// schema encoder flattens them. Keys not traced to a field follow, sorted.
func fieldOrder(t reflect.Type, vals url.Values) []string {
	keys := make([]string, 0, len(vals))
	seen := make(map[string]bool, len(vals))
	var walk func(t reflect.Type)
	walk = func(t reflect.Type) {
		for i := range t.NumField() {
			f := t.Field(i)
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				continue
			}
			if name == "" {
				name = f.Name
			}
			if _, ok := vals[name]; ok && !seen[name] {
				seen[name] = true
				keys = append(keys, name)
			}
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && ft != t {
				walk(ft)
			}
		}
	}
	walk(t)
	for _, k := range slices.Sorted(maps.Keys(vals)) {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

// applyHeaders applies header lines in order. A later line replaces an
// earlier one with the same name; a line without a colon removes the
// header.
func applyHeaders(h http.Header, lines []string) {
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !ok {
			h.Del(name)
			continue
		}
		h.Set(name, strings.TrimSpace(value))
	}
}

// encodeBody serializes the body parameter and returns its default content
// type. Header metadata may override the content type afterwards.
func (c *Client) encodeBody(req *restive.RequestInfo) (io.Reader, string, error) {
	if req.Body == nil {
		return nil, "", nil
	}
	v := req.Body.Value
	if c.validate {
		if err := validateBody(v); err != nil {
			return nil, "", fmt.Errorf("httpexec: %s: invalid body: %w", req.Endpoint, err)
		}
	}

	switch req.Body.Method {
	case restive.BodyForm:
		vals, err := formValues(v)
		if err != nil {
			return nil, "", fmt.Errorf("httpexec: %s: encoding form body: %w", req.Endpoint, err)
		}
		return strings.NewReader(vals.Encode()), "application/x-www-form-urlencoded", nil
	case restive.BodyRaw:
		r, err := rawBody(v)
		if err != nil {
			return nil, "", fmt.Errorf("httpexec: %s: %w", req.Endpoint, err)
		}
		return r, "application/octet-stream", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("httpexec: %s: encoding JSON body: %w", req.Endpoint, err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func validateBody(v any) error {
	rv, ok := deref(v)
	if !ok || rv.Kind() != reflect.Struct {
		return nil
	}
	err := validate.Struct(rv.Interface())
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}
	return err
}

func formValues(v any) (url.Values, error) {
	switch v := v.(type) {
	case nil:
		return url.Values{}, nil
	case url.Values:
		return v, nil
	case map[string]string:
		vals := url.Values{}
		for k, s := range v {
			vals.Set(k, s)
		}
		return vals, nil
	case map[string][]string:
		return url.Values(v), nil
	}
	rv, ok := deref(v)
	if !ok {
		return url.Values{}, nil
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("form body must be a struct, map or url.Values, got %T", v)
	}
	vals := url.Values{}
	if err := schemaEncoder.Encode(rv.Interface(), vals); err != nil {
		return nil, err
	}
	return vals, nil
}

func rawBody(v any) (io.Reader, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(v), nil
	case string:
		return strings.NewReader(v), nil
	case io.Reader:
		return v, nil
	default:
		return nil, fmt.Errorf("raw body must be []byte, string or io.Reader, got %T", v)
	}
}

// deref follows pointers and interfaces. It reports false for nil.
func deref(v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, true
}

func isText(rv reflect.Value) bool {
	if rv.Type().Implements(textMarshalerType) {
		return true
	}
	return rv.CanAddr() && reflect.PointerTo(rv.Type()).Implements(textMarshalerType)
}

var textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()

// scalar formats a single value for a path or query string.
func scalar(v any) (string, error) {
	rv, ok := deref(v)
	if !ok {
		return "", nil
	}
	v = rv.Interface()
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case encoding.TextMarshaler:
		b, err := v.MarshalText()
		if err != nil {
			return "", err
		}
		return string(b), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	if rv.CanAddr() {
		if tm, ok := rv.Addr().Interface().(encoding.TextMarshaler); ok {
			b, err := tm.MarshalText()
			if err != nil {
				return "", err
			}
			return string(b), nil
		}
	}
	switch rv.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.Func, reflect.Chan:
		return "", fmt.Errorf("cannot format %T as a single value", v)
	}
	return fmt.Sprint(v), nil
}

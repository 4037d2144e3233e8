package meta

import (
	"fmt"
	"slices"
	"strings"
)

// PathMismatchError reports the symmetric difference between a template's
// placeholders and its path-role parameters.
type PathMismatchError struct {
	Template string
	Unbound  []string // placeholders with no path parameter
	Unused   []string // path parameters with no placeholder
}

func (e *PathMismatchError) Error() string {
	var parts []string
	if len(e.Unbound) > 0 {
		parts = append(parts, "no parameter for {"+strings.Join(e.Unbound, "}, {")+"}")
	}
	if len(e.Unused) > 0 {
		parts = append(parts, "no placeholder for "+strings.Join(e.Unused, ", "))
	}
	return fmt.Sprintf("%s in %q: %s", ErrPathParameterMismatch, e.Template, strings.Join(parts, "; "))
}

func (e *PathMismatchError) Is(target error) bool {
	return target == ErrPathParameterMismatch
}

// Placeholders returns the distinct {name} placeholders of the path portion
// of a template, in order of first appearance. Anything after '?' is a
// literal query string and is not scanned.
func Placeholders(template string) []string {
	path, _, _ := strings.Cut(template, "?")
	var names []string
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
		if name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
		path = path[open+end+1:]
	}
	return names
}

// ValidatePath checks that every placeholder of template has exactly one
// path-role parameter and every path-role parameter has a placeholder.
func ValidatePath(template string, params []ParameterDescriptor) error {
	declared := make(map[string]bool)
	var order []string
	for _, p := range params {
		if p.Role != RolePath {
			continue
		}
		key := p.Key()
		if declared[key] {
			return fmt.Errorf("%w: %q", ErrDuplicatePathParameter, key)
		}
		declared[key] = true
		order = append(order, key)
	}

	placeholders := Placeholders(template)
	mismatch := &PathMismatchError{Template: template}
	for _, name := range placeholders {
		if !declared[name] {
			mismatch.Unbound = append(mismatch.Unbound, name)
		}
	}
	for _, name := range order {
		if !slices.Contains(placeholders, name) {
			mismatch.Unused = append(mismatch.Unused, name)
		}
	}
	if len(mismatch.Unbound) > 0 || len(mismatch.Unused) > 0 {
		return mismatch
	}
	return nil
}

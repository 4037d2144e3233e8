// Package discover finds restive service structs by type.
//
// It scans a Go package for struct types that embed restive.Service and
// compiles every func field through the same metadata rules restive.New
// applies at run time, using go/types in place of reflection.
package discover

import (
	"fmt"
	"go/token"
	"go/types"
	"path/filepath"
	"reflect"
	"slices"

	"github.com/broady/restive/internal/meta"
	"golang.org/x/tools/go/packages"
)

const restivePath = "github.com/broady/restive"

// Endpoint is one func field of a service struct.
type Endpoint struct {
	Name string
	Pos  token.Position
	Desc *meta.MethodDescriptor // nil when Err is set
	Err  error
}

// Service is a struct type embedding restive.Service.
type Service struct {
	Name      string
	Pos       token.Position
	Endpoints []Endpoint
	Err       error // service-level tag error
}

// Result contains discovered services and package info.
type Result struct {
	Services    []Service
	PackagePath string
	ModulePath  string
	ModuleDir   string // directory containing go.mod
	Dir         string // directory containing the package
}

// Errors returns the number of services and endpoints that failed to
// compile.
func (r *Result) Errors() int {
	n := 0
	for _, s := range r.Services {
		if s.Err != nil {
			n++
		}
		for _, e := range s.Endpoints {
			if e.Err != nil {
				n++
			}
		}
	}
	return n
}

// Find scans a Go package for service structs.
//
// The pattern follows go command semantics:
//   - "." for current directory
//   - Import path like "github.com/foo/bar"
//   - Absolute or relative directory path
func Find(pattern string) (*Result, error) {
	return FindDir(pattern, "")
}

// FindDir is like Find but allows specifying a working directory.
func FindDir(pattern, dir string) (*Result, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles |
			packages.NeedTypes | packages.NeedModule,
		Dir: dir,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}

	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found matching %q", pattern)
	}

	if len(pkgs) > 1 {
		return nil, fmt.Errorf("multiple packages found matching %q; specify a single package", pattern)
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors[0])
	}

	result := &Result{
		PackagePath: pkg.PkgPath,
	}

	if pkg.Module != nil {
		result.ModulePath = pkg.Module.Path
		result.ModuleDir = pkg.Module.Dir
	}

	if len(pkg.GoFiles) > 0 {
		result.Dir = filepath.Dir(pkg.GoFiles[0])
	}

	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || tn.IsAlias() {
			continue
		}
		st, ok := tn.Type().Underlying().(*types.Struct)
		if !ok {
			continue
		}
		marker, restive := serviceMarker(st)
		if marker < 0 {
			continue
		}
		svc := compileService(pkg.Fset, tn, st, marker, restive)
		result.Services = append(result.Services, svc)
	}

	return result, nil
}

// serviceMarker returns the index of the embedded restive.Service field and
// the restive package it came from, or -1.
func serviceMarker(st *types.Struct) (int, *types.Package) {
	for i := range st.NumFields() {
		f := st.Field(i)
		if !f.Embedded() {
			continue
		}
		named, ok := f.Type().(*types.Named)
		if !ok {
			continue
		}
		obj := named.Obj()
		if obj.Pkg() != nil && obj.Pkg().Path() == restivePath && obj.Name() == "Service" {
			return i, obj.Pkg()
		}
	}
	return -1, nil
}

func compileService(fset *token.FileSet, tn *types.TypeName, st *types.Struct, marker int, restive *types.Package) Service {
	svc := Service{
		Name: tn.Name(),
		Pos:  fset.Position(tn.Pos()),
	}
	if _, err := meta.CompileService(tn.Name(), reflect.StructTag(st.Tag(marker))); err != nil {
		svc.Err = err
	}

	svc.Endpoints = compileFields(fset, st, nil, restive)
	return svc
}

// compileFields compiles the func fields of st and of the structs it embeds
// by value, matching the fields restive.New binds.
func compileFields(fset *token.FileSet, st *types.Struct, parent []int, restive *types.Package) []Endpoint {
	var endpoints []Endpoint
	for i := range st.NumFields() {
		f := st.Field(i)
		index := append(slices.Clip(parent), i)

		if f.Embedded() {
			if isNamed(f.Type(), restivePath, "Service") {
				continue
			}
			if inner, ok := f.Type().Underlying().(*types.Struct); ok {
				endpoints = append(endpoints, compileFields(fset, inner, index, restive)...)
				continue
			}
			if ptr, ok := f.Type().(*types.Pointer); ok {
				if inner, ok := ptr.Elem().Underlying().(*types.Struct); ok {
					if hasFuncFields(inner) {
						endpoints = append(endpoints, Endpoint{
							Name: f.Name(),
							Pos:  fset.Position(f.Pos()),
							Err:  fmt.Errorf("%w: embedded %s holds endpoint fields; embed it by value", meta.ErrMalformedTag, f.Type()),
						})
					}
					continue
				}
			}
		}

		sig, ok := f.Type().Underlying().(*types.Signature)
		if !ok {
			continue
		}
		tag := reflect.StructTag(st.Tag(i))
		_, tagged := tag.Lookup(meta.TagRoute)
		if !f.Exported() {
			if tagged {
				endpoints = append(endpoints, Endpoint{
					Name: f.Name(),
					Pos:  fset.Position(f.Pos()),
					Err:  fmt.Errorf("endpoint field %s is unexported and cannot be set", f.Name()),
				})
			}
			continue
		}

		inputs := make([]meta.ParamInput, sig.Params().Len())
		for j := range inputs {
			inputs[j] = meta.ParamInput{IsContext: isContext(sig.Params().At(j).Type())}
		}

		desc, err := meta.CompileMethod(meta.MethodInput{
			Name:   f.Name(),
			Index:  index,
			Tag:    tag,
			Params: inputs,
			Shape:  returnShape(sig, restive),
		})
		endpoints = append(endpoints, Endpoint{
			Name: f.Name(),
			Pos:  fset.Position(f.Pos()),
			Desc: desc,
			Err:  err,
		})
	}
	return endpoints
}

func hasFuncFields(st *types.Struct) bool {
	for i := range st.NumFields() {
		f := st.Field(i)
		switch u := f.Type().Underlying().(type) {
		case *types.Signature:
			return true
		case *types.Struct:
			if f.Embedded() && hasFuncFields(u) {
				return true
			}
		}
	}
	return false
}

// returnShape mirrors the reflection-based classification in restive.
func returnShape(sig *types.Signature, restive *types.Package) meta.ReturnShape {
	res := sig.Results()
	n := res.Len()
	if n == 0 || n > 2 || !isError(res.At(n-1).Type()) {
		return meta.ShapeUnsupported
	}
	if n == 1 {
		return meta.ShapeVoid
	}

	r := res.At(0).Type()
	switch {
	case isNamedPtr(r, "net/http", "Response"):
		return meta.ShapeRawMessage
	case types.Identical(r, types.Typ[types.String]):
		return meta.ShapeRawText
	case isWrapped(r, restive):
		return meta.ShapeWrapped
	default:
		return meta.ShapeTyped
	}
}

// isWrapped reports whether *T has the unexported methods that make
// restive.Response[T] a wrapped result.
func isWrapped(t types.Type, restive *types.Package) bool {
	if restive == nil {
		return false
	}
	ptr, ok := t.(*types.Pointer)
	if !ok {
		ptr = types.NewPointer(t)
	}
	if _, isStruct := ptr.Elem().Underlying().(*types.Struct); !isStruct {
		return false
	}
	mset := types.NewMethodSet(ptr)
	return mset.Lookup(restive, "contentPtr") != nil && mset.Lookup(restive, "setMeta") != nil
}

func isError(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}

func isContext(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == "context" && obj.Name() == "Context"
}

func isNamedPtr(t types.Type, pkgPath, name string) bool {
	ptr, ok := t.(*types.Pointer)
	return ok && isNamed(ptr.Elem(), pkgPath, name)
}

func isNamed(t types.Type, pkgPath, name string) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == pkgPath && obj.Name() == name
}

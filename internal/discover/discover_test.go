package discover

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/broady/restive/internal/meta"
)

// setupModule writes files into a temporary module that depends on this
// checkout of restive.
func setupModule(t *testing.T, files map[string]string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping go/packages load in short mode")
	}
	t.Setenv("GOWORK", "off")

	dir := t.TempDir()

	restiveRoot, err := filepath.Abs("../..")
	if err != nil {
		t.Fatal(err)
	}

	goMod := `module test

go 1.25

require github.com/broady/restive v0.0.0

replace github.com/broady/restive => ` + restiveRoot + `
`
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(goMod), 0644); err != nil {
		t.Fatal(err)
	}

	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cmd := exec.Command("go", "mod", "tidy")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOWORK=off")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("go mod tidy: %v\n%s", err, out)
	}
	return dir
}

func TestFind(t *testing.T) {
	dir := setupModule(t, map[string]string{
		"api.go": `package api

import (
	"context"
	"net/http"

	"github.com/broady/restive"
)

type User struct {
	ID string
}

type Label string

type Users struct {
	restive.Service ` + "`headers:\"Accept: application/json\"`" + `

	Get    func(ctx context.Context, id string) (*User, error)                  ` + "`rest:\"GET /users/{id}\" params:\"ctx, id path\"`" + `
	Create func(ctx context.Context, u User) (*restive.Response[User], error)  ` + "`rest:\"POST /users\" params:\"ctx, u body\"`" + `
	Update func(ctx context.Context, u User) (restive.Response[User], error)   ` + "`rest:\"PUT /users\" params:\"ctx, u body\"`" + `
	Delete func(ctx context.Context, id string) error                          ` + "`rest:\"DELETE /users/{id}\" params:\"ctx, id path\"`" + `
	Avatar func(ctx context.Context) (*http.Response, error)                   ` + "`rest:\"GET /avatar\"`" + `
	Bio    func(ctx context.Context) (string, error)                           ` + "`rest:\"GET /bio\"`" + `
	Label  func(ctx context.Context) (Label, error)                            ` + "`rest:\"GET /label\"`" + `

	Name string
}

// NotAService has func fields but no marker.
type NotAService struct {
	Get func() error
}
`,
	})

	result, err := FindDir(".", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PackagePath != "test" {
		t.Errorf("expected package path test, got %q", result.PackagePath)
	}
	if len(result.Services) != 1 {
		t.Fatalf("expected 1 service, got %d", len(result.Services))
	}
	svc := result.Services[0]
	if svc.Name != "Users" {
		t.Errorf("expected Users, got %s", svc.Name)
	}
	if result.Errors() != 0 {
		for _, e := range svc.Endpoints {
			if e.Err != nil {
				t.Errorf("%s: %v", e.Name, e.Err)
			}
		}
	}

	want := map[string]meta.ReturnShape{
		"Get":    meta.ShapeTyped,
		"Create": meta.ShapeWrapped,
		"Update": meta.ShapeWrapped,
		"Delete": meta.ShapeVoid,
		"Avatar": meta.ShapeRawMessage,
		"Bio":    meta.ShapeRawText,
		"Label":  meta.ShapeTyped,
	}
	if len(svc.Endpoints) != len(want) {
		t.Errorf("expected %d endpoints, got %d", len(want), len(svc.Endpoints))
	}
	for _, e := range svc.Endpoints {
		if e.Desc == nil {
			continue
		}
		if e.Desc.Shape != want[e.Name] {
			t.Errorf("%s: shape %v, want %v", e.Name, e.Desc.Shape, want[e.Name])
		}
	}
	if get := svc.Endpoints[0]; get.Desc == nil || get.Desc.Verb != "GET" || get.Desc.Path != "/users/{id}" {
		t.Errorf("unexpected Get descriptor: %+v", get.Desc)
	}
	if !strings.HasSuffix(svc.Pos.Filename, "api.go") {
		t.Errorf("expected position in api.go, got %s", svc.Pos)
	}
}

func TestFind_Errors(t *testing.T) {
	dir := setupModule(t, map[string]string{
		"api.go": `package api

import (
	"context"

	"github.com/broady/restive"
)

type Broken struct {
	restive.Service ` + "`status:\"sometimes\"`" + `

	NoRoute  func(ctx context.Context) error
	Mismatch func(ctx context.Context, userId string) error             ` + "`rest:\"GET /users/{id}\" params:\"ctx, userId path\"`" + `
	Bodies   func(ctx context.Context, a, b string) error               ` + "`rest:\"POST /x\" params:\"ctx, a body, b body\"`" + `
	Shape    func(ctx context.Context) (string, int, error)             ` + "`rest:\"GET /x\"`" + `
	Contexts func(a, b context.Context) error                           ` + "`rest:\"GET /x\" params:\"a, b\"`" + `
	hidden   func(ctx context.Context) error                            ` + "`rest:\"GET /x\"`" + `
}
`,
	})

	result, err := FindDir(".", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Services) != 1 {
		t.Fatalf("expected 1 service, got %d", len(result.Services))
	}
	svc := result.Services[0]
	if !errors.Is(svc.Err, meta.ErrMalformedTag) {
		t.Errorf("expected malformed service tag, got %v", svc.Err)
	}

	want := map[string]error{
		"NoRoute":  meta.ErrMissingRoute,
		"Mismatch": meta.ErrPathParameterMismatch,
		"Bodies":   meta.ErrMultipleBodyParameters,
		"Shape":    meta.ErrUnsupportedReturnShape,
		"Contexts": meta.ErrMultipleCancellationParameters,
		"hidden":   nil,
	}
	if len(svc.Endpoints) != len(want) {
		t.Fatalf("expected %d endpoints, got %d", len(want), len(svc.Endpoints))
	}
	for _, e := range svc.Endpoints {
		if e.Err == nil {
			t.Errorf("%s: expected error", e.Name)
			continue
		}
		if target := want[e.Name]; target != nil && !errors.Is(e.Err, target) {
			t.Errorf("%s: got %v, want %v", e.Name, e.Err, target)
		}
	}
	if result.Errors() != len(want)+1 {
		t.Errorf("expected %d errors, got %d", len(want)+1, result.Errors())
	}
}

func TestFind_Embedded(t *testing.T) {
	dir := setupModule(t, map[string]string{
		"api.go": `package api

import (
	"context"

	"github.com/broady/restive"
)

type common struct {
	Ping func(ctx context.Context) error ` + "`rest:\"GET /ping\"`" + `
	Bad  func(ctx context.Context) error ` + "`rest:\"GET /users/{id}\"`" + `
}

type Extra struct {
	Stats func(ctx context.Context) error ` + "`rest:\"GET /stats\"`" + `
}

type Users struct {
	restive.Service
	common
	*Extra

	Get func(ctx context.Context, id string) error ` + "`rest:\"GET /users/{id}\" params:\"ctx, id path\"`" + `
}
`,
	})

	result, err := FindDir(".", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Services) != 1 {
		t.Fatalf("expected 1 service, got %d", len(result.Services))
	}
	svc := result.Services[0]

	want := map[string]error{
		"Ping":  nil,
		"Bad":   meta.ErrPathParameterMismatch,
		"Extra": meta.ErrMalformedTag,
		"Get":   nil,
	}
	if len(svc.Endpoints) != len(want) {
		t.Fatalf("expected %d endpoints, got %d", len(want), len(svc.Endpoints))
	}
	for _, e := range svc.Endpoints {
		target, ok := want[e.Name]
		if !ok {
			t.Errorf("unexpected endpoint %s", e.Name)
			continue
		}
		if target == nil {
			if e.Err != nil {
				t.Errorf("%s: unexpected error %v", e.Name, e.Err)
			}
			continue
		}
		if !errors.Is(e.Err, target) {
			t.Errorf("%s: got %v, want %v", e.Name, e.Err, target)
		}
	}
	if ping := svc.Endpoints[0]; ping.Desc == nil || !slices.Equal(ping.Desc.Index, []int{1, 0}) {
		t.Errorf("expected Ping at index [1 0], got %+v", ping.Desc)
	}
}

func TestFind_NoServices(t *testing.T) {
	dir := setupModule(t, map[string]string{
		"main.go": `package main

func main() {}
`,
	})

	result, err := FindDir(".", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Services) != 0 {
		t.Errorf("expected no services, got %d", len(result.Services))
	}
}

package check

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/broady/restive/internal/discover"
)

type Cmd struct {
	Package string `help:"Package to scan (default: current directory)." short:"p" default:"."`
	Quiet   bool   `help:"Only print errors." short:"q"`

	out io.Writer `kong:"-"`
}

func (c *Cmd) Run() error {
	result, err := discover.Find(c.Package)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	return c.report(result)
}

// report prints one line per service and endpoint and fails if any of them
// did not compile.
func (c *Cmd) report(result *discover.Result) error {
	out := c.out
	if out == nil {
		out = os.Stdout
	}

	if len(result.Services) == 0 {
		return errors.New("no services found\n\nEmbed restive.Service in a struct of endpoint funcs:\n\n    type Users struct {\n        restive.Service\n        Get func(ctx context.Context, id string) (*User, error) `rest:\"GET /users/{id}\" params:\"ctx, id path\"`\n    }")
	}

	var endpoints int
	for _, svc := range result.Services {
		if svc.Err != nil {
			fmt.Fprintf(out, "✗ %s: %v (%s)\n", svc.Name, svc.Err, svc.Pos)
		} else if !c.Quiet {
			fmt.Fprintf(out, "✓ %s\n", svc.Name)
		}
		for _, e := range svc.Endpoints {
			endpoints++
			if e.Err != nil {
				fmt.Fprintf(out, "  ✗ %s.%s: %v (%s)\n", svc.Name, e.Name, e.Err, e.Pos)
				continue
			}
			if !c.Quiet {
				fmt.Fprintf(out, "  ✓ %s %s %s (%s)\n", e.Name, e.Desc.Verb, e.Desc.Path, e.Desc.Shape)
			}
		}
	}

	if n := result.Errors(); n > 0 {
		return fmt.Errorf("%d of %d services and endpoints failed", n, len(result.Services)+endpoints)
	}
	if !c.Quiet {
		fmt.Fprintf(out, "✓ %d services, %d endpoints\n", len(result.Services), endpoints)
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/broady/restive/cmd/restive/internal/check"
)

type CLI struct {
	Version VersionCmd `cmd:"" help:"Print version information."`
	Check   check.Cmd  `cmd:"" help:"Validate service structs without running them."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("restive"),
		kong.Description("Restive CLI for checking declarative HTTP clients."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

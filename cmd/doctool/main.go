package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/doctool/cmd/doctool/commands"
	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
	"git.home.luguber.info/inful/doctool/internal/version"
)

func main() {
	var cli commands.CLI
	globals := &commands.Global{}
	ctx := kong.Parse(&cli,
		kong.Name("doctool"),
		kong.Description("Generate cross-referenced API documentation from Objective-C headers."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Get().String()},
		kong.Bind(globals),
	)

	err := ctx.Run(globals, &cli)
	if err == nil {
		return
	}
	var exit *commands.ExitError
	if errors.As(err, &exit) {
		_, _ = fmt.Fprintln(os.Stderr, exit.Error())
		os.Exit(exit.Code)
	}
	ferrors.NewCLIErrorAdapter(cli.Verbose, globals.Logger).HandleError(err)
}

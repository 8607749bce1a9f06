package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/doctool/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory for the generated doctool.yaml (defaults to --config)"`
}

func (i *InitCmd) Run(globals *Global, root *CLI) error {
	path := root.Config
	if i.Output != "" {
		path = filepath.Join(i.Output, "doctool.yaml")
	}
	globals.Logger.Info("Initializing configuration", "path", path, "force", i.Force)
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(globals.Out, "Wrote example configuration to %s\n", path)
	return nil
}

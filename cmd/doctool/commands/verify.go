package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/doctool/internal/config"
	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
	"git.home.luguber.info/inful/doctool/internal/generator/docset"
	"git.home.luguber.info/inful/doctool/internal/linkverify"
)

// VerifyCmd implements the 'verify' command.
type VerifyCmd struct {
	Dirs []string `arg:"" optional:"" name:"dir" help:"HTML trees to check (defaults to the configured outputs)"`
}

func (v *VerifyCmd) Run(globals *Global, root *CLI) error {
	dirs := v.Dirs
	concurrency := 0
	if len(dirs) == 0 {
		cfg, err := config.Load(root.Config)
		if err != nil {
			return err
		}
		dirs = outputTrees(cfg)
		concurrency = cfg.Concurrency
	}

	broken := 0
	for _, dir := range dirs {
		res, err := linkverify.VerifyTree(context.Background(), dir, linkverify.Options{Concurrency: concurrency, Logger: globals.Logger})
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot verify links").
				WithContext("dir", dir).Build()
		}
		_, _ = fmt.Fprintf(globals.Out, "%s: %d pages, %d links, %d broken\n", dir, res.Pages, res.Links, len(res.Broken))
		for _, b := range res.Broken {
			_, _ = fmt.Fprintf(globals.Out, "  %s\n", b)
		}
		broken += len(res.Broken)
	}
	if broken > 0 {
		return ferrors.ValidationError(fmt.Sprintf("%d broken links", broken)).Build()
	}
	return nil
}

// outputTrees lists the HTML roots the configuration generates.
func outputTrees(cfg *config.Configuration) []string {
	var dirs []string
	if cfg.HTMLOutputEnabled {
		dirs = append(dirs, cfg.HTMLOutputPath())
	}
	if cfg.DocSetOutputEnabled {
		dirs = append(dirs, docset.DocumentsPath(cfg.DocSetBundlePath()))
	}
	return dirs
}

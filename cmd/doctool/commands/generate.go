package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/doctool/internal/config"
	"git.home.luguber.info/inful/doctool/internal/parsecache"
	"git.home.luguber.info/inful/doctool/internal/pipeline"
	"git.home.luguber.info/inful/doctool/internal/report"
)

// GenerateCmd implements the 'generate' command.
type GenerateCmd struct {
	NoCache     bool `name:"no-cache" help:"Parse every file, ignoring the parse cache"`
	VerifyLinks bool `name:"verify-links" help:"Check internal links after generation"`
	Strict      bool `help:"Exit with status 3 when the run recorded any issue"`
}

func (g *GenerateCmd) Run(globals *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if g.VerifyLinks {
		cfg.VerifyLinks = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := RunGenerate(ctx, globals, root, cfg, g.NoCache)
	if err != nil {
		return err
	}
	return strictResult(g.Strict, rep)
}

// RunGenerate performs one run for cfg with a freshly opened cache and prints its summary.
func RunGenerate(ctx context.Context, globals *Global, root *CLI, cfg *config.Configuration, noCache bool) (*report.Report, error) {
	cache, preflight := openCache(cfg, noCache, globals.Logger)
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				globals.Logger.Warn("Failed to close parse cache", "error", err)
			}
		}()
	}
	return runOnce(ctx, globals, root, cfg, cache, preflight)
}

func runOnce(ctx context.Context, globals *Global, root *CLI, cfg *config.Configuration, cache *parsecache.Cache, preflight []report.Issue) (*report.Report, error) {
	runner := &pipeline.Runner{
		FrontEnd:  globals.frontEnd(cfg),
		Cache:     cache,
		Recorder:  root.Recorder(false),
		Logger:    globals.Logger,
		Preflight: preflight,
	}
	rep, err := runner.Run(ctx, cfg)
	root.FlushMetrics(globals.Logger)
	printReport(globals.Out, rep)
	return rep, err
}

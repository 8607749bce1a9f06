package pipeline

import (
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/doctool/internal/config"
	"git.home.luguber.info/inful/doctool/internal/filter"
	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
	"git.home.luguber.info/inful/doctool/internal/generator/docset"
	"git.home.luguber.info/inful/doctool/internal/generator/htmlgen"
	"git.home.luguber.info/inful/doctool/internal/vcs"
)

// BuildPlan is an immutable execution plan derived from config.
// It captures the resolved inputs of every stage so a run does not consult config again.
type BuildPlan struct {
	Config *config.Configuration
	Filter filter.Options

	HTML   *htmlgen.Options
	DocSet *docset.Options
}

// BuildPlanBuilder constructs a BuildPlan.
type BuildPlanBuilder struct {
	plan   BuildPlan
	logger *slog.Logger
	err    error
}

// NewBuildPlanBuilder creates a builder for cfg.
func NewBuildPlanBuilder(cfg *config.Configuration, logger *slog.Logger) *BuildPlanBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &BuildPlanBuilder{plan: BuildPlan{Config: cfg}, logger: logger}
}

// ResolveFilters compiles the exclude patterns and visibility switches.
func (b *BuildPlanBuilder) ResolveFilters() *BuildPlanBuilder {
	if b.err != nil {
		return b
	}
	opts, err := filter.FromConfig(b.plan.Config)
	if err != nil {
		b.err = ferrors.WrapError(err, ferrors.CategoryConfig, "invalid excludePatterns").Fatal().Build()
		return b
	}
	b.plan.Filter = opts
	return b
}

// ResolveOutputs prepares generator options for the enabled outputs. An unset bundle
// version is taken from the version control state of the first source path.
func (b *BuildPlanBuilder) ResolveOutputs() *BuildPlanBuilder {
	if b.err != nil {
		return b
	}
	cfg := b.plan.Config
	base := htmlgen.Options{
		FrameworkName:        cfg.FrameworkName,
		TemplatesDir:         cfg.TemplatesDirectory,
		ShowInternalComments: cfg.ShowInternalComments,
		Concurrency:          cfg.Concurrency,
		Logger:               b.logger,
	}
	if cfg.HTMLOutputEnabled {
		html := base
		html.OutputDir = cfg.HTMLOutputPath()
		b.plan.HTML = &html
	}
	if cfg.DocSetOutputEnabled {
		ds := docset.Options{
			Options:       base,
			BundleID:      cfg.DocSetBundleID,
			BundleName:    cfg.DocSetBundleName,
			BundleVersion: cfg.DocSetBundleVersion,
			PublisherID:   cfg.DocSetPublisherIdentifier,
			PublisherName: cfg.DocSetPublisherName,
		}
		ds.OutputDir = cfg.OutputPath
		if ds.BundleVersion == "" && len(cfg.Paths) > 0 {
			ds.BundleVersion = vcs.BundleVersion("", versionDir(cfg.Paths[0]), b.logger)
		}
		b.plan.DocSet = &ds
	}
	return b
}

// Build returns the constructed BuildPlan.
func (b *BuildPlanBuilder) Build() (*BuildPlan, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &b.plan, nil
}

// versionDir is the directory to look for a repository from; source paths may be files.
func versionDir(p string) string {
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return filepath.Dir(p)
	}
	return p
}

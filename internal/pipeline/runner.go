// Package pipeline runs the documentation stages in order: discover, parse, resolve,
// filter, assign identity, generate and optionally verify links.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/doctool/internal/config"
	"git.home.luguber.info/inful/doctool/internal/decl"
	"git.home.luguber.info/inful/doctool/internal/filter"
	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
	"git.home.luguber.info/inful/doctool/internal/frontend"
	"git.home.luguber.info/inful/doctool/internal/generator"
	"git.home.luguber.info/inful/doctool/internal/generator/docset"
	"git.home.luguber.info/inful/doctool/internal/generator/htmlgen"
	"git.home.luguber.info/inful/doctool/internal/identity"
	"git.home.luguber.info/inful/doctool/internal/linkverify"
	"git.home.luguber.info/inful/doctool/internal/logfields"
	"git.home.luguber.info/inful/doctool/internal/metrics"
	"git.home.luguber.info/inful/doctool/internal/model"
	"git.home.luguber.info/inful/doctool/internal/parsecache"
	"git.home.luguber.info/inful/doctool/internal/report"
	"git.home.luguber.info/inful/doctool/internal/resolver"
	"git.home.luguber.info/inful/doctool/internal/source"
	"git.home.luguber.info/inful/doctool/internal/util/sets"
)

// Runner executes one documentation run per call to Run. Cache may be nil to parse every
// file; it is shared across runs in watch mode.
type Runner struct {
	FrontEnd frontend.FrontEnd
	Cache    *parsecache.Cache
	Recorder metrics.Recorder
	Logger   *slog.Logger
	// Preflight issues are added to every report before the first stage, e.g. a cache that
	// could not be opened.
	Preflight []report.Issue
}

type run struct {
	*Runner
	ctx  context.Context
	cfg  *config.Configuration
	plan *BuildPlan
	rep  *report.Report

	files []source.File
	units []decl.Unit
	lib   *model.Library
	roots []string
}

// Run executes every stage for cfg and returns the report, also when err is non-nil.
//
// Problems limited to a file or node are recorded on the report and the run continues.
// Configuration errors, errors that stop a stage as a whole, and cancellation are returned.
// The report is persisted to cfg.ReportPath when set.
func (r *Runner) Run(ctx context.Context, cfg *config.Configuration) (*report.Report, error) {
	if r.Recorder == nil {
		r.Recorder = metrics.NoopRecorder{}
	}
	if r.Logger == nil {
		r.Logger = slog.Default()
	}
	start := time.Now()
	rep := report.New()
	for _, issue := range r.Preflight {
		rep.Add(issue)
	}

	failed, err := r.execute(ctx, cfg, rep)
	canceled := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	switch {
	case canceled:
		rep.Warn(report.IssueCanceled, failed, "", "run canceled before completion")
	case err != nil:
		rep.Add(abortIssue(failed, err))
	}
	rep.Finish(canceled)
	r.Recorder.IncRunOutcome(string(rep.Outcome))
	r.Recorder.ObserveRunDuration(time.Since(start))

	if cfg != nil && cfg.ReportPath != "" {
		if perr := rep.Persist(cfg.ReportPath); perr != nil {
			r.Logger.Warn("Cannot persist run report", logfields.Path(cfg.ReportPath), logfields.Error(perr))
		}
	}
	r.Logger.Info("Run finished", slog.String("outcome", string(rep.Outcome)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return rep, err
}

// execute runs the enabled stages in order. On error it also returns the stage that was
// running, or "" when the run stopped before the first stage.
func (r *Runner) execute(ctx context.Context, cfg *config.Configuration, rep *report.Report) (report.Stage, error) {
	if cfg == nil {
		return "", ferrors.ConfigError("configuration is required").Build()
	}
	if r.FrontEnd == nil {
		return "", ferrors.InternalError("no front end configured").Build()
	}
	plan, err := NewBuildPlanBuilder(cfg, r.Logger).ResolveFilters().ResolveOutputs().Build()
	if err != nil {
		return "", err
	}
	x := &run{Runner: r, ctx: ctx, cfg: cfg, plan: plan, rep: rep}

	stages := []struct {
		name    report.Stage
		enabled bool
		fn      func() error
	}{
		{report.StageDiscover, true, x.discover},
		{report.StageParse, true, x.parse},
		{report.StageResolve, true, x.resolve},
		{report.StageFilter, true, x.filter},
		{report.StageAssign, true, x.assign},
		{report.StageGenerateHTML, plan.HTML != nil, x.generateHTML},
		{report.StageGenerateDocSet, plan.DocSet != nil, x.generateDocSet},
		{report.StageVerifyLinks, cfg.VerifyLinks, x.verifyLinks},
	}
	for _, s := range stages {
		if !s.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return s.name, err
		}
		if err := x.stage(s.name, s.fn); err != nil {
			return s.name, err
		}
	}
	x.pruneCache()
	return "", nil
}

// abortIssue records the error that stopped a run. The subject and, before the first
// stage, the stage come from the error context.
func abortIssue(stage report.Stage, err error) report.Issue {
	issue := report.Issue{
		Code:     report.IssueRunAborted,
		Stage:    stage,
		Severity: report.SeverityError,
		Message:  err.Error(),
	}
	if ce, ok := ferrors.AsClassified(err); ok {
		issue.Subject = ce.Subject()
		if s, ok := ce.Context().GetString(ferrors.ContextStage); ok && issue.Stage == "" {
			issue.Stage = report.Stage(s)
		}
	}
	return issue
}

// stage times fn and records its result label: warning when fn added issues.
func (x *run) stage(name report.Stage, fn func() error) error {
	start := time.Now()
	before := x.rep.IssueCount()
	err := fn()
	d := time.Since(start)

	x.rep.ObserveStage(name, d)
	x.Recorder.ObserveStageDuration(string(name), d)
	result := metrics.ResultSuccess
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		result = metrics.ResultCanceled
	case err != nil:
		result = metrics.ResultFatal
	case x.rep.IssueCount() > before:
		result = metrics.ResultWarning
	}
	x.Recorder.IncStageResult(string(name), result)

	if err != nil {
		x.Logger.Error("Stage failed", logfields.Stage(string(name)), logfields.Error(err),
			logfields.Category(string(ferrors.GetCategory(err))))
		return err
	}
	x.Logger.Debug("Stage completed", logfields.Stage(string(name)), logfields.DurationMS(float64(d.Milliseconds())))
	return nil
}

func (x *run) discover() error {
	files, err := source.NewDiscovery(x.cfg.Paths, x.cfg.FileTypes, x.plan.Filter.Exclude, x.Logger).Discover(x.ctx)
	if err != nil {
		return err
	}
	x.files = files
	return nil
}

func (x *run) parse() error {
	p := source.NewParser(x.FrontEnd, x.Cache, source.ParserOptions{
		Arguments:   x.cfg.CompilerArguments,
		Concurrency: x.cfg.Concurrency,
		Recorder:    x.Recorder,
		Logger:      x.Logger,
	})
	units, err := p.ParseAll(x.ctx, x.files, x.rep)
	if err != nil {
		return err
	}
	x.units = units
	return nil
}

func (x *run) resolve() error {
	lib, err := resolver.New(nil, resolver.Options{InheritDocumentation: x.cfg.InheritsDocumentation()}, x.Logger).
		Resolve(x.units, x.rep)
	if err != nil {
		return err
	}
	x.lib = lib
	return nil
}

func (x *run) filter() error {
	x.lib = filter.Apply(x.lib, x.plan.Filter)
	retained := x.lib.Len()
	x.rep.Count(func(c *report.Counters) { c.NodesRetained = retained })
	x.Logger.Info("Library filtered", logfields.Count(retained))
	return nil
}

func (x *run) assign() error {
	x.lib = identity.Assign(x.lib, identity.Options{Seed: x.cfg.UUIDSeed})
	return nil
}

func (x *run) generateHTML() error {
	opts := *x.plan.HTML
	opts.Recorder = x.Recorder
	g, err := htmlgen.New(opts)
	if err != nil {
		return err
	}
	err = g.Generate(x.ctx, x.lib)
	x.countPages(g.Stats())
	x.roots = append(x.roots, g.OutputDir())
	return x.recordFailures(report.StageGenerateHTML, err)
}

func (x *run) generateDocSet() error {
	opts := *x.plan.DocSet
	opts.Recorder = x.Recorder
	g, err := docset.New(opts)
	if err != nil {
		return err
	}
	err = g.Generate(x.ctx, x.lib)
	x.countPages(g.Stats())
	x.roots = append(x.roots, g.DocumentsDir())
	return x.recordFailures(report.StageGenerateDocSet, err)
}

func (x *run) countPages(s generator.Stats) {
	x.rep.Count(func(c *report.Counters) {
		c.PagesWritten += s.Written
		c.PagesUnchanged += s.Unchanged
		c.PagesFailed += s.Failed
	})
}

// recordFailures turns node failures into report issues. Any other error stops the run.
func (x *run) recordFailures(stage report.Stage, err error) error {
	if err == nil {
		return nil
	}
	ge, ok := generator.AsGenerationError(err)
	if !ok {
		if ferrors.IsClassified(err) || errors.Is(err, context.Canceled) {
			return err
		}
		return ferrors.WrapError(err, ferrors.CategoryGenerationOutput, "generator failed").
			WithStage(string(stage)).Build()
	}
	for _, f := range ge.Failures {
		subject := string(f.NodeID)
		if subject == "" {
			subject = f.Path
		}
		x.rep.Error(report.IssueGenerationFailure, stage, subject, f.Err.Error())
	}
	return nil
}

func (x *run) verifyLinks() error {
	for _, root := range x.roots {
		res, err := linkverify.VerifyTree(x.ctx, root, linkverify.Options{Concurrency: x.cfg.Concurrency, Logger: x.Logger})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			x.rep.Warn(report.IssueBrokenLink, report.StageVerifyLinks, root, "link verification failed: "+err.Error())
			continue
		}
		linkverify.Record(x.rep, res)
	}
	return nil
}

// pruneCache drops cache entries of files that were not discovered in this run.
func (x *run) pruneCache() {
	if x.Cache == nil || x.files == nil {
		return
	}
	keep := sets.New[string]()
	for _, f := range x.files {
		keep.Add(f.Path)
	}
	removed, err := x.Cache.Prune(x.ctx, keep.Has)
	if err != nil {
		x.Logger.Warn("Cannot prune parse cache", logfields.Error(err))
		return
	}
	if removed > 0 {
		x.Logger.Debug("Pruned parse cache", logfields.Count(removed))
	}
}

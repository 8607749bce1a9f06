package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/doctool/internal/decl"
	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
	"git.home.luguber.info/inful/doctool/internal/frontend"
	"git.home.luguber.info/inful/doctool/internal/logfields"
	"git.home.luguber.info/inful/doctool/internal/metrics"
	"git.home.luguber.info/inful/doctool/internal/parsecache"
	"git.home.luguber.info/inful/doctool/internal/report"
)

// ParserOptions configures a Parser.
type ParserOptions struct {
	// Arguments are the compiler arguments passed to every front-end invocation.
	Arguments []string
	// Concurrency bounds the number of files parsed at once. <= 0 uses the CPU count.
	Concurrency int
	Recorder    metrics.Recorder
	Logger      *slog.Logger
}

// Parser obtains the declarations of source files, from the parse cache when possible.
type Parser struct {
	frontEnd frontend.FrontEnd
	cache    *parsecache.Cache
	args     []string
	workers  int
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewParser creates a Parser. cache may be nil to always run the front end.
func NewParser(fe frontend.FrontEnd, cache *parsecache.Cache, opts ParserOptions) *Parser {
	p := &Parser{
		frontEnd: fe,
		cache:    cache,
		args:     append([]string(nil), opts.Arguments...),
		workers:  opts.Concurrency,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
	if p.workers <= 0 {
		p.workers = runtime.NumCPU()
	}
	if p.recorder == nil {
		p.recorder = metrics.NoopRecorder{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// ParseAll parses files with a bounded worker pool and returns the usable units in file order.
//
// A file that cannot be read, that the front end fails on, or whose unit carries a fatal
// diagnostic is recorded on rep and left out; the run continues. Only cancellation of ctx
// is returned as an error.
func (p *Parser) ParseAll(ctx context.Context, files []File, rep *report.Report) ([]decl.Unit, error) {
	if rep == nil {
		rep = report.New()
	}
	rep.Count(func(c *report.Counters) { c.FilesDiscovered += len(files) })
	p.recorder.SetParseConcurrency(p.workers)

	results := make([]*decl.Unit, len(files))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers)
	for i, f := range files {
		if gctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			unit, err := p.parse(gctx, f, rep)
			if err != nil {
				return err
			}
			results[i] = unit
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	units := make([]decl.Unit, 0, len(results))
	for _, u := range results {
		if u != nil {
			units = append(units, *u)
		}
	}
	return units, nil
}

// parse handles one file. A nil unit with a nil error means the file was reported and skipped.
func (p *Parser) parse(ctx context.Context, f File, rep *report.Report) (*decl.Unit, error) {
	start := time.Now()
	content, err := os.ReadFile(f.Path)
	if err != nil {
		p.fail(rep, report.IssueSourceUnreadable, f, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot read source file").
			WithContext("file", f.Path).Build())
		return nil, nil
	}

	key := parsecache.Key{Path: f.Path, Fingerprint: parsecache.Fingerprint(content), Arguments: p.args}
	var (
		unit *decl.Unit
		hit  bool
	)
	if p.cache != nil {
		unit, hit = p.cache.Lookup(ctx, key)
		p.recorder.IncCacheLookup(hit)
		rep.Count(func(c *report.Counters) {
			if hit {
				c.CacheHits++
			} else {
				c.CacheMisses++
			}
		})
	}

	if !hit {
		unit, err = p.frontEnd.Parse(ctx, frontend.Request{Path: f.Path, Content: content, Arguments: p.args})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			p.fail(rep, report.IssueFrontEndFailure, f, ferrors.WrapError(err, ferrors.CategoryCompilerDiagnostic, "front end failed").
				WithContext("file", f.Path).Build())
			return nil, nil
		}
		if unit == nil {
			unit = &decl.Unit{}
		}
		if unit.Path == "" {
			unit.Path = f.Path
		}
	}
	p.recorder.ObserveParseDuration(time.Since(start), hit)

	for _, d := range unit.Diagnostics {
		if d.Severity == decl.SeverityWarning {
			rep.Warn(report.IssueCompilerWarning, report.StageParse, f.Path, d.String())
		}
	}
	if unit.Fatal() {
		for _, d := range unit.FatalDiagnostics() {
			rep.Error(report.IssueCompilerDiagnostic, report.StageParse, f.Path, d.String())
		}
		err := ferrors.CompilerDiagnosticError("source file rejected by the front end").
			WithContext("file", f.Path).
			WithContext("diagnostics", len(unit.FatalDiagnostics())).Build()
		p.logger.Warn(err.Message(), logfields.File(f.Path), logfields.Category(string(err.Category())))
		rep.Count(func(c *report.Counters) { c.FilesFailed++ })
		return nil, nil
	}

	if p.cache != nil && !hit {
		if err := p.cache.Store(ctx, key, unit); err != nil {
			rep.Warn(report.IssueCacheUnavailable, report.StageParse, f.Path, err.Error())
			p.logger.Warn("Cannot store parse result", logfields.File(f.Path), logfields.Error(err))
		}
	}

	p.logger.Debug("Parsed file", logfields.File(f.RelativePath), logfields.CacheHit(hit),
		logfields.Count(len(unit.Declarations)))
	rep.Count(func(c *report.Counters) { c.FilesParsed++ })
	return unit, nil
}

func (p *Parser) fail(rep *report.Report, code report.IssueCode, f File, err *ferrors.ClassifiedError) {
	msg := err.Message()
	if cause := err.Cause(); cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	rep.Error(code, report.StageParse, f.Path, msg)
	p.logger.Warn(err.Message(), logfields.File(f.Path), logfields.Category(string(err.Category())), logfields.Error(err.Cause()))
	rep.Count(func(c *report.Counters) { c.FilesFailed++ })
}

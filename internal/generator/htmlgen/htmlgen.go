// Package htmlgen renders an identified library as a tree of static HTML pages: one page
// per top-level node plus an index and a table of contents.
package htmlgen

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
	"git.home.luguber.info/inful/doctool/internal/generator"
	"git.home.luguber.info/inful/doctool/internal/logfields"
	"git.home.luguber.info/inful/doctool/internal/metrics"
	"git.home.luguber.info/inful/doctool/internal/model"
)

// Name identifies the generator in reports and metrics.
const Name = "html"

//go:embed templates/*.html
var embeddedTemplates embed.FS

//go:embed static
var embeddedStatic embed.FS

// templateFiles are parsed in this order; a file of the same name in the templates
// directory replaces the embedded default.
var templateFiles = []string{"base.html", "node.html", "index.html", "toc.html"}

// Options configures a Generator.
type Options struct {
	OutputDir            string
	TemplatesDir         string
	FrameworkName        string
	ShowInternalComments bool
	// Concurrency bounds the number of pages rendered at once. <= 0 uses the CPU count.
	Concurrency int
	// DocSet adds the apple_ref anchors and script documentation set viewers expect.
	DocSet   bool
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Generator writes the HTML tree.
type Generator struct {
	opts   Options
	label  string
	tmpl   *template.Template
	writer *generator.Writer
	failed atomic.Int64
}

// New parses the templates and prepares a Generator. Template problems are configuration errors.
func New(opts Options) (*Generator, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.OutputDir == "" {
		return nil, ferrors.ConfigError("html output directory is required").Build()
	}
	tmpl, err := loadTemplates(opts.TemplatesDir, opts.Logger)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "cannot load templates").
			Fatal().WithContext("path", opts.TemplatesDir).Build()
	}
	label := Name
	if opts.DocSet {
		label = "docset"
	}
	return &Generator{opts: opts, label: label, tmpl: tmpl, writer: generator.NewWriter(opts.OutputDir)}, nil
}

// Name implements generator.Generator.
func (g *Generator) Name() string { return Name }

// OutputDir is the root of the generated tree.
func (g *Generator) OutputDir() string { return g.opts.OutputDir }

// Stats reports the files handled so far.
func (g *Generator) Stats() generator.Stats {
	written, unchanged := g.writer.Counts()
	return generator.Stats{Written: written, Unchanged: unchanged, Failed: int(g.failed.Load())}
}

// Generate writes static assets, one page per top-level node, index.html and toc.html.
// Pages are rendered by a bounded worker pool over the read-only library.
func (g *Generator) Generate(ctx context.Context, lib *model.Library) error {
	start := time.Now()
	if err := os.MkdirAll(g.opts.OutputDir, 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot create output directory").
			WithContext("path", g.opts.OutputDir).Build()
	}

	var failures generator.Failures
	g.writeAssets(&failures)

	vb := &viewBuilder{lib: lib, opts: g.opts}
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Concurrency)
	for _, n := range lib.TopLevel() {
		if gctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if n.HTMLPath == "" {
				g.fail(&failures, generator.NodeFailure{NodeID: n.ID, Name: n.Name, Err: errors.New("node has no assigned path")})
				return nil
			}
			g.render(&failures, n.ID, n.Name, "node.html", pagePath(n.HTMLPath), vb.page(n))
			return nil
		})
	}
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	g.render(&failures, "", "index", "index.html", "index.html", vb.index(g.opts.FrameworkName+" Reference", false))
	g.render(&failures, "", "toc", "toc.html", "toc.html", vb.index(g.opts.FrameworkName+" Contents", true))

	stats := g.Stats()
	g.opts.Logger.Info("HTML documentation generated",
		logfields.Generator(g.label),
		logfields.Path(g.opts.OutputDir),
		slog.Int("written", stats.Written),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("failed", stats.Failed),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return failures.Err(g.label)
}

func (g *Generator) render(f *generator.Failures, id model.NodeID, name, tmplName, rel string, data any) {
	var buf bytes.Buffer
	if err := g.tmpl.ExecuteTemplate(&buf, tmplName, data); err != nil {
		g.fail(f, generator.NodeFailure{NodeID: id, Name: name, Path: rel, Err: fmt.Errorf("render %s: %w", tmplName, err)})
		return
	}
	g.write(f, id, name, rel, buf.Bytes())
}

func (g *Generator) write(f *generator.Failures, id model.NodeID, name, rel string, data []byte) {
	changed, err := g.writer.Write(rel, data)
	if err != nil {
		g.fail(f, generator.NodeFailure{NodeID: id, Name: name, Path: rel, Err: err})
		return
	}
	if changed {
		g.opts.Recorder.IncPageResult(g.label, metrics.PageWritten)
	} else {
		g.opts.Recorder.IncPageResult(g.label, metrics.PageUnchanged)
	}
}

func (g *Generator) fail(f *generator.Failures, failure generator.NodeFailure) {
	g.failed.Add(1)
	g.opts.Recorder.IncPageResult(g.label, metrics.PageFailed)
	g.opts.Logger.Warn("Cannot generate page",
		logfields.Generator(g.label), logfields.Path(failure.Path), logfields.Node(string(failure.NodeID)), logfields.Error(failure.Err))
	f.Add(failure)
}

// writeAssets copies the stylesheet and scripts, preferring files of the same relative
// path in the templates directory.
func (g *Generator) writeAssets(f *generator.Failures) {
	_ = fs.WalkDir(embeddedStatic, "static", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel := strings.TrimPrefix(path, "static/")
		data, err := g.asset(path, rel)
		if err != nil {
			g.fail(f, generator.NodeFailure{Name: rel, Path: rel, Err: err})
			return nil
		}
		g.write(f, "", rel, rel, data)
		return nil
	})
}

func (g *Generator) asset(embedded, rel string) ([]byte, error) {
	if g.opts.TemplatesDir != "" {
		// #nosec G304 -- rel comes from the embedded asset list.
		data, err := os.ReadFile(filepath.Join(g.opts.TemplatesDir, filepath.FromSlash(rel)))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return embeddedStatic.ReadFile(embedded)
}

func loadTemplates(dir string, logger *slog.Logger) (*template.Template, error) {
	root := template.New("doctool").Funcs(template.FuncMap{
		// safe marks text that was escaped or rendered to HTML upstream.
		"safe": func(s string) template.HTML {
			return template.HTML(s) // #nosec G203 -- escaped by the node builder
		},
	})
	for _, name := range templateFiles {
		src, err := templateSource(dir, name, logger)
		if err != nil {
			return nil, err
		}
		if _, err := root.New(name).Parse(src); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
	}
	return root, nil
}

func templateSource(dir, name string, logger *slog.Logger) (string, error) {
	if dir != "" {
		p := filepath.Join(dir, name)
		// #nosec G304 -- p is a fixed template name under the configured directory.
		b, err := os.ReadFile(p)
		if err == nil {
			logger.Debug("Loaded template override", logfields.Name(name), logfields.Path(p))
			return string(b), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read template %s: %w", p, err)
		}
	}
	b, err := embeddedTemplates.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("embedded template %s missing: %w", name, err)
	}
	return string(b), nil
}

// Package docset packages the HTML tree as a documentation set bundle with the property
// list, node and token files and the search index documentation viewers read.
package docset

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"howett.net/plist"

	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
	"git.home.luguber.info/inful/doctool/internal/generator"
	"git.home.luguber.info/inful/doctool/internal/generator/htmlgen"
	"git.home.luguber.info/inful/doctool/internal/logfields"
	"git.home.luguber.info/inful/doctool/internal/metrics"
	"git.home.luguber.info/inful/doctool/internal/model"
)

// Name identifies the generator in reports and metrics.
const Name = "docset"

// DefaultBundleVersion is used when no version is configured or derived.
const DefaultBundleVersion = "1.0"

const (
	infoPlistPath  = "Contents/Info.plist"
	documentsDir   = "Contents/Resources/Documents"
	nodesPath      = "Contents/Resources/Nodes.xml"
	tokensPath     = "Contents/Resources/Tokens.xml"
	searchIndexRel = "Contents/Resources/docSet.dsidx"
)

// Options configures a Generator. The embedded HTML options describe the pages; OutputDir
// is the directory the bundle is created in.
type Options struct {
	htmlgen.Options

	BundleID      string
	BundleName    string
	BundleVersion string
	PublisherID   string
	PublisherName string
}

// Generator writes <OutputDir>/<BundleID>.docset.
type Generator struct {
	opts   Options
	bundle string
	html   *htmlgen.Generator
	writer *generator.Writer
}

// New validates the bundle metadata and prepares the embedded HTML generator.
func New(opts Options) (*Generator, error) {
	if opts.BundleID == "" {
		return nil, ferrors.ConfigError("docSetBundleId is required for docset output").Build()
	}
	if opts.OutputDir == "" {
		return nil, ferrors.ConfigError("docset output directory is required").Build()
	}
	if opts.BundleName == "" {
		opts.BundleName = opts.FrameworkName
	}
	if opts.BundleVersion == "" {
		opts.BundleVersion = DefaultBundleVersion
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	bundle := filepath.Join(opts.OutputDir, opts.BundleID+".docset")
	htmlOpts := opts.Options
	htmlOpts.OutputDir = DocumentsPath(bundle)
	htmlOpts.DocSet = true
	html, err := htmlgen.New(htmlOpts)
	if err != nil {
		return nil, err
	}
	return &Generator{opts: opts, bundle: bundle, html: html, writer: generator.NewWriter(bundle)}, nil
}

// Name implements generator.Generator.
func (g *Generator) Name() string { return Name }

// BundlePath is the directory of the bundle.
func (g *Generator) BundlePath() string { return g.bundle }

// DocumentsPath returns the HTML root inside the bundle at bundle.
func DocumentsPath(bundle string) string {
	return filepath.Join(bundle, filepath.FromSlash(documentsDir))
}

// DocumentsDir is the root of the HTML pages inside the bundle.
func (g *Generator) DocumentsDir() string { return g.html.OutputDir() }

// Stats reports the files handled so far, pages included.
func (g *Generator) Stats() generator.Stats {
	s := g.html.Stats()
	written, unchanged := g.writer.Counts()
	s.Written += written
	s.Unchanged += unchanged
	return s
}

// Generate renders the pages and then the bundle metadata. Page failures do not stop the
// metadata from being written; they are returned together at the end.
func (g *Generator) Generate(ctx context.Context, lib *model.Library) error {
	start := time.Now()
	var failures generator.Failures

	if err := g.html.Generate(ctx, lib); err != nil {
		ge, ok := generator.AsGenerationError(err)
		if !ok {
			return err
		}
		for _, f := range ge.Failures {
			f.Path = documentsDir + "/" + f.Path
			failures.Add(f)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if data, err := g.infoPlist(); err != nil {
		g.fail(&failures, infoPlistPath, err)
	} else {
		g.write(&failures, infoPlistPath, data)
	}
	if data, err := marshalNodes(lib, g.opts.FrameworkName); err != nil {
		g.fail(&failures, nodesPath, err)
	} else {
		g.write(&failures, nodesPath, data)
	}
	if data, err := marshalTokens(lib); err != nil {
		g.fail(&failures, tokensPath, err)
	} else {
		g.write(&failures, tokensPath, data)
	}
	rows, err := writeSearchIndex(ctx, filepath.Join(g.bundle, filepath.FromSlash(searchIndexRel)), lib)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		g.fail(&failures, searchIndexRel, err)
	}

	g.opts.Logger.Info("Documentation set generated",
		logfields.Generator(Name),
		logfields.Path(g.bundle),
		slog.Int("index_entries", rows),
		slog.Int("failed", failures.Len()),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return failures.Err(Name)
}

type infoPlist struct {
	DevelopmentRegion     string `plist:"CFBundleDevelopmentRegion"`
	Identifier            string `plist:"CFBundleIdentifier"`
	Name                  string `plist:"CFBundleName"`
	ShortVersion          string `plist:"CFBundleShortVersionString"`
	Version               string `plist:"CFBundleVersion"`
	InfoDictionaryVersion string `plist:"CFBundleInfoDictionaryVersion"`
	PackageType           string `plist:"CFBundlePackageType"`
	PublisherIdentifier   string `plist:"DocSetPublisherIdentifier"`
	PublisherName         string `plist:"DocSetPublisherName"`
	DashIndexFilePath     string `plist:"dashIndexFilePath"`
	DashDocSetFamily      string `plist:"DashDocSetFamily"`
	IsDashDocset          bool   `plist:"isDashDocset"`
	MinimumXcodeVersion   string `plist:"DocSetMinimumXcodeVersion"`
}

func (g *Generator) infoPlist() ([]byte, error) {
	info := infoPlist{
		DevelopmentRegion:     "en",
		Identifier:            g.opts.BundleID,
		Name:                  g.opts.BundleName,
		ShortVersion:          g.opts.BundleVersion,
		Version:               g.opts.BundleVersion,
		InfoDictionaryVersion: "6.0",
		PackageType:           "DOCS",
		PublisherIdentifier:   g.opts.PublisherID,
		PublisherName:         g.opts.PublisherName,
		DashIndexFilePath:     "index.html",
		DashDocSetFamily:      "appledoc",
		IsDashDocset:          true,
		MinimumXcodeVersion:   "3.0",
	}
	return plist.MarshalIndent(info, plist.XMLFormat, "\t")
}

func (g *Generator) write(f *generator.Failures, rel string, data []byte) {
	changed, err := g.writer.Write(rel, data)
	if err != nil {
		g.fail(f, rel, err)
		return
	}
	if changed {
		g.opts.Recorder.IncPageResult(Name, metrics.PageWritten)
	} else {
		g.opts.Recorder.IncPageResult(Name, metrics.PageUnchanged)
	}
}

func (g *Generator) fail(f *generator.Failures, rel string, err error) {
	g.opts.Recorder.IncPageResult(Name, metrics.PageFailed)
	g.opts.Logger.Warn("Cannot write bundle file", logfields.Generator(Name), logfields.Path(rel), logfields.Error(err))
	f.Add(generator.NodeFailure{Name: filepath.Base(rel), Path: rel, Err: err})
}

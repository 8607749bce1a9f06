package docset

import (
	"context"
	"database/sql"
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"

	"git.home.luguber.info/inful/doctool/internal/generator"
	"git.home.luguber.info/inful/doctool/internal/generator/htmlgen"
	"git.home.luguber.info/inful/doctool/internal/model"
	th "git.home.luguber.info/inful/doctool/internal/testing"
)

func newGenerator(t *testing.T, out string) *Generator {
	t.Helper()
	g, err := New(Options{
		Options:       htmlgen.Options{OutputDir: out, FrameworkName: "Sample", Concurrency: 2},
		BundleID:      "com.example.sample",
		BundleVersion: "git-abc1234",
		PublisherID:   "com.example",
		PublisherName: "Example",
	})
	require.NoError(t, err)
	return g
}

func TestGenerate(t *testing.T) {
	out := t.TempDir()
	lib := th.SampleLibrary(t)
	g := newGenerator(t, out)
	require.NoError(t, g.Generate(context.Background(), lib))

	bundle := filepath.Join(out, "com.example.sample.docset")
	assert.Equal(t, bundle, g.BundlePath())
	files := th.NewFileAssertions(t, bundle)
	files.AssertFileExists(
		"Contents/Info.plist",
		"Contents/Resources/Nodes.xml",
		"Contents/Resources/Tokens.xml",
		"Contents/Resources/docSet.dsidx",
		"Contents/Resources/Documents/index.html",
		"Contents/Resources/Documents/js/docset.js",
		"Contents/Resources/Documents/Classes/Widget.html",
	)
	files.AssertFileContains("Contents/Resources/Documents/Classes/Widget.html", `<a name="//apple_ref/occ/cl/Widget"></a>`)

	t.Run("info plist", func(t *testing.T) {
		var info map[string]any
		_, err := plist.Unmarshal([]byte(files.GetFileContent("Contents/Info.plist")), &info)
		require.NoError(t, err)
		assert.Equal(t, "com.example.sample", info["CFBundleIdentifier"])
		assert.Equal(t, "Sample", info["CFBundleName"])
		assert.Equal(t, "git-abc1234", info["CFBundleShortVersionString"])
		assert.Equal(t, "git-abc1234", info["CFBundleVersion"])
		assert.Equal(t, "com.example", info["DocSetPublisherIdentifier"])
		assert.Equal(t, "Example", info["DocSetPublisherName"])
		assert.Equal(t, "index.html", info["dashIndexFilePath"])
	})

	t.Run("nodes refer to library pages", func(t *testing.T) {
		var doc nodesDocument
		require.NoError(t, xml.Unmarshal([]byte(files.GetFileContent("Contents/Resources/Nodes.xml")), &doc))
		assert.Equal(t, "Sample", doc.TOC.Name)
		require.NotEmpty(t, doc.TOC.Subnodes)
		assert.Equal(t, "Classes", doc.TOC.Subnodes[0].Name)

		byID := make(map[int]libraryNode)
		for _, n := range doc.Library {
			byID[n.ID] = n
		}
		assert.Len(t, byID, len(lib.TopLevel()))
		for _, folder := range doc.TOC.Subnodes {
			for _, ref := range folder.Refs {
				assert.Contains(t, byID, ref.RefID)
			}
		}
		widget := lib.ClassNamed("Widget")
		require.NotNil(t, widget)
		assert.Equal(t, libraryNode{ID: widget.ReferenceNumber, Name: "Widget", Path: "Classes/Widget.html"}, byID[widget.ReferenceNumber])
	})

	t.Run("tokens", func(t *testing.T) {
		var doc tokensDocument
		require.NoError(t, xml.Unmarshal([]byte(files.GetFileContent("Contents/Resources/Tokens.xml")), &doc))
		tokens := make(map[string]token)
		for _, f := range doc.Files {
			for _, tok := range f.Tokens {
				tokens[tok.Identifier] = tok
			}
		}
		cls, ok := tokens["//apple_ref/occ/cl/Widget"]
		require.True(t, ok)
		assert.Equal(t, "A widget.", cls.Abstract)
		assert.Equal(t, "Widget.h", cls.DeclaredIn)
		assert.Empty(t, cls.Anchor)

		reset, ok := tokens["//apple_ref/occ/instm/Widget/reset"]
		require.True(t, ok)
		assert.Equal(t, "//apple_ref/occ/instm/Widget/reset", reset.Anchor)
		assert.Equal(t, "Use reload.", reset.Deprecation)
		assert.Equal(t, cls.NodeRef, reset.NodeRef)

		for id := range tokens {
			assert.NotContains(t, id, "widgetWithName:/name", "parameters are not tokens")
		}
	})

	t.Run("search index", func(t *testing.T) {
		db, err := sql.Open("sqlite", filepath.Join(bundle, "Contents", "Resources", "docSet.dsidx"))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		var typ, path string
		require.NoError(t, db.QueryRow(`SELECT type, path FROM searchIndex WHERE name = ?`, "Widget").Scan(&typ, &path))
		assert.Equal(t, "Class", typ)
		assert.Equal(t, "Classes/Widget.html", path)

		require.NoError(t, db.QueryRow(`SELECT type FROM searchIndex WHERE name = ?`, "Widget(Loud)").Scan(&typ))
		assert.Equal(t, "Category", typ)

		var methods int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM searchIndex WHERE type = 'Method'`).Scan(&methods))
		assert.Positive(t, methods)
	})

	t.Run("rerun rebuilds the index in place", func(t *testing.T) {
		require.NoError(t, g.Generate(context.Background(), lib))
		entries, err := os.ReadDir(filepath.Join(bundle, "Contents", "Resources"))
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotEqual(t, "docSet.dsidx.tmp", e.Name())
		}
		assert.Positive(t, g.Stats().Unchanged)
	})
}

func TestGenerate_PageFailureStillWritesMetadata(t *testing.T) {
	out := t.TempDir()
	blocked := filepath.Join(out, "com.example.sample.docset", "Contents", "Resources", "Documents", "Classes", "Widget.html")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "keep"), 0o750))

	g := newGenerator(t, out)
	err := g.Generate(context.Background(), th.SampleLibrary(t))
	ge, ok := generator.AsGenerationError(err)
	require.True(t, ok)
	require.Len(t, ge.Failures, 1)
	assert.Equal(t, Name, ge.Generator)
	assert.Equal(t, "Contents/Resources/Documents/Classes/Widget.html", ge.Failures[0].Path)

	th.NewFileAssertions(t, g.BundlePath()).AssertFileExists("Contents/Info.plist", "Contents/Resources/Tokens.xml")
}

func TestNew_RequiresBundleID(t *testing.T) {
	_, err := New(Options{Options: htmlgen.Options{OutputDir: t.TempDir()}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docSetBundleId")
}

func TestNew_DefaultsVersion(t *testing.T) {
	g, err := New(Options{Options: htmlgen.Options{OutputDir: t.TempDir(), FrameworkName: "Sample"}, BundleID: "x"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBundleVersion, g.opts.BundleVersion)
	assert.Equal(t, "Sample", g.opts.BundleName)
}

func TestNewToken_AbstractIsPlainText(t *testing.T) {
	n := &model.Node{AppleRef: "//apple_ref/occ/cl/Widget", BriefComment: "Wraps a *`CALayer`* for\ndrawing."}
	tok := newToken(n, nodeRef{RefID: 1})
	assert.Equal(t, "Wraps a CALayer for drawing.", tok.Abstract)
	assert.Empty(t, tok.DeclaredIn)
}

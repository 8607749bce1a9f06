package linkverify

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/doctool/internal/generator/htmlgen"
	"git.home.luguber.info/inful/doctool/internal/report"
	th "git.home.luguber.info/inful/doctool/internal/testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func TestExtractPageFromReader(t *testing.T) {
	page, err := ExtractPageFromReader(strings.NewReader(`<html><head>
<link rel="stylesheet" href="css/site.css"><script src="js/app.js"></script></head>
<body><a name="top"></a><div id="m1"><a href="#top">Top</a><img src="i.png" alt="pic"></div>
<a href="mailto:x@example.com">mail</a></body></html>`))
	require.NoError(t, err)

	assert.True(t, page.Anchors.Has("top"))
	assert.True(t, page.Anchors.Has("m1"))
	var urls []string
	for _, l := range page.Links {
		urls = append(urls, l.Tag+" "+l.URL)
	}
	assert.Equal(t, []string{"link css/site.css", "script js/app.js", "a #top", "img i.png", "a mailto:x@example.com"}, urls)
	assert.Equal(t, "Top", page.Links[2].Text)
}

func TestIsLocalLink(t *testing.T) {
	for link, want := range map[string]bool{
		"Classes/A.html":        true,
		"../index.html#x":       true,
		"#frag":                 true,
		"https://example.com/":  false,
		"//cdn.example.com/a":   false,
		"/abs/path.html":        false,
		"mailto:a@example.com":  false,
		"javascript:void(0)":    false,
		"data:image/png;base64": false,
	} {
		assert.Equal(t, want, isLocalLink(link), link)
	}
}

func TestVerifyTree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.html": `<a href="Classes/A.html">A</a><a href="Classes/A.html#m%2B1">m</a>` +
			`<a href="Classes/Missing.html">gone</a><a href="https://example.com/">ext</a>`,
		"Classes/A.html": `<link rel="stylesheet" href="../css/x.css"><div id="m+1"></div>` +
			`<a href="#nope">bad</a><a href="../../outside.html">out</a>`,
		"css/x.css": "",
	})

	res, err := VerifyTree(context.Background(), root, Options{Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 6, res.Links)
	require.Len(t, res.Broken, 3)
	assert.Equal(t, "Classes/A.html", res.Broken[0].Page)
	assert.Equal(t, "#nope", res.Broken[0].URL)
	assert.Contains(t, res.Broken[0].Reason, `has no anchor "nope"`)
	assert.Equal(t, "../../outside.html", res.Broken[1].URL)
	assert.Contains(t, res.Broken[1].Reason, "outside")
	assert.Equal(t, "index.html", res.Broken[2].Page)
	assert.Contains(t, res.Broken[2].Reason, "does not exist")

	rep := report.New()
	Record(rep, res)
	issues := rep.IssuesWith(report.IssueBrokenLink)
	require.Len(t, issues, 3)
	assert.Equal(t, report.SeverityWarning, issues[0].Severity)
	assert.Equal(t, report.StageVerifyLinks, issues[0].Stage)
}

func TestVerifyTree_GeneratedHTML(t *testing.T) {
	out := t.TempDir()
	for _, docSet := range []bool{false, true} {
		g, err := htmlgen.New(htmlgen.Options{OutputDir: out, FrameworkName: "Sample", DocSet: docSet})
		require.NoError(t, err)
		require.NoError(t, g.Generate(context.Background(), th.SampleLibrary(t)))

		res, err := VerifyTree(context.Background(), out, Options{})
		require.NoError(t, err)
		assert.Positive(t, res.Links)
		assert.Empty(t, res.Broken, "docset=%v", docSet)
	}
}

func TestVerifyTree_Canceled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.html": `<a href="b.html">b</a>`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := VerifyTree(ctx, root, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

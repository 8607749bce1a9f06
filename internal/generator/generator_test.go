package generator

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root)

	changed, err := w.Write("Classes/Foo.html", []byte("<p>foo</p>"))
	require.NoError(t, err)
	assert.True(t, changed)

	full := filepath.Join(root, "Classes", "Foo.html")
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(full, old, old))

	t.Run("unchanged content is not rewritten", func(t *testing.T) {
		changed, err := w.Write("Classes/Foo.html", []byte("<p>foo</p>"))
		require.NoError(t, err)
		assert.False(t, changed)
		info, err := os.Stat(full)
		require.NoError(t, err)
		assert.WithinDuration(t, old, info.ModTime(), time.Second)
	})

	t.Run("changed content replaces the file", func(t *testing.T) {
		changed, err := w.Write("Classes/Foo.html", []byte("<p>bar</p>"))
		require.NoError(t, err)
		assert.True(t, changed)
		data, err := os.ReadFile(full)
		require.NoError(t, err)
		assert.Equal(t, "<p>bar</p>", string(data))

		entries, err := os.ReadDir(filepath.Dir(full))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "no temporary files left behind")
	})

	t.Run("paths stay below the root", func(t *testing.T) {
		for _, rel := range []string{"", "../escape.html", "/abs.html", "a/../../b.html"} {
			_, err := w.Write(rel, []byte("x"))
			assert.Error(t, err, rel)
		}
	})

	written, unchanged := w.Counts()
	assert.Equal(t, 2, written)
	assert.Equal(t, 1, unchanged)
}

func TestFailures(t *testing.T) {
	var f Failures
	assert.NoError(t, f.Err("html"))

	cause := errors.New("template exploded")
	var wg sync.WaitGroup
	for _, p := range []string{"Protocols/P.html", "Classes/A.html", "index.html"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Add(NodeFailure{Path: p, Err: cause})
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, f.Len())

	err := f.Err("html")
	require.Error(t, err)
	ge, ok := AsGenerationError(err)
	require.True(t, ok)
	assert.Equal(t, "html", ge.Generator)
	paths := []string{ge.Failures[0].Path, ge.Failures[1].Path, ge.Failures[2].Path}
	assert.Equal(t, []string{"Classes/A.html", "Protocols/P.html", "index.html"}, paths)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "3 outputs failed")
}

func TestNodeFailure(t *testing.T) {
	f := NodeFailure{NodeID: "classes/Foo", Path: "Classes/Foo.html", Err: errors.New("boom")}
	assert.Equal(t, "classes/Foo: boom", f.Error())
	f.NodeID = ""
	assert.Equal(t, "Classes/Foo.html: boom", f.Error())

	single := &GenerationError{Generator: "docset", Failures: []NodeFailure{f}}
	assert.Equal(t, "docset generator: Classes/Foo.html: boom", single.Error())
}

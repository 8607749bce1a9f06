// Package linkverify checks that every relative link in a generated HTML tree resolves to
// an existing file and, when it names a fragment, to an anchor on that page.
package linkverify

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/doctool/internal/logfields"
	"git.home.luguber.info/inful/doctool/internal/report"
)

// BrokenLink is one link that does not resolve.
type BrokenLink struct {
	Page   string // Page the link appears on, relative to the root
	URL    string // The link as written
	Tag    string
	Reason string
}

func (b BrokenLink) String() string {
	return fmt.Sprintf("%s: %s %q %s", b.Page, b.Tag, b.URL, b.Reason)
}

// Result summarizes a verification run.
type Result struct {
	Pages  int
	Links  int
	Broken []BrokenLink
}

// Options configures VerifyTree.
type Options struct {
	// Concurrency bounds the number of pages parsed at once. <= 0 uses the CPU count.
	Concurrency int
	Logger      *slog.Logger
}

// VerifyTree checks every .html file below root. Links leaving the tree (absolute URLs,
// mailto: and the like) are not checked. Fragments are compared after percent-decoding,
// so escaped apple_ref anchors match their element ids.
func VerifyTree(ctx context.Context, root string, opts Options) (*Result, error) {
	start := time.Now()
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".html") {
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	pages := make(map[string]*Page, len(files))
	var mu sync.Mutex
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Concurrency)
	for _, rel := range files {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page, err := ExtractPage(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				return err
			}
			mu.Lock()
			pages[rel] = page
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Pages: len(pages)}
	for _, rel := range files {
		for _, l := range pages[rel].Links {
			if !isLocalLink(l.URL) {
				continue
			}
			res.Links++
			if reason := check(root, rel, l.URL, pages); reason != "" {
				res.Broken = append(res.Broken, BrokenLink{Page: rel, URL: l.URL, Tag: l.Tag, Reason: reason})
			}
		}
	}
	slices.SortStableFunc(res.Broken, func(a, b BrokenLink) int {
		return cmp.Or(cmp.Compare(a.Page, b.Page), cmp.Compare(a.URL, b.URL))
	})

	opts.Logger.Info("Links verified",
		logfields.Path(root),
		slog.Int("pages", res.Pages),
		slog.Int("links", res.Links),
		slog.Int("broken", len(res.Broken)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return res, nil
}

// check returns why link on page does not resolve, or "" when it does.
func check(root, page, link string, pages map[string]*Page) string {
	u, err := url.Parse(link)
	if err != nil {
		return "is not a valid URL"
	}
	target := page
	if u.Path != "" {
		target = path.Clean(path.Join(path.Dir(page), u.Path))
		if target == ".." || strings.HasPrefix(target, "../") {
			return "points outside the output directory"
		}
	}

	if p, ok := pages[target]; ok {
		if u.Fragment != "" && !p.Anchors.Has(u.Fragment) {
			return fmt.Sprintf("has no anchor %q on %s", u.Fragment, target)
		}
		return ""
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(target))); err != nil {
		return "target " + target + " does not exist"
	}
	return ""
}

// Record adds a warning to rep for every broken link in res.
func Record(rep *report.Report, res *Result) {
	if rep == nil || res == nil {
		return
	}
	for _, b := range res.Broken {
		rep.Warn(report.IssueBrokenLink, report.StageVerifyLinks, b.Page, fmt.Sprintf("%s %q %s", b.Tag, b.URL, b.Reason))
	}
}

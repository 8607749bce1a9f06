// Package markdown renders documentation comment text. Comment paragraphs are treated as
// CommonMark so authors can use emphasis, code spans and links.
package markdown

import (
	"bytes"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

var (
	mdOnce sync.Once
	md     goldmark.Markdown
)

func engine() goldmark.Markdown {
	mdOnce.Do(func() {
		// Raw HTML in comments is escaped, never passed through.
		md = goldmark.New(
			goldmark.WithExtensions(extension.Strikethrough, extension.Table),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})
	return md
}

// ToHTML renders comment text to an HTML fragment. Empty input renders to "".
func ToHTML(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := engine().Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// PlainText strips markup and returns the text content, with blocks separated by a space.
// Used where the consumer cannot display HTML, such as bundle token abstracts.
func PlainText(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	body := []byte(src)
	root := engine().Parser().Parse(text.NewReader(body))

	var b strings.Builder
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			if n.Type() == gmast.TypeBlock && b.Len() > 0 {
				b.WriteByte(' ')
			}
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Text:
			b.Write(node.Segment.Value(body))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(node.Value)
		case *gmast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*gmast.Text); ok {
					b.Write(t.Segment.Value(body))
				}
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.AutoLink:
			b.Write(node.Label(body))
		}
		return gmast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

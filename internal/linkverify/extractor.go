package linkverify

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/doctool/internal/foundation/errors"
	"git.home.luguber.info/inful/doctool/internal/util/sets"
)

// Link represents an extracted link from HTML content.
type Link struct {
	URL       string // The URL or path as written
	Text      string // Link text or title
	Tag       string // HTML tag (a, img, script, link)
	Attribute string // Attribute containing the link (href, src)
}

// Page is what verification needs to know about one HTML file: the links it makes and the
// anchors other pages can point at.
type Page struct {
	Links   []Link
	Anchors sets.Set[string]
}

// ExtractPage reads an HTML file.
func ExtractPage(htmlPath string) (*Page, error) {
	file, err := os.Open(filepath.Clean(htmlPath))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to open HTML file").
			WithSeverity(errors.SeverityError).WithContext("html_path", htmlPath).Build()
	}
	defer func() {
		_ = file.Close() // Ignore close errors on read-only operation
	}()

	return ExtractPageFromReader(file)
}

// ExtractPageFromReader extracts links and anchors from an HTML reader.
func ExtractPageFromReader(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").
			WithSeverity(errors.SeverityError).Build()
	}

	page := &Page{Anchors: sets.New[string]()}
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := getAttr(n, "id"); id != "" {
				page.Anchors.Add(id)
			}
			if n.Data == "a" {
				if name := getAttr(n, "name"); name != "" {
					page.Anchors.Add(name)
				}
			}
			extractElementLinks(n, &page.Links)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(doc)
	return page, nil
}

// extractElementLinks extracts links from a single HTML element.
func extractElementLinks(n *html.Node, links *[]Link) {
	switch n.Data {
	case "a":
		if href := getAttr(n, "href"); href != "" {
			*links = append(*links, Link{URL: href, Text: extractText(n), Tag: "a", Attribute: "href"})
		}
	case "img":
		if src := getAttr(n, "src"); src != "" {
			*links = append(*links, Link{URL: src, Text: getAttr(n, "alt"), Tag: "img", Attribute: "src"})
		}
	case "script":
		if src := getAttr(n, "src"); src != "" {
			*links = append(*links, Link{URL: src, Tag: "script", Attribute: "src"})
		}
	case "link":
		if href := getAttr(n, "href"); href != "" {
			*links = append(*links, Link{URL: href, Text: getAttr(n, "rel"), Tag: "link", Attribute: "href"})
		}
	}
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// extractText extracts text content from an HTML node and its children.
func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}

	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(extractText(c))
	}
	return strings.TrimSpace(text.String())
}

// isLocalLink reports whether linkURL points into the generated tree.
func isLocalLink(linkURL string) bool {
	if linkURL == "" ||
		strings.HasPrefix(linkURL, "mailto:") ||
		strings.HasPrefix(linkURL, "tel:") ||
		strings.HasPrefix(linkURL, "javascript:") ||
		strings.HasPrefix(linkURL, "data:") {
		return false
	}
	u, err := url.Parse(linkURL)
	if err != nil {
		return true
	}
	return u.Scheme == "" && u.Host == "" && !strings.HasPrefix(u.Path, "/")
}

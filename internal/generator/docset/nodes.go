package docset

import (
	"bytes"
	"encoding/xml"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/doctool/internal/markdown"
	"git.home.luguber.info/inful/doctool/internal/model"
)

type nodeRef struct {
	RefID int `xml:"refid,attr"`
}

type tocNode struct {
	Type     string    `xml:"type,attr,omitempty"`
	Name     string    `xml:"Name"`
	Path     string    `xml:"Path,omitempty"`
	Subnodes []tocNode `xml:"Subnodes>Node,omitempty"`
	Refs     []nodeRef `xml:"Subnodes>NodeRef,omitempty"`
}

type libraryNode struct {
	ID   int    `xml:"id,attr"`
	Name string `xml:"Name"`
	Path string `xml:"Path"`
}

type nodesDocument struct {
	XMLName xml.Name      `xml:"DocSetNodes"`
	Version string        `xml:"version,attr"`
	TOC     tocNode       `xml:"TOC>Node"`
	Library []libraryNode `xml:"Library>Node"`
}

type token struct {
	Identifier  string  `xml:"TokenIdentifier"`
	Abstract    string  `xml:"Abstract,omitempty"`
	DeclaredIn  string  `xml:"DeclaredIn,omitempty"`
	Declaration string  `xml:"Declaration,omitempty"`
	Deprecation string  `xml:"DeprecationSummary,omitempty"`
	Anchor      string  `xml:"Anchor,omitempty"`
	NodeRef     nodeRef `xml:"NodeRef"`
}

type tokenFile struct {
	Path   string  `xml:"path,attr"`
	Tokens []token `xml:"Token"`
}

type tokensDocument struct {
	XMLName xml.Name    `xml:"Tokens"`
	Version string      `xml:"version,attr"`
	Files   []tokenFile `xml:"File"`
}

var groupTitles = map[model.Group]string{
	model.GroupClasses:    "Classes",
	model.GroupProtocols:  "Protocols",
	model.GroupCategories: "Categories",
	model.GroupFunctions:  "Functions",
	model.GroupConstants:  "Constants",
}

// marshalNodes builds Nodes.xml: a table of contents with one folder per group that refers
// to library nodes by reference number, and one library node per page.
func marshalNodes(lib *model.Library, framework string) ([]byte, error) {
	doc := nodesDocument{
		Version: "1.0",
		TOC:     tocNode{Type: "folder", Name: framework, Path: "index.html"},
	}
	for _, g := range model.Groups {
		nodes := lib.Group(g)
		if len(nodes) == 0 {
			continue
		}
		folder := tocNode{Type: "folder", Name: groupTitles[g], Path: "index.html"}
		for _, n := range nodes {
			if n.HTMLPath == "" {
				continue
			}
			folder.Refs = append(folder.Refs, nodeRef{RefID: n.ReferenceNumber})
			doc.Library = append(doc.Library, libraryNode{ID: n.ReferenceNumber, Name: displayName(n), Path: n.HTMLPath})
		}
		doc.TOC.Subnodes = append(doc.TOC.Subnodes, folder)
	}
	return marshalXML(doc)
}

// marshalTokens builds Tokens.xml: every node and member with an apple_ref, grouped by page.
// Parameters are addressed through their owner and are not listed.
func marshalTokens(lib *model.Library) ([]byte, error) {
	doc := tokensDocument{Version: "1.0"}
	for _, n := range lib.TopLevel() {
		if n.HTMLPath == "" {
			continue
		}
		file := tokenFile{Path: n.HTMLPath}
		ref := nodeRef{RefID: n.ReferenceNumber}
		file.Tokens = append(file.Tokens, newToken(n, ref))
		for _, m := range searchableMembers(n) {
			file.Tokens = append(file.Tokens, newToken(m, ref))
		}
		doc.Files = append(doc.Files, file)
	}
	return marshalXML(doc)
}

func newToken(n *model.Node, page nodeRef) token {
	t := token{
		Identifier:  n.AppleRef,
		Abstract:    markdown.PlainText(n.BriefComment),
		Declaration: n.Declaration,
		NodeRef:     page,
	}
	if n.Location.Path != "" {
		t.DeclaredIn = filepath.Base(n.Location.Path)
	}
	if n.Deprecated {
		t.Deprecation = n.DeprecationComment
		if t.Deprecation == "" {
			t.Deprecation = "Deprecated."
		}
	}
	if _, anchor, ok := strings.Cut(n.HTMLPath, "#"); ok {
		t.Anchor = anchor
	}
	return t
}

// searchableMembers lists the members of n below the page level, parameters excluded.
func searchableMembers(n *model.Node) []*model.Node {
	var out []*model.Node
	var walk func(*model.Node)
	walk = func(owner *model.Node) {
		for _, m := range owner.Members() {
			if m.Kind == model.KindParameter || m.AppleRef == "" {
				continue
			}
			out = append(out, m)
			walk(m)
		}
	}
	walk(n)
	return out
}

func marshalXML(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func displayName(n *model.Node) string {
	if n.Kind == model.KindCategory && n.ExtendedClassName != "" {
		return n.ExtendedClassName + "(" + n.Name + ")"
	}
	return n.Name
}

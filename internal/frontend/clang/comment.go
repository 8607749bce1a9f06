package clang

import (
	"strings"

	"git.home.luguber.info/inful/doctool/internal/decl"
)

// convertComment flattens a FullComment node into paragraphs, parameter docs and block
// commands. Paragraph text keeps the comment's line breaks.
func convertComment(full *node) *decl.Comment {
	c := &decl.Comment{}
	for _, part := range full.Inner {
		switch part.Kind {
		case "ParagraphComment":
			for i, seg := range splitParagraph(part.Inner) {
				text := paragraphText(seg.parts)
				if i > 0 || seg.command != "" {
					c.Blocks = append(c.Blocks, decl.BlockCommand{Name: seg.command, Text: text})
				} else if text != "" {
					c.Paragraphs = append(c.Paragraphs, text)
				}
			}
		case "BlockCommandComment":
			text := blockText(part)
			switch strings.ToLower(part.Name) {
			case "return", "returns", "result":
				c.Returns = text
			default:
				c.Blocks = append(c.Blocks, decl.BlockCommand{Name: part.Name, Text: text})
			}
		case "ParamCommandComment":
			c.Params = append(c.Params, decl.ParamComment{Name: part.Param, Text: blockText(part)})
		case "VerbatimLineComment":
			c.Blocks = append(c.Blocks, decl.BlockCommand{Name: part.Name, Text: strings.TrimSpace(part.Text)})
		case "VerbatimBlockComment":
			var lines []string
			for _, l := range part.Inner {
				lines = append(lines, l.Text)
			}
			c.Paragraphs = append(c.Paragraphs, "```\n"+strings.Join(lines, "\n")+"\n```")
		}
	}
	return c
}

func blockText(n *node) string {
	var paras []string
	for _, p := range n.Inner {
		if p.Kind != "ParagraphComment" {
			continue
		}
		if text := paragraphText(p.Inner); text != "" {
			paras = append(paras, text)
		}
	}
	return strings.Join(paras, "\n\n")
}

type segment struct {
	command string
	parts   []*node
}

// splitParagraph cuts a paragraph at unknown commands that open a line, such as
// "@task Lifecycle". Clang reports those as inline commands without arguments; the text
// after one belongs to the command.
func splitParagraph(parts []*node) []segment {
	segs := []segment{{}}
	line, lineHasText := -1, false
	for _, p := range parts {
		if p.located && p.at.Line != line {
			line, lineHasText = p.at.Line, false
		}
		if p.Kind == "InlineCommandComment" && p.RenderKind == "normal" && len(p.Args) == 0 && !lineHasText {
			segs = append(segs, segment{command: p.Name})
			continue
		}
		if p.Kind != "TextComment" || strings.TrimSpace(p.Text) != "" {
			lineHasText = true
		}
		last := &segs[len(segs)-1]
		last.parts = append(last.parts, p)
	}
	return segs
}

func paragraphText(parts []*node) string {
	var b strings.Builder
	line := -1
	for _, p := range parts {
		if p.located && line >= 0 && p.at.Line > line {
			b.WriteByte('\n')
		}
		if p.located {
			line = p.at.Line
		}
		switch p.Kind {
		case "TextComment":
			b.WriteString(p.Text)
		case "InlineCommandComment":
			b.WriteString(inlineCommand(p))
		case "HTMLStartTagComment":
			b.WriteString("<" + p.Name + ">")
		case "HTMLEndTagComment":
			b.WriteString("</" + p.Name + ">")
		}
	}
	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func inlineCommand(p *node) string {
	arg := strings.Join(p.Args, " ")
	switch p.RenderKind {
	case "monospaced":
		return "`" + arg + "`"
	case "emphasized":
		return "*" + arg + "*"
	case "bold":
		return "**" + arg + "**"
	case "anchor":
		return ""
	}
	return arg
}

package readnotes

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/russross/blackfriday/v2"
	"golang.org/x/net/html"
)

// DefaultBackground is the built-in background given to notes that do not
// name one.
const DefaultBackground = "plain"

const summaryHeading = "summary"

// ParseMarkdown reads a note written as Markdown:
//
//	# Title
//	> selected passage
//	thoughts about the passage
//	![](https://example.com/illustration.png)
//	## Summary
//	summary text
//
// Each blockquote starts a new entry; paragraphs after it are its thoughts and
// the first image becomes its illustration. Paragraphs before the first
// blockquote are ignored.
func ParseMarkdown(r io.Reader) (*Note, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading markdown: %w", err)
	}

	htmlContent := blackfriday.Run(content)
	doc, err := html.Parse(bytes.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	p := &markdownNote{note: &Note{
		FontSize:   DefaultFontSize,
		Font:       FontSystem.ID(),
		Background: DefaultBackground,
	}}
	if body := findElement(doc, "body"); body != nil {
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			p.visit(c)
		}
	}
	p.flush()
	return p.note, nil
}

type markdownNote struct {
	note      *Note
	current   *NoteEntry
	inSummary bool
}

func (p *markdownNote) visit(n *html.Node) {
	if n.Type != html.ElementNode {
		return
	}
	switch n.Data {
	case "h1":
		if p.note.Title == "" {
			p.note.Title = collapseSpace(getTextContent(n))
		}
	case "h2", "h3", "h4", "h5", "h6":
		heading := strings.TrimSuffix(collapseSpace(getTextContent(n)), ":")
		p.inSummary = strings.EqualFold(heading, summaryHeading)
		p.flush()
	case "blockquote":
		if p.inSummary {
			p.appendSummary(getTextContent(n))
			return
		}
		p.flush()
		p.current = &NoteEntry{Text: collapseSpace(getTextContent(n))}
	case "p", "ul", "ol", "pre":
		if p.inSummary {
			p.appendSummary(getTextContent(n))
			return
		}
		if p.current == nil {
			return
		}
		if src := firstImageSource(n); src != "" && !p.current.HasImage() {
			p.current.ImageURL = src
		}
		p.current.Thoughts = joinText(p.current.Thoughts, getTextContent(n))
	}
}

func (p *markdownNote) appendSummary(text string) {
	p.note.Summary = joinText(p.note.Summary, text)
}

func (p *markdownNote) flush() {
	if p.current != nil {
		p.note.Entries = append(p.note.Entries, *p.current)
		p.current = nil
	}
}

func joinText(existing, text string) string {
	text = collapseSpace(text)
	switch {
	case text == "":
		return existing
	case existing == "":
		return text
	default:
		return existing + " " + text
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstImageSource(n *html.Node) string {
	if img := findElement(n, "img"); img != nil {
		return getAttr(img, "src")
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return text.String()
}

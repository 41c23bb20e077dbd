package site

import (
	"strings"

	"golang.org/x/net/html"
)

// Excerpt extracts the plain text of the first paragraph of rendered HTML,
// for use on list and archive pages. Parsing failures yield an empty excerpt;
// a summary is optional content.
func Excerpt(htmlBody string) string {
	node, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return ""
	}

	para := findFirst(node, "p")
	if para == nil {
		return ""
	}

	var b strings.Builder
	collectText(para, &b)
	return strings.TrimSpace(b.String())
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

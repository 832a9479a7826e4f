package iea

import (
	"strings"

	"golang.org/x/net/html"
)

// hasClass reports whether n carries the CSS class cls.
func hasClass(n *html.Node, cls string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == cls {
			return true
		}
	}
	return false
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// isElement reports whether n is an element with the given tag.
func isElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == tag
}

// findAll returns the descendants of n matching match, in document order.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode && match(child) {
				out = append(out, child)
			}
			walk(child)
		}
	}
	walk(n)
	return out
}

// findFirst returns the first descendant of n matching match, or nil.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && match(child) {
			return child
		}
		if found := findFirst(child, match); found != nil {
			return found
		}
	}
	return nil
}

// byTagClass matches elements with the tag and CSS class.
func byTagClass(tag, cls string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Data == tag && hasClass(n, cls)
	}
}

// nextElementSibling returns the next sibling element of n, or nil.
func nextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// textContent returns the text of n with whitespace runs collapsed to single spaces.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
			return
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

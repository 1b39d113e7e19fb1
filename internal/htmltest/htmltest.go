// Package htmltest queries rendered HTML in tests.
package htmltest

import (
	"strings"
	"testing"

	"github.com/andybalholm/cascadia"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// Parse parses a rendered fragment into a full document tree.
func Parse(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

// QueryAll returns every node below n matching the CSS selector.
func QueryAll(t *testing.T, n *html.Node, selector string) []*html.Node {
	t.Helper()
	sel, err := cascadia.Compile(selector)
	require.NoError(t, err, "selector %q", selector)
	return cascadia.QueryAll(n, sel)
}

// Query returns the single node below n matching the selector and fails the
// test when there is not exactly one.
func Query(t *testing.T, n *html.Node, selector string) *html.Node {
	t.Helper()
	nodes := QueryAll(t, n, selector)
	require.Len(t, nodes, 1, "selector %q", selector)
	return nodes[0]
}

// Attr returns the value of an attribute and whether it is present.
func Attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

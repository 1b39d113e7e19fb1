package sections

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"

	"github.com/neuroplastio/mdplug/internal/htmltest"
)

func render(t *testing.T, source string, opts ...Option) string {
	t.Helper()
	md := goldmark.New(goldmark.WithExtensions(New(opts...)))
	var buf bytes.Buffer
	require.NoError(t, md.Convert([]byte(source), &buf))
	return buf.String()
}

func TestNesting(t *testing.T) {
	out := render(t, "# A\ntext\n## B\nmore\n# C\nend\n")
	expected := "<section id=\"a\">\n<h1>A</h1>\n<p>text</p>\n" +
		"<section id=\"b\">\n<h2>B</h2>\n<p>more</p>\n</section>\n" +
		"</section>\n" +
		"<section id=\"c\">\n<h1>C</h1>\n<p>end</p>\n</section>\n"
	assert.Equal(t, expected, out)
}

func TestHigherLevelEndsSection(t *testing.T) {
	doc := htmltest.Parse(t, render(t, "## Two\nx\n# One\ny\n### Three\nz\n"))
	htmltest.Query(t, doc, "body > section#two > h2")
	htmltest.Query(t, doc, "body > section#one > section#three > h3")
	assert.Empty(t, htmltest.QueryAll(t, doc, "section#two section"))
}

func TestLeadingContentStaysOutside(t *testing.T) {
	doc := htmltest.Parse(t, render(t, "intro\n\n# Head\nbody\n"))
	p := htmltest.QueryAll(t, doc, "body > p")
	require.Len(t, p, 1)
	assert.Equal(t, "intro", htmltest.Text(p[0]))
}

func TestDuplicateIDs(t *testing.T) {
	doc := htmltest.Parse(t, render(t, "# Intro\n# Intro\n# Intro\n"))
	sections := htmltest.QueryAll(t, doc, "section")
	require.Len(t, sections, 3)
	var ids []string
	for _, s := range sections {
		id, _ := htmltest.Attr(s, "id")
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"intro", "intro-1", "intro-2"}, ids)
}

func TestNestedBlocksNotWrapped(t *testing.T) {
	out := render(t, "> # Quoted\n")
	assert.NotContains(t, out, "<section")
}

func TestID(t *testing.T) {
	type testCase struct {
		style    IDStyle
		heading  string
		expected string
	}

	testCases := []testCase{
		{style: IDStylePlain, heading: " Hello  World! ", expected: "hello-world!"},
		{style: IDStylePlain, heading: "Section 1A", expected: "section-1a"},
		{style: IDStyleKebab, heading: "Hello World", expected: "hello-world"},
		{style: IDStyleSnake, heading: "Hello World", expected: "hello_world"},
		{style: IDStylePlain, heading: "", expected: "section"},
	}

	for _, tc := range testCases {
		t.Run(string(tc.style)+"/"+tc.heading, func(t *testing.T) {
			assert.Equal(t, tc.expected, ID(tc.style, tc.heading))
		})
	}
}

func TestWithIDStyle(t *testing.T) {
	doc := htmltest.Parse(t, render(t, "# Getting Started\n", WithIDStyle(IDStyleSnake)))
	htmltest.Query(t, doc, "section#getting_started")
}

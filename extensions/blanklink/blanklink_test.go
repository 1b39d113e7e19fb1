package blanklink

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
)

func render(t *testing.T, source string, opts ...Option) string {
	t.Helper()
	md := goldmark.New(goldmark.WithExtensions(New(opts...)))
	var buf bytes.Buffer
	require.NoError(t, md.Convert([]byte(source), &buf))
	return buf.String()
}

func TestBlankLink(t *testing.T) {
	type testCase struct {
		name     string
		source   string
		expected string
	}

	testCases := []testCase{
		{
			name:     "blank",
			source:   "?[site](https://example.com)",
			expected: "<p><a href=\"https://example.com\" target=\"_blank\" rel=\"noreferrer noopener\">site</a></p>\n",
		},
		{
			name:     "title and markup",
			source:   "go ?[**here**](/x \"T\") now",
			expected: "<p>go <a href=\"/x\" title=\"T\" target=\"_blank\" rel=\"noreferrer noopener\"><strong>here</strong></a> now</p>\n",
		},
		{
			name:     "plain link",
			source:   "[plain](/u)",
			expected: "<p><a href=\"/u\">plain</a></p>\n",
		},
		{
			name:     "no link follows",
			source:   "what?[x]",
			expected: "<p>what?[x]</p>\n",
		},
		{
			name:     "after bang",
			source:   "!?[x](/u)",
			expected: "<p>!?<a href=\"/u\">x</a></p>\n",
		},
		{
			name:     "question mark",
			source:   "Really?",
			expected: "<p>Really?</p>\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, render(t, tc.source))
		})
	}
}

func TestExtraText(t *testing.T) {
	out := render(t, "?[site](/u)", WithExtraText(" (new tab)"))
	assert.Equal(t, "<p><a href=\"/u\" target=\"_blank\" rel=\"noreferrer noopener\">site (new tab)</a></p>\n", out)
}

package propdsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestParse(t *testing.T) {
	type testCase struct {
		input    string
		expected Properties
	}

	testCases := []testCase{
		{
			input:    ``,
			expected: Properties{},
		},
		{
			input: `.a .b`,
			expected: Properties{
				CellClasses: []ClassName{"a", "b"},
			},
		},
		{
			input: `+.total .num-cell +!1 !2 >3 ^2`,
			expected: Properties{
				RowClasses:     []ClassName{"total"},
				CellClasses:    []ClassName{"num-cell"},
				RowHighlights:  []Highlight{"1"},
				CellHighlights: []Highlight{"2"},
				Colspan:        ptr(SpanCount("3")),
				Rowspan:        ptr(SpanCount("2")),
			},
		},
		{
			input: ` +.a+.b .c.d `,
			expected: Properties{
				RowClasses:  []ClassName{"a", "b"},
				CellClasses: []ClassName{"c", "d"},
			},
		},
		{
			input: `^12`,
			expected: Properties{
				Rowspan: ptr(SpanCount("12")),
			},
		},
		{
			input: `+!1 +!7 !3`,
			expected: Properties{
				RowHighlights:  []Highlight{"1", "7"},
				CellHighlights: []Highlight{"3"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			result, err := Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestParseRejectsOutOfOrder(t *testing.T) {
	inputs := []string{
		`.a +.b`,
		`>2 .a`,
		`^2 >2`,
		`!1 +!1`,
		`>2 >3`,
		`.1abc`,
		`+ .a`,
		`>x`,
		`^99999999999999999999`,
		`>99999999999999999999`,
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestMatch(t *testing.T) {
	props, length, ok := Match("!{.a .b} text")
	require.True(t, ok)
	assert.Equal(t, len("!{.a .b}"), length)
	assert.Equal(t, []ClassName{"a", "b"}, props.CellClasses)

	_, _, ok = Match(" !{.a} text")
	assert.False(t, ok, "tag must open the cell")

	_, _, ok = Match("!{>2 .a} text")
	assert.False(t, ok, "out of order tag is left as text")

	_, _, ok = Match("!{^99999999999999999999} text")
	assert.False(t, ok, "overflowing span is left as text")

	_, _, ok = Match("plain")
	assert.False(t, ok)

	props, length, ok = Match("!{}x")
	require.True(t, ok)
	assert.Equal(t, 3, length)
	assert.Equal(t, Properties{}, props)
}

func TestSpanCountValue(t *testing.T) {
	assert.Equal(t, 3, SpanCount("3").Value(false))
	assert.Equal(t, 3, SpanCount("3").Value(true))
	assert.Equal(t, 12, SpanCount("12").Value(false))
	assert.Equal(t, 1, SpanCount("12").Value(true))
	assert.Equal(t, 0, SpanCount("").Value(false))
}

func TestHighlightClass(t *testing.T) {
	assert.Equal(t, "table-highlight-4", Highlight("4").Class())
}

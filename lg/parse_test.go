package lg

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLG = `> shared templates
[base](./base.lg)

# Greeting
- Hi there
- Hello there

# Welcome(user, time)
- Good ${time}, ${user.name}

# Alarms
- ` + "```" + `you have alarms
  alarm1
` + "```" + `

# Known(user)
- IF: ${user.name != null}
    - Welcome back
- ELSEIF: ${user.age > 10}
    - Hello
- ELSE:
    - Who are you?

# Mood(m)
- SWITCH: ${m}
- CASE: ${"happy"}
    - Great!
- DEFAULT:
    - Hmm.

# Card
[Activity
    Text = hello
    Speak = ${Greeting()}
]
`

func TestParse_Structure(t *testing.T) {
	f, err := Parse("common.lg", sampleLG)
	require.NoError(t, err)

	want := &File{
		Source:  "common.lg",
		Imports: []string{"./base.lg"},
		Templates: []*Template{
			{Name: "Greeting", Kind: BodyVariants, Variants: []string{"Hi there", "Hello there"}, Source: "common.lg", Line: 4},
			{Name: "Welcome", Params: []string{"user", "time"}, Kind: BodyVariants, Variants: []string{"Good ${time}, ${user.name}"}, Source: "common.lg", Line: 8},
			{Name: "Alarms", Kind: BodyVariants, Variants: []string{"you have alarms\n  alarm1"}, Source: "common.lg", Line: 11},
			{Name: "Known", Params: []string{"user"}, Kind: BodyIfElse, Source: "common.lg", Line: 16, Branches: []Branch{
				{Keyword: "IF", Expr: "user.name != null", Variants: []string{"Welcome back"}},
				{Keyword: "ELSEIF", Expr: "user.age > 10", Variants: []string{"Hello"}},
				{Keyword: "ELSE", Variants: []string{"Who are you?"}},
			}},
			{Name: "Mood", Params: []string{"m"}, Kind: BodySwitch, Switch: "m", Source: "common.lg", Line: 24, Branches: []Branch{
				{Keyword: "CASE", Expr: `${"happy"}`, Variants: []string{"Great!"}},
				{Keyword: "DEFAULT", Variants: []string{"Hmm."}},
			}},
			{Name: "Card", Kind: BodyStructured, Type: "Activity", Source: "common.lg", Line: 31, Properties: []Property{
				{Key: "Text", Value: "hello"},
				{Key: "Speak", Value: "${Greeting()}"},
			}},
		},
	}

	if diff := cmp.Diff(want, f); diff != "" {
		t.Fatalf("parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		line    int
	}{
		{"body outside template", "- hello", 1},
		{"empty template", "# A\n# B\n- x", 2},
		{"duplicate", "# A\n- x\n# A\n- y", 3},
		{"bad header", "# 1abc\n- x", 1},
		{"else without if", "# A\n- ELSE:\n  - x", 2},
		{"elseif after else", "# A\n- IF: ${true}\n  - a\n- ELSE:\n  - b\n- ELSEIF: ${false}\n  - c", 6},
		{"case without switch", "# A\n- CASE: x\n  - y", 2},
		{"empty branch", "# A\n- IF: ${true}\n- ELSE:\n  - b", 3},
		{"mixed variants", "# A\n- text\n- IF: ${true}\n  - x", 3},
		{"unterminated fence", "# A\n- ```abc\nmore", 3},
		{"stray text", "# A\nhello", 2},
		{"bad structured line", "# A\n[Activity\n  nonsense\n]", 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("bad.lg", tc.content)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected ParseError, got %T", err)
			assert.Equal(t, "bad.lg", perr.Source)
			assert.Equal(t, tc.line, perr.Line)
		})
	}
}

func TestParse_CommentsAndBlankLinesIgnored(t *testing.T) {
	f, err := Parse("a.lg", "\r\n> top\r\n# A\r\n> inner\r\n- x\r\n\r\n")
	require.NoError(t, err)
	require.Len(t, f.Templates, 1)
	assert.Equal(t, []string{"x"}, f.Templates[0].Variants)
}

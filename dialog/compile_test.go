package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"unknown action", "triggers:\n  - kind: OnBeginDialog\n    actions:\n      - kind: Teleport\n", "unsupported action kind"},
		{"missing kind", "triggers:\n  - kind: OnBeginDialog\n    actions:\n      - activity: hi\n", "kind is required"},
		{"unknown trigger", "triggers:\n  - kind: OnIntent\n", "unsupported kind"},
		{"send without activity", "triggers:\n  - kind: OnBeginDialog\n    actions:\n      - kind: SendActivity\n", "activity is required"},
		{"choice without choices", "triggers:\n  - kind: OnBeginDialog\n    actions:\n      - kind: ChoiceInput\n        property: dialog.x\n        prompt: pick\n", "choices are required"},
		{"bad style", "triggers:\n  - kind: OnBeginDialog\n    actions:\n      - kind: ChoiceInput\n        property: dialog.x\n        prompt: pick\n        style: fancy\n        choices: [a]\n", "unsupported style"},
		{"input without property", "triggers:\n  - kind: OnBeginDialog\n    actions:\n      - kind: TextInput\n        prompt: name?\n", "property is required"},
		{"nested error", "triggers:\n  - kind: OnBeginDialog\n    actions:\n      - kind: IfCondition\n        condition: \"true\"\n        actions:\n          - kind: Nope\n", "t0.a0.t.a0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def, err := ParseDefinition("Bad.dialog", []byte(tc.src))
			require.NoError(t, err)
			_, err = Compile(def, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseDefinition_RejectsOtherKinds(t *testing.T) {
	_, err := ParseDefinition("X.dialog", []byte("kind: QnADialog\n"))
	require.Error(t, err)

	_, err = ParseDefinition("X.dialog", []byte("kind: [oops"))
	require.Error(t, err)
}

func TestCompile_ChildIDs(t *testing.T) {
	def, err := ParseDefinition("Main.dialog", []byte(`
triggers:
  - kind: OnConversationUpdate
    actions:
      - kind: BeginDialog
        dialog: Menu.dialog
  - kind: OnUnknownIntent
    actions:
      - kind: BeginDialog
        dialog: Menu
      - kind: SwitchCondition
        condition: turn.x
        default:
          - kind: BeginDialog
            dialog: Help
`))
	require.NoError(t, err)

	d, err := Compile(def, nil)
	require.NoError(t, err)
	assert.Equal(t, "Main", d.ID())
	assert.Equal(t, []string{"Help", "Menu"}, d.ChildIDs())
}

func TestChoiceInput_RecognizeAndRender(t *testing.T) {
	in := &choiceInput{
		choices: []Choice{{Value: "Red"}, {Value: "Green", Synonyms: []string{"lime"}}},
		style:   StyleList,
	}

	v, ok := in.recognize("2")
	require.True(t, ok)
	assert.Equal(t, "Green", v)

	v, ok = in.recognize("LIME")
	require.True(t, ok)
	assert.Equal(t, "Green", v)

	_, ok = in.recognize("3")
	assert.False(t, ok)
	_, ok = in.recognize("blue")
	assert.False(t, ok)

	in.outputFormat = OutputIndex
	v, ok = in.recognize("red")
	require.True(t, ok)
	assert.Equal(t, 0, v)

	assert.Equal(t, "Color?\n\n   1. Red\n   2. Green", in.render("Color?"))
	in.style = StyleInline
	assert.Equal(t, "Color? (1) Red, (2) Green", in.render("Color?"))
	in.style = StyleNone
	assert.Equal(t, "Color?", in.render("Color?"))
}

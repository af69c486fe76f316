package dialog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/internal/expr"
)

// Choice list styles.
const (
	StyleList   = "list"
	StyleInline = "inline"
	StyleNone   = "none"
)

// Choice output formats.
const (
	OutputValue = "value"
	OutputIndex = "index"
)

const (
	prompted  = "prompted"
	turnCount = "turnCount"
)

// inputBase implements the prompt / recognize / validate / re-prompt cycle
// shared by all inputs.
type inputBase struct {
	property      string
	prompt        string
	invalidPrompt string
	alwaysPrompt  bool
	maxTurnCount  int
	defaultValue  any
	validations   []string
}

type recognizer func(text string) (value any, ok bool)

type prompter func(text string) (core.Activity, error)

func (in *inputBase) run(dc *DialogContext, step *Step, recognize recognizer, render prompter) (outcome, error) {
	mem := dc.Memory()

	if !step.flag(prompted) {
		if !in.alwaysPrompt {
			if v, ok := mem.Get(in.property); ok && v != nil {
				return next, nil
			}
		}
		if err := in.send(dc, render, in.prompt); err != nil {
			return outcome{}, err
		}
		step.setFlag(prompted, true)
		return outcome{kind: outcomeWait}, nil
	}

	if dc.activityProcessed || !dc.TC.Activity.IsMessage() {
		return outcome{kind: outcomeWait}, nil
	}
	dc.activityProcessed = true

	if v, ok := recognize(strings.TrimSpace(dc.TC.Activity.Text)); ok {
		valid, err := in.validate(dc, v)
		if err != nil {
			return outcome{}, err
		}
		if valid {
			if err := mem.Set(in.property, v); err != nil {
				return outcome{}, err
			}
			return next, nil
		}
	}

	turns := step.count(turnCount) + 1
	step.setCount(turnCount, turns)

	if in.maxTurnCount > 0 && turns >= in.maxTurnCount {
		if in.defaultValue != nil {
			v, err := dc.EvaluateValue(in.defaultValue)
			if err != nil {
				return outcome{}, fmt.Errorf("defaultValue: %w", err)
			}
			if err := mem.Set(in.property, v); err != nil {
				return outcome{}, err
			}
		}
		return next, nil
	}

	text := in.invalidPrompt
	if text == "" {
		text = in.prompt
	}
	if err := in.send(dc, render, text); err != nil {
		return outcome{}, err
	}

	return outcome{kind: outcomeWait}, nil
}

func (in *inputBase) send(dc *DialogContext, render prompter, text string) error {
	if text == "" {
		return nil
	}
	act, err := render(text)
	if err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	return dc.TC.SendActivity(act)
}

// validate checks every validation expression against this.value.
func (in *inputBase) validate(dc *DialogContext, value any) (bool, error) {
	if len(in.validations) == 0 {
		return true, nil
	}

	v, err := expr.ToValue(value)
	if err != nil {
		return false, err
	}
	this := expr.Scope{"this": cty.ObjectVal(map[string]cty.Value{"value": v})}

	for _, src := range in.validations {
		res, err := dc.Evaluate(src, this)
		if err != nil {
			return false, fmt.Errorf("validation %s: %w", src, err)
		}
		ok, err := expr.Truthy(res)
		if err != nil {
			return false, fmt.Errorf("validation %s: %w", src, err)
		}
		if !ok {
			return false, nil
		}
	}

	return true, nil
}

type textInput struct {
	inputBase
}

func (a *textInput) kind() string { return KindTextInput }

func (a *textInput) execute(dc *DialogContext, step *Step) (outcome, error) {
	return a.run(dc, step, func(text string) (any, bool) {
		return text, text != ""
	}, dc.GenerateActivity)
}

// Choice is a ChoiceInput option.
type Choice struct {
	Value    string
	Synonyms []string
}

type choiceInput struct {
	inputBase
	choices      []Choice
	style        string
	outputFormat string
}

func (a *choiceInput) kind() string { return KindChoiceInput }

func (a *choiceInput) execute(dc *DialogContext, step *Step) (outcome, error) {
	return a.run(dc, step, a.recognize, func(text string) (core.Activity, error) {
		act, err := dc.GenerateActivity(text)
		if err != nil {
			return core.Activity{}, err
		}
		act.Text = a.render(act.Text)
		return act, nil
	})
}

// recognize accepts a 1-based ordinal or a value / synonym, ignoring case.
func (a *choiceInput) recognize(text string) (any, bool) {
	idx := -1
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(a.choices) {
		idx = n - 1
	} else {
		for i, c := range a.choices {
			if strings.EqualFold(c.Value, text) {
				idx = i
				break
			}
			for _, s := range c.Synonyms {
				if strings.EqualFold(s, text) {
					idx = i
				}
			}
			if idx >= 0 {
				break
			}
		}
	}

	if idx < 0 {
		return nil, false
	}
	if a.outputFormat == OutputIndex {
		return idx, true
	}
	return a.choices[idx].Value, true
}

// render appends the choices to the prompt text according to the style.
func (a *choiceInput) render(prompt string) string {
	switch a.style {
	case StyleNone:
		return prompt
	case StyleInline:
		parts := make([]string, len(a.choices))
		for i, c := range a.choices {
			parts[i] = fmt.Sprintf("(%d) %s", i+1, c.Value)
		}
		return prompt + " " + strings.Join(parts, ", ")
	default:
		var sb strings.Builder
		sb.WriteString(prompt)
		sb.WriteString("\n")
		for i, c := range a.choices {
			fmt.Fprintf(&sb, "\n   %d. %s", i+1, c.Value)
		}
		return sb.String()
	}
}

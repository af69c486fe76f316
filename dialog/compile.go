package dialog

import (
	"fmt"
	"sort"
	"strings"
)

// compiler flattens nested action definitions into path-addressed nodes so
// a persisted plan can refer to any action, however deeply nested.
type compiler struct {
	dialogID string
	nodes    map[string]action
	children map[string]bool
}

func newCompiler(dialogID string) *compiler {
	return &compiler{dialogID: dialogID, nodes: map[string]action{}, children: map[string]bool{}}
}

func (c *compiler) triggers(defs []TriggerDef) ([]trigger, error) {
	out := make([]trigger, 0, len(defs))
	for i, t := range defs {
		kind := normalizeKind(t.Kind, t.DollarKind)
		switch kind {
		case OnBeginDialog, OnConversationUpdate, OnMessageActivity, OnUnknownIntent:
		default:
			return nil, fmt.Errorf("dialog %s: trigger %d: unsupported kind %q", c.dialogID, i, kind)
		}
		steps, err := c.actions(fmt.Sprintf("t%d", i), t.Actions)
		if err != nil {
			return nil, err
		}
		out = append(out, trigger{kind: kind, condition: t.Condition, steps: steps})
	}
	return out, nil
}

func (c *compiler) actions(prefix string, defs []ActionDef) ([]string, error) {
	paths := make([]string, 0, len(defs))
	for i := range defs {
		p := fmt.Sprintf("%s.a%d", prefix, i)
		node, err := c.action(p, &defs[i])
		if err != nil {
			return nil, err
		}
		c.nodes[p] = node
		paths = append(paths, p)
	}
	return paths, nil
}

func (c *compiler) action(path string, def *ActionDef) (action, error) {
	kind := normalizeKind(def.Kind, def.DollarKind)
	fail := func(format string, args ...any) error {
		return fmt.Errorf("dialog %s: %s at %s: %s", c.dialogID, kind, path, fmt.Sprintf(format, args...))
	}

	switch kind {
	case KindSendActivity:
		if def.Activity == "" {
			return nil, fail("activity is required")
		}
		return &sendActivity{activity: def.Activity}, nil
	case KindSetProperty:
		if def.Property == "" {
			return nil, fail("property is required")
		}
		return &setProperty{property: def.Property, value: def.Value}, nil
	case KindDeleteProperty:
		if def.Property == "" {
			return nil, fail("property is required")
		}
		return &deleteProperty{property: def.Property}, nil
	case KindTextInput:
		base, err := inputFrom(def)
		if err != nil {
			return nil, fail("%v", err)
		}
		return &textInput{inputBase: base}, nil
	case KindChoiceInput:
		base, err := inputFrom(def)
		if err != nil {
			return nil, fail("%v", err)
		}
		if len(def.Choices) == 0 {
			return nil, fail("choices are required")
		}
		choices := make([]Choice, len(def.Choices))
		for i, ch := range def.Choices {
			choices[i] = Choice{Value: ch.Value, Synonyms: ch.Synonyms}
		}
		style := strings.ToLower(def.Style)
		switch style {
		case "":
			style = StyleList
		case StyleList, StyleInline, StyleNone:
		default:
			return nil, fail("unsupported style %q", def.Style)
		}
		format := strings.ToLower(def.OutputFormat)
		switch format {
		case "":
			format = OutputValue
		case OutputValue, OutputIndex:
		default:
			return nil, fail("unsupported outputFormat %q", def.OutputFormat)
		}
		return &choiceInput{inputBase: base, choices: choices, style: style, outputFormat: format}, nil
	case KindSwitchCondition:
		if def.Condition == "" {
			return nil, fail("condition is required")
		}
		node := &switchCondition{condition: def.Condition}
		for i, cs := range def.Cases {
			steps, err := c.actions(fmt.Sprintf("%s.c%d", path, i), cs.Actions)
			if err != nil {
				return nil, err
			}
			node.cases = append(node.cases, switchCase{value: fmt.Sprint(cs.Value), steps: steps})
		}
		steps, err := c.actions(path+".d", def.Default)
		if err != nil {
			return nil, err
		}
		node.defaults = steps
		return node, nil
	case KindIfCondition:
		if def.Condition == "" {
			return nil, fail("condition is required")
		}
		steps, err := c.actions(path+".t", def.Actions)
		if err != nil {
			return nil, err
		}
		elseSteps, err := c.actions(path+".e", def.ElseActions)
		if err != nil {
			return nil, err
		}
		return &ifCondition{condition: def.Condition, steps: steps, elseSteps: elseSteps}, nil
	case KindBeginDialog:
		if def.Dialog == "" {
			return nil, fail("dialog is required")
		}
		id := strings.TrimSuffix(def.Dialog, ".dialog")
		c.children[id] = true
		return &beginDialog{dialog: id, options: def.Options, resultProperty: def.ResultProperty}, nil
	case KindEndDialog:
		return &endDialog{value: def.Value}, nil
	case KindRepeatDialog:
		return &repeatDialog{options: def.Options}, nil
	case KindLogAction:
		if def.Text == "" {
			return nil, fail("text is required")
		}
		return &logAction{text: def.Text, label: def.Label, traceActivity: def.TraceActivity}, nil
	case "":
		return nil, fail("kind is required")
	default:
		return nil, fail("unsupported action kind")
	}
}

func inputFrom(def *ActionDef) (inputBase, error) {
	if def.Property == "" {
		return inputBase{}, fmt.Errorf("property is required")
	}
	if def.Prompt == "" {
		return inputBase{}, fmt.Errorf("prompt is required")
	}
	if def.MaxTurnCount < 0 {
		return inputBase{}, fmt.Errorf("maxTurnCount must not be negative")
	}
	return inputBase{
		property:      def.Property,
		prompt:        def.Prompt,
		invalidPrompt: def.InvalidPrompt,
		alwaysPrompt:  def.AlwaysPrompt,
		maxTurnCount:  def.MaxTurnCount,
		defaultValue:  def.DefaultValue,
		validations:   def.Validations,
	}, nil
}

// Compile builds an AdaptiveDialog from a definition. Child dialogs named by
// BeginDialog actions are resolved later through the dialog's children or
// the manager.
func Compile(def *Definition, generator Generator) (*AdaptiveDialog, error) {
	c := newCompiler(def.ID)

	triggers, err := c.triggers(def.Triggers)
	if err != nil {
		return nil, err
	}

	autoEnd := true
	if def.AutoEndDialog != nil {
		autoEnd = *def.AutoEndDialog
	}

	childIDs := make([]string, 0, len(c.children))
	for id := range c.children {
		childIDs = append(childIDs, id)
	}
	sort.Strings(childIDs)

	return &AdaptiveDialog{
		Base:          NewBase(def.ID),
		generator:     generator,
		autoEndDialog: autoEnd,
		triggers:      triggers,
		nodes:         c.nodes,
		childIDs:      childIDs,
	}, nil
}

package dialog

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Trigger kinds.
const (
	OnBeginDialog        = "OnBeginDialog"
	OnConversationUpdate = "OnConversationUpdate"
	OnMessageActivity    = "OnMessageActivity"
	OnUnknownIntent      = "OnUnknownIntent"
)

// Action kinds.
const (
	KindSendActivity    = "SendActivity"
	KindSetProperty     = "SetProperty"
	KindDeleteProperty  = "DeleteProperty"
	KindTextInput       = "TextInput"
	KindChoiceInput     = "ChoiceInput"
	KindSwitchCondition = "SwitchCondition"
	KindIfCondition     = "IfCondition"
	KindBeginDialog     = "BeginDialog"
	KindEndDialog       = "EndDialog"
	KindRepeatDialog    = "RepeatDialog"
	KindLogAction       = "LogAction"
)

// KindAdaptiveDialog is the only supported root kind.
const KindAdaptiveDialog = "AdaptiveDialog"

// Definition is the declarative form of an adaptive dialog. Both YAML and
// JSON documents decode into it; "$kind" is accepted as an alias of "kind".
type Definition struct {
	Kind          string       `yaml:"kind"`
	DollarKind    string       `yaml:"$kind"`
	ID            string       `yaml:"id"`
	Generator     string       `yaml:"generator"`
	AutoEndDialog *bool        `yaml:"autoEndDialog"`
	Triggers      []TriggerDef `yaml:"triggers"`
}

// TriggerDef binds a dialog event to a list of actions.
type TriggerDef struct {
	Kind       string      `yaml:"kind"`
	DollarKind string      `yaml:"$kind"`
	Condition  string      `yaml:"condition"`
	Actions    []ActionDef `yaml:"actions"`
}

// ActionDef is the union of every action's fields.
type ActionDef struct {
	Kind       string `yaml:"kind"`
	DollarKind string `yaml:"$kind"`

	// SendActivity, LogAction
	Activity      string `yaml:"activity"`
	Text          string `yaml:"text"`
	TraceActivity bool   `yaml:"traceActivity"`
	Label         string `yaml:"label"`

	// SetProperty, DeleteProperty, inputs
	Property string `yaml:"property"`
	Value    any    `yaml:"value"`

	// inputs
	Prompt        string      `yaml:"prompt"`
	InvalidPrompt string      `yaml:"invalidPrompt"`
	AlwaysPrompt  bool        `yaml:"alwaysPrompt"`
	MaxTurnCount  int         `yaml:"maxTurnCount"`
	DefaultValue  any         `yaml:"defaultValue"`
	Validations   []string    `yaml:"validations"`
	Choices       []ChoiceDef `yaml:"choices"`
	Style         string      `yaml:"style"`
	OutputFormat  string      `yaml:"outputFormat"`

	// IfCondition, SwitchCondition
	Condition   string      `yaml:"condition"`
	Cases       []CaseDef   `yaml:"cases"`
	Default     []ActionDef `yaml:"default"`
	Actions     []ActionDef `yaml:"actions"`
	ElseActions []ActionDef `yaml:"elseActions"`

	// BeginDialog, RepeatDialog
	Dialog         string         `yaml:"dialog"`
	Options        map[string]any `yaml:"options"`
	ResultProperty string         `yaml:"resultProperty"`
}

// ChoiceDef is a ChoiceInput option. A plain scalar is shorthand for a
// choice with only a value.
type ChoiceDef struct {
	Value    string   `yaml:"value"`
	Synonyms []string `yaml:"synonyms"`
}

// UnmarshalYAML accepts either a scalar or a mapping.
func (c *ChoiceDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.Value = node.Value
		return nil
	}

	type plain ChoiceDef

	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}

	*c = ChoiceDef(p)

	return nil
}

// CaseDef is one SwitchCondition branch.
type CaseDef struct {
	Value   any         `yaml:"value"`
	Actions []ActionDef `yaml:"actions"`
}

// ParseDefinition decodes a dialog document. Missing ids default to the
// resource name without extension.
func ParseDefinition(resourceID string, data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse %s: %w", resourceID, err)
	}

	def.Kind = normalizeKind(def.Kind, def.DollarKind)
	if def.Kind == "" {
		def.Kind = KindAdaptiveDialog
	}
	if def.Kind != KindAdaptiveDialog {
		return nil, fmt.Errorf("parse %s: unsupported dialog kind %q", resourceID, def.Kind)
	}

	if def.ID == "" {
		def.ID = strings.TrimSuffix(resourceID, ".dialog")
	}

	return &def, nil
}

// normalizeKind picks the declared kind and strips a namespace prefix, so
// "Microsoft.SendActivity" and "SendActivity" are equivalent.
func normalizeKind(kind, dollar string) string {
	if kind == "" {
		kind = dollar
	}
	if i := strings.LastIndex(kind, "."); i >= 0 {
		kind = kind[i+1:]
	}
	return kind
}

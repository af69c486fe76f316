package dialog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/internal/expr"
	"github.com/hupe1980/dialogmesh/lg"
	"github.com/hupe1980/dialogmesh/logging"
)

// GeneratorKey is the turn state key under which middleware may install the
// default Generator for dialogs that do not declare their own.
const GeneratorKey = "dialog.generator"

// Generator renders ${...} text. *lg.Templates implements it.
type Generator interface {
	Generate(text string, scope expr.Scope) (cty.Value, error)
	Functions(scope expr.Scope) expr.Functions
}

var _ Generator = (*lg.Templates)(nil)

// plainGenerator renders templates with the builtin functions only.
type plainGenerator struct{}

func (plainGenerator) Generate(text string, scope expr.Scope) (cty.Value, error) {
	return expr.RenderValue(text, scope, expr.Builtins())
}

func (plainGenerator) Functions(expr.Scope) expr.Functions { return expr.Builtins() }

// DialogContext is the dialog stack for one turn plus the memory scopes and
// evaluation helpers actions need.
type DialogContext struct {
	TC *core.TurnContext

	stack  []*Instance
	find   func(id string) (Dialog, bool)
	user   map[string]any
	conv   map[string]any
	turn   map[string]any
	logger logging.Logger

	steps    int
	maxSteps int

	activityProcessed bool
	fired             map[*Instance]bool
	running           map[*Instance]bool
}

func newDialogContext(tc *core.TurnContext, find func(string) (Dialog, bool), stack []*Instance, user, conv map[string]any, logger logging.Logger, maxSteps int) (*DialogContext, error) {
	activity, err := activityMap(tc.Activity)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &DialogContext{
		TC:       tc,
		stack:    stack,
		find:     find,
		user:     user,
		conv:     conv,
		turn:     map[string]any{"activity": activity},
		logger:   logger,
		maxSteps: maxSteps,
		fired:    map[*Instance]bool{},
		running:  map[*Instance]bool{},
	}, nil
}

// Stack returns the dialog stack, bottom first.
func (dc *DialogContext) Stack() []*Instance {
	return append([]*Instance(nil), dc.stack...)
}

// Active returns the instance on top of the stack, or nil.
func (dc *DialogContext) Active() *Instance {
	if len(dc.stack) == 0 {
		return nil
	}
	return dc.stack[len(dc.stack)-1]
}

// ActiveDialog resolves the dialog on top of the stack.
func (dc *DialogContext) ActiveDialog() (Dialog, error) {
	inst := dc.Active()
	if inst == nil {
		return nil, fmt.Errorf("dialog stack is empty")
	}
	d, ok := dc.find(inst.ID)
	if !ok {
		return nil, notFound(inst.ID)
	}
	return d, nil
}

// BeginDialog pushes a new instance of id and begins it.
func (dc *DialogContext) BeginDialog(id string, options map[string]any) (TurnResult, error) {
	d, ok := dc.find(id)
	if !ok {
		return TurnResult{}, notFound(id)
	}

	dc.stack = append(dc.stack, &Instance{ID: id, Memory: map[string]any{}})
	dc.logger.Debug("dialog started", "dialog", id, "depth", len(dc.stack))

	return d.Begin(dc, options)
}

// ContinueDialog continues the dialog on top of the stack.
func (dc *DialogContext) ContinueDialog() (TurnResult, error) {
	if len(dc.stack) == 0 {
		return TurnResult{Status: StatusEmpty}, nil
	}
	d, err := dc.ActiveDialog()
	if err != nil {
		return TurnResult{}, err
	}
	return d.Continue(dc)
}

// EndDialog pops the active instance and hands result to the parent. A
// parent that is still executing the action which began the child receives
// the result as the return value instead of through Resume.
func (dc *DialogContext) EndDialog(result any) (TurnResult, error) {
	if n := len(dc.stack); n > 0 {
		dc.logger.Debug("dialog ended", "dialog", dc.stack[n-1].ID, "depth", n)
		dc.stack = dc.stack[:n-1]
	}

	parent := dc.Active()
	if parent == nil || dc.running[parent] {
		return TurnResult{Status: StatusComplete, Result: result}, nil
	}

	d, err := dc.ActiveDialog()
	if err != nil {
		return TurnResult{}, err
	}

	return d.Resume(dc, result)
}

// CancelAllDialogs empties the stack.
func (dc *DialogContext) CancelAllDialogs() TurnResult {
	dc.stack = nil
	return TurnResult{Status: StatusComplete}
}

// Memory returns the scopes visible to the active dialog.
func (dc *DialogContext) Memory() Memory {
	dialogMem := map[string]any{}
	if inst := dc.Active(); inst != nil {
		if inst.Memory == nil {
			inst.Memory = map[string]any{}
		}
		dialogMem = inst.Memory
	}
	return newMemory(dc.user, dc.conv, dialogMem, dc.turn)
}

// Generator returns the generator of the active dialog, falling back to the
// one installed in turn state, then to builtin-only rendering.
func (dc *DialogContext) Generator() Generator {
	if d, err := dc.ActiveDialog(); err == nil {
		if g, ok := d.(interface{ Generator() Generator }); ok && g.Generator() != nil {
			return g.Generator()
		}
	}
	if v, ok := dc.TC.Get(GeneratorKey); ok {
		if g, ok := v.(Generator); ok && g != nil {
			return g
		}
	}
	return plainGenerator{}
}

// Scope returns the expression variables for the active dialog, with extra
// variables layered on top.
func (dc *DialogContext) Scope(extra expr.Scope) (expr.Scope, error) {
	scope, err := dc.Memory().Scope()
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		scope[k] = v
	}
	return scope, nil
}

// Evaluate evaluates an expression; templates are callable as functions.
func (dc *DialogContext) Evaluate(src string, extra expr.Scope) (cty.Value, error) {
	scope, err := dc.Scope(extra)
	if err != nil {
		return cty.NilVal, err
	}
	return expr.Eval(src, scope, dc.Generator().Functions(scope))
}

// Condition evaluates a boolean expression. An empty condition is true.
func (dc *DialogContext) Condition(src string) (bool, error) {
	if strings.TrimSpace(src) == "" {
		return true, nil
	}
	v, err := dc.Evaluate(src, nil)
	if err != nil {
		return false, err
	}
	return expr.Truthy(v)
}

// EvaluateValue resolves a declared value: strings starting with "=" are
// expressions, strings containing ${...} are templates, maps and lists are
// resolved element-wise and anything else is returned as is.
func (dc *DialogContext) EvaluateValue(v any) (any, error) {
	switch t := v.(type) {
	case string:
		switch {
		case strings.HasPrefix(strings.TrimSpace(t), "="):
			cv, err := dc.Evaluate(t, nil)
			if err != nil {
				return nil, err
			}
			return expr.FromValue(cv)
		case strings.Contains(t, "${"):
			cv, err := dc.Generate(t)
			if err != nil {
				return nil, err
			}
			return expr.FromValue(cv)
		default:
			return t, nil
		}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			rv, err := dc.EvaluateValue(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = rv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			rv, err := dc.EvaluateValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}

// Generate renders text with the active generator.
func (dc *DialogContext) Generate(text string) (cty.Value, error) {
	scope, err := dc.Scope(nil)
	if err != nil {
		return cty.NilVal, err
	}
	return dc.Generator().Generate(text, scope)
}

// GenerateActivity renders text into an outbound message.
func (dc *DialogContext) GenerateActivity(text string) (core.Activity, error) {
	v, err := dc.Generate(text)
	if err != nil {
		return core.Activity{}, err
	}
	return lg.ActivityFromResult(v)
}

// ActivityProcessed reports whether an input consumed the turn's activity.
func (dc *DialogContext) ActivityProcessed() bool { return dc.activityProcessed }

func (dc *DialogContext) step() error {
	dc.steps++
	if dc.maxSteps > 0 && dc.steps > dc.maxSteps {
		return fmt.Errorf("%w: %d actions in one turn", ErrStepLimit, dc.maxSteps)
	}
	return nil
}

// activityMap exposes the inbound activity to expressions as turn.activity.
func activityMap(a core.Activity) (map[string]any, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode activity: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}
	return m, nil
}

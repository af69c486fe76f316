package dialog

import (
	"fmt"
	"strings"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/internal/expr"
)

type outcomeKind int

const (
	outcomeNext   outcomeKind = iota // pop the step
	outcomeWait                      // keep the step, end the turn
	outcomeExpand                    // replace the step with child steps
	outcomeEnd                       // end the dialog with result
	outcomeRepeat                    // restart the dialog with result as options
)

type outcome struct {
	kind   outcomeKind
	steps  []string
	result any
}

var next = outcome{kind: outcomeNext}

// action is a compiled, stateless action node. Per-execution state lives in
// the Step so it survives between turns.
type action interface {
	kind() string
	execute(dc *DialogContext, step *Step) (outcome, error)
}

// resumer is implemented by actions that wait for a child dialog.
type resumer interface {
	resume(dc *DialogContext, step *Step, result any) error
}

type sendActivity struct {
	activity string
}

func (a *sendActivity) kind() string { return KindSendActivity }

func (a *sendActivity) execute(dc *DialogContext, _ *Step) (outcome, error) {
	act, err := dc.GenerateActivity(a.activity)
	if err != nil {
		return outcome{}, err
	}
	if err := dc.TC.SendActivity(act); err != nil {
		return outcome{}, err
	}
	return next, nil
}

type setProperty struct {
	property string
	value    any
}

func (a *setProperty) kind() string { return KindSetProperty }

func (a *setProperty) execute(dc *DialogContext, _ *Step) (outcome, error) {
	v, err := dc.EvaluateValue(a.value)
	if err != nil {
		return outcome{}, err
	}
	if err := dc.Memory().Set(a.property, v); err != nil {
		return outcome{}, err
	}
	return next, nil
}

type deleteProperty struct {
	property string
}

func (a *deleteProperty) kind() string { return KindDeleteProperty }

func (a *deleteProperty) execute(dc *DialogContext, _ *Step) (outcome, error) {
	if err := dc.Memory().Delete(a.property); err != nil {
		return outcome{}, err
	}
	return next, nil
}

type switchCase struct {
	value string
	steps []string
}

type switchCondition struct {
	condition string
	cases     []switchCase
	defaults  []string
}

func (a *switchCondition) kind() string { return KindSwitchCondition }

func (a *switchCondition) execute(dc *DialogContext, _ *Step) (outcome, error) {
	v, err := dc.Evaluate(a.condition, nil)
	if err != nil {
		return outcome{}, err
	}

	if !v.IsNull() {
		key, err := expr.AsString(v)
		if err != nil {
			return outcome{}, fmt.Errorf("switch %s: %w", a.condition, err)
		}
		for _, c := range a.cases {
			want, err := a.caseValue(dc, c.value)
			if err != nil {
				return outcome{}, err
			}
			if want == key {
				return outcome{kind: outcomeExpand, steps: c.steps}, nil
			}
		}
	}

	return outcome{kind: outcomeExpand, steps: a.defaults}, nil
}

func (a *switchCondition) caseValue(dc *DialogContext, raw string) (string, error) {
	if !strings.HasPrefix(strings.TrimSpace(raw), "=") {
		return raw, nil
	}
	v, err := dc.Evaluate(raw, nil)
	if err != nil {
		return "", err
	}
	return expr.AsString(v)
}

type ifCondition struct {
	condition string
	steps     []string
	elseSteps []string
}

func (a *ifCondition) kind() string { return KindIfCondition }

func (a *ifCondition) execute(dc *DialogContext, _ *Step) (outcome, error) {
	v, err := dc.Evaluate(a.condition, nil)
	if err != nil {
		return outcome{}, err
	}
	ok, err := expr.Truthy(v)
	if err != nil {
		return outcome{}, fmt.Errorf("if %s: %w", a.condition, err)
	}
	if ok {
		return outcome{kind: outcomeExpand, steps: a.steps}, nil
	}
	return outcome{kind: outcomeExpand, steps: a.elseSteps}, nil
}

const waitingForChild = "waitingForChild"

type beginDialog struct {
	dialog         string
	options        map[string]any
	resultProperty string
}

func (a *beginDialog) kind() string { return KindBeginDialog }

func (a *beginDialog) execute(dc *DialogContext, step *Step) (outcome, error) {
	var options map[string]any
	if len(a.options) > 0 {
		v, err := dc.EvaluateValue(a.options)
		if err != nil {
			return outcome{}, fmt.Errorf("options: %w", err)
		}
		options = v.(map[string]any)
	}

	res, err := dc.BeginDialog(a.dialog, options)
	if err != nil {
		return outcome{}, err
	}

	if res.Status == StatusComplete {
		if err := a.resume(dc, step, res.Result); err != nil {
			return outcome{}, err
		}
		return next, nil
	}

	step.setFlag(waitingForChild, true)

	return outcome{kind: outcomeWait}, nil
}

func (a *beginDialog) resume(dc *DialogContext, step *Step, result any) error {
	step.setFlag(waitingForChild, false)
	if a.resultProperty == "" {
		return nil
	}
	return dc.Memory().Set(a.resultProperty, result)
}

type endDialog struct {
	value any
}

func (a *endDialog) kind() string { return KindEndDialog }

func (a *endDialog) execute(dc *DialogContext, _ *Step) (outcome, error) {
	v, err := dc.EvaluateValue(a.value)
	if err != nil {
		return outcome{}, err
	}
	return outcome{kind: outcomeEnd, result: v}, nil
}

type repeatDialog struct {
	options map[string]any
}

func (a *repeatDialog) kind() string { return KindRepeatDialog }

func (a *repeatDialog) execute(dc *DialogContext, _ *Step) (outcome, error) {
	var options map[string]any
	if len(a.options) > 0 {
		v, err := dc.EvaluateValue(a.options)
		if err != nil {
			return outcome{}, fmt.Errorf("options: %w", err)
		}
		options = v.(map[string]any)
	}
	return outcome{kind: outcomeRepeat, result: options}, nil
}

type logAction struct {
	text          string
	label         string
	traceActivity bool
}

func (a *logAction) kind() string { return KindLogAction }

func (a *logAction) execute(dc *DialogContext, _ *Step) (outcome, error) {
	v, err := dc.Generate(a.text)
	if err != nil {
		return outcome{}, err
	}
	msg, err := expr.AsString(v)
	if err != nil {
		return outcome{}, err
	}

	dc.TC.LogInfo("log action", "dialog", dc.Active().ID, "message", msg)

	if a.traceActivity {
		label := a.label
		if label == "" {
			label = dc.Active().ID
		}
		if err := dc.TC.SendActivity(core.NewTraceActivity(KindLogAction, label, msg)); err != nil {
			return outcome{}, err
		}
	}

	return next, nil
}

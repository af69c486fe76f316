package dialog

import (
	"fmt"
	"time"

	"github.com/hupe1980/dialogmesh/core"
)

type trigger struct {
	kind      string
	condition string
	steps     []string
}

// AdaptiveDialog runs a declarative dialog: triggers queue action steps on
// the instance plan, which is executed until an action waits for input, the
// dialog ends, or the plan runs dry.
type AdaptiveDialog struct {
	Base

	generator     Generator
	autoEndDialog bool
	triggers      []trigger
	nodes         map[string]action
	childIDs      []string
}

var _ Dialog = (*AdaptiveDialog)(nil)

// Generator returns the dialog's language generator, or nil.
func (d *AdaptiveDialog) Generator() Generator { return d.generator }

// ChildIDs lists the dialog ids begun by this dialog's actions.
func (d *AdaptiveDialog) ChildIDs() []string { return append([]string(nil), d.childIDs...) }

// Begin queues the OnBeginDialog trigger and runs the plan.
func (d *AdaptiveDialog) Begin(dc *DialogContext, options map[string]any) (TurnResult, error) {
	inst := dc.Active()
	if len(options) > 0 {
		inst.Memory["options"] = options
	}
	if err := d.queueTrigger(dc, inst, OnBeginDialog); err != nil {
		return TurnResult{}, err
	}
	return d.run(dc, inst)
}

// Continue runs the remaining plan against the new turn.
func (d *AdaptiveDialog) Continue(dc *DialogContext) (TurnResult, error) {
	return d.run(dc, dc.Active())
}

// Resume hands a child result to the step that began it and runs on.
func (d *AdaptiveDialog) Resume(dc *DialogContext, result any) (TurnResult, error) {
	inst := dc.Active()
	if len(inst.Plan) > 0 {
		step := &inst.Plan[0]
		if r, ok := d.nodes[step.Path].(resumer); ok && step.flag(waitingForChild) {
			if err := r.resume(dc, step, result); err != nil {
				return TurnResult{}, err
			}
			inst.Plan = inst.Plan[1:]
		}
	}
	return d.run(dc, inst)
}

func (d *AdaptiveDialog) run(dc *DialogContext, inst *Instance) (TurnResult, error) {
	dc.running[inst] = true
	defer delete(dc.running, inst)

	for {
		if len(inst.Plan) == 0 {
			queued, err := d.onActivity(dc, inst)
			if err != nil {
				return TurnResult{}, err
			}
			if queued {
				continue
			}
			if d.autoEndDialog {
				delete(dc.running, inst)
				return dc.EndDialog(nil)
			}
			return TurnResult{Status: StatusWaiting}, nil
		}

		if err := dc.step(); err != nil {
			return TurnResult{}, err
		}

		step := &inst.Plan[0]
		node, ok := d.nodes[step.Path]
		if !ok {
			return TurnResult{}, fmt.Errorf("dialog %s: unknown action path %q", d.ID(), step.Path)
		}

		start := time.Now()
		out, err := node.execute(dc, step)
		logStep(dc, node.kind(), d.ID()+"/"+step.Path, time.Since(start), err)
		if err != nil {
			return TurnResult{}, fmt.Errorf("dialog %s: %s at %s: %w", d.ID(), node.kind(), step.Path, err)
		}

		switch out.kind {
		case outcomeNext:
			inst.Plan = inst.Plan[1:]
		case outcomeExpand:
			inst.Plan = append(newSteps(out.steps), inst.Plan[1:]...)
		case outcomeWait:
			return TurnResult{Status: StatusWaiting}, nil
		case outcomeEnd:
			inst.Plan = nil
			delete(dc.running, inst)
			return dc.EndDialog(out.result)
		case outcomeRepeat:
			inst.Memory = map[string]any{}
			inst.Plan = nil
			options, _ := out.result.(map[string]any)
			if len(options) > 0 {
				inst.Memory["options"] = options
			}
			if err := d.queueTrigger(dc, inst, OnBeginDialog); err != nil {
				return TurnResult{}, err
			}
		}
	}
}

// onActivity fires the activity triggers once per instance and turn, unless
// an input already consumed the activity.
func (d *AdaptiveDialog) onActivity(dc *DialogContext, inst *Instance) (bool, error) {
	if dc.activityProcessed || dc.fired[inst] {
		return false, nil
	}
	dc.fired[inst] = true

	switch dc.TC.Activity.Type {
	case core.ActivityTypeConversationUpdate:
		return d.fire(dc, inst, OnConversationUpdate)
	case core.ActivityTypeMessage:
		ok, err := d.fire(dc, inst, OnMessageActivity)
		if err != nil || ok {
			return ok, err
		}
		return d.fire(dc, inst, OnUnknownIntent)
	default:
		return false, nil
	}
}

func (d *AdaptiveDialog) queueTrigger(dc *DialogContext, inst *Instance, kind string) error {
	_, err := d.fire(dc, inst, kind)
	return err
}

// fire queues the actions of the first trigger of kind whose condition holds.
func (d *AdaptiveDialog) fire(dc *DialogContext, inst *Instance, kind string) (bool, error) {
	for _, t := range d.triggers {
		if t.kind != kind {
			continue
		}
		ok, err := dc.Condition(t.condition)
		if err != nil {
			return false, fmt.Errorf("dialog %s: %s condition: %w", d.ID(), kind, err)
		}
		if !ok {
			continue
		}
		dc.logger.Debug("trigger fired", "dialog", d.ID(), "trigger", kind)
		inst.Plan = append(newSteps(t.steps), inst.Plan...)
		return len(t.steps) > 0, nil
	}
	return false, nil
}

func newSteps(paths []string) []Step {
	steps := make([]Step, len(paths))
	for i, p := range paths {
		steps[i] = Step{Path: p}
	}
	return steps
}

type actionLogger interface {
	LogAction(kind, path string, dur time.Duration, err error)
}

func logStep(dc *DialogContext, kind, path string, dur time.Duration, err error) {
	if l, ok := dc.logger.(actionLogger); ok {
		l.LogAction(kind, path, dur, err)
		return
	}
	if err != nil {
		dc.logger.Error("action failed", "action_kind", kind, "action_path", path, "error", err)
		return
	}
	dc.logger.Debug("action executed", "action_kind", kind, "action_path", path, "duration", dur)
}

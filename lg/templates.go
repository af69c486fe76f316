package lg

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/hupe1980/dialogmesh/internal/expr"
)

var (
	// ErrTemplateNotFound is returned when evaluating an unknown template.
	ErrTemplateNotFound = errors.New("lg: template not found")
	// ErrRecursion is returned when a template re-enters itself.
	ErrRecursion = errors.New("lg: recursive template call")
)

// TypeKey holds the structured body type in evaluated objects.
const TypeKey = "$type"

// maxDepth bounds nested template calls.
const maxDepth = 64

// Selector picks the variant index in [0, n).
type Selector func(n int) int

// RandomSelector picks a variant uniformly at random.
func RandomSelector(n int) int { return rand.IntN(n) }

// FirstSelector always picks the first variant.
func FirstSelector(int) int { return 0 }

// Options configures a template set.
type Options struct {
	Selector  Selector
	Functions expr.Functions
}

// Templates is an immutable, goroutine-safe set of LG templates.
type Templates struct {
	byName map[string]*Template
	names  []string
	opts   Options
}

// New merges files into a template set. Names must be unique across files.
func New(files []*File, optFns ...func(o *Options)) (*Templates, error) {
	opts := Options{Selector: RandomSelector}
	for _, fn := range optFns {
		fn(&opts)
	}

	t := &Templates{byName: map[string]*Template{}, opts: opts}

	for _, f := range files {
		for _, tmpl := range f.Templates {
			if prev, ok := t.byName[tmpl.Name]; ok {
				return nil, fmt.Errorf("lg: template %s defined in %s:%d and %s:%d",
					tmpl.Name, prev.Source, prev.Line, tmpl.Source, tmpl.Line)
			}
			t.byName[tmpl.Name] = tmpl
			t.names = append(t.names, tmpl.Name)
		}
	}

	slices.Sort(t.names)

	return t, nil
}

// ParseText is a convenience wrapper around Parse and New for a single source.
func ParseText(source, content string, optFns ...func(o *Options)) (*Templates, error) {
	f, err := Parse(source, content)
	if err != nil {
		return nil, err
	}
	return New([]*File{f}, optFns...)
}

// Names returns the template names in sorted order.
func (t *Templates) Names() []string { return slices.Clone(t.names) }

// Template looks up a parsed template by name.
func (t *Templates) Template(name string) (*Template, bool) {
	tmpl, ok := t.byName[name]
	return tmpl, ok
}

// Evaluate runs the named template against scope. Normal templates yield a
// string, structured templates a map[string]any.
func (t *Templates) Evaluate(name string, scope expr.Scope, args ...cty.Value) (any, error) {
	v, err := t.EvaluateValue(name, scope, args...)
	if err != nil {
		return nil, err
	}
	return expr.FromValue(v)
}

// EvaluateValue is Evaluate returning the raw cty value.
func (t *Templates) EvaluateValue(name string, scope expr.Scope, args ...cty.Value) (cty.Value, error) {
	tmpl, ok := t.byName[name]
	if !ok {
		return cty.NilVal, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	if len(args) != len(tmpl.Params) {
		return cty.NilVal, fmt.Errorf("lg: template %s expects %d arguments, got %d", name, len(tmpl.Params), len(args))
	}

	ev := &evaluator{t: t, scope: scope}

	v, err := ev.call(tmpl, args)
	if ev.fault != nil {
		return cty.NilVal, ev.fault
	}

	return v, err
}

// Generate renders a ${...} string in which templates are callable as
// functions. A single interpolation of a structured template yields an
// object value.
func (t *Templates) Generate(text string, scope expr.Scope) (cty.Value, error) {
	ev := &evaluator{t: t, scope: scope}

	v, err := expr.RenderValue(text, scope, ev.functions())
	if ev.fault != nil {
		return cty.NilVal, ev.fault
	}

	return v, err
}

// Functions exposes every template as an expression function bound to scope,
// merged over the builtins and any configured functions.
func (t *Templates) Functions(scope expr.Scope) expr.Functions {
	ev := &evaluator{t: t, scope: scope}
	return ev.functions()
}

type evaluator struct {
	t     *Templates
	scope expr.Scope
	stack []string
	// fault keeps the first recursion error; HCL flattens function errors
	// into diagnostics.
	fault error
}

func (ev *evaluator) functions() expr.Functions {
	fns := expr.Merge(expr.Builtins(), ev.t.opts.Functions)
	for name, tmpl := range ev.t.byName {
		fns[name] = ev.function(tmpl)
	}
	return fns
}

func (ev *evaluator) function(tmpl *Template) function.Function {
	params := make([]function.Parameter, len(tmpl.Params))
	for i, p := range tmpl.Params {
		params[i] = function.Parameter{
			Name:             p,
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		}
	}

	return function.New(&function.Spec{
		Description: fmt.Sprintf("LG template %s", tmpl.Name),
		Params:      params,
		Type:        function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return ev.call(tmpl, args)
		},
	})
}

func (ev *evaluator) call(tmpl *Template, args []cty.Value) (cty.Value, error) {
	if slices.Contains(ev.stack, tmpl.Name) {
		err := fmt.Errorf("%w: %s -> %s", ErrRecursion, strings.Join(ev.stack, " -> "), tmpl.Name)
		if ev.fault == nil {
			ev.fault = err
		}
		return cty.NilVal, err
	}
	if len(ev.stack) >= maxDepth {
		return cty.NilVal, fmt.Errorf("lg: template nesting exceeds %d", maxDepth)
	}

	ev.stack = append(ev.stack, tmpl.Name)
	defer func() { ev.stack = ev.stack[:len(ev.stack)-1] }()

	scope := make(expr.Scope, len(ev.scope)+len(args))
	for k, v := range ev.scope {
		scope[k] = v
	}
	for i, p := range tmpl.Params {
		scope[p] = args[i]
	}

	v, err := ev.body(tmpl, scope)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%s (%s:%d): %w", tmpl.Name, tmpl.Source, tmpl.Line, err)
	}

	return v, nil
}

func (ev *evaluator) body(tmpl *Template, scope expr.Scope) (cty.Value, error) {
	fns := ev.functions()

	switch tmpl.Kind {
	case BodyIfElse:
		for _, b := range tmpl.Branches {
			if b.Keyword == "ELSE" {
				return ev.pick(b.Variants, scope, fns)
			}
			cond, err := expr.Eval(b.Expr, scope, fns)
			if err != nil {
				return cty.NilVal, err
			}
			ok, err := expr.Truthy(cond)
			if err != nil {
				return cty.NilVal, fmt.Errorf("%s %s: %w", b.Keyword, b.Expr, err)
			}
			if ok {
				return ev.pick(b.Variants, scope, fns)
			}
		}
		return cty.StringVal(""), nil
	case BodySwitch:
		sv, err := expr.Eval(tmpl.Switch, scope, fns)
		if err != nil {
			return cty.NilVal, err
		}
		if sv.IsNull() {
			return ev.switchDefault(tmpl, scope, fns)
		}
		key, err := expr.AsString(sv)
		if err != nil {
			return cty.NilVal, fmt.Errorf("SWITCH %s: %w", tmpl.Switch, err)
		}
		for _, b := range tmpl.Branches {
			if b.Keyword == "DEFAULT" {
				return ev.pick(b.Variants, scope, fns)
			}
			cv, err := expr.Render(b.Expr, scope, fns)
			if err != nil {
				return cty.NilVal, err
			}
			if cv == key {
				return ev.pick(b.Variants, scope, fns)
			}
		}
		return cty.StringVal(""), nil
	case BodyStructured:
		attrs := map[string]cty.Value{TypeKey: cty.StringVal(tmpl.Type)}
		for _, p := range tmpl.Properties {
			v, err := expr.RenderValue(p.Value, scope, fns)
			if err != nil {
				return cty.NilVal, fmt.Errorf("property %s: %w", p.Key, err)
			}
			attrs[p.Key] = v
		}
		return cty.ObjectVal(attrs), nil
	default:
		return ev.pick(tmpl.Variants, scope, fns)
	}
}

// switchDefault selects the DEFAULT branch; without one the result is "".
func (ev *evaluator) switchDefault(tmpl *Template, scope expr.Scope, fns expr.Functions) (cty.Value, error) {
	for _, b := range tmpl.Branches {
		if b.Keyword == "DEFAULT" {
			return ev.pick(b.Variants, scope, fns)
		}
	}
	return cty.StringVal(""), nil
}

func (ev *evaluator) pick(variants []string, scope expr.Scope, fns expr.Functions) (cty.Value, error) {
	idx := 0
	if len(variants) > 1 {
		idx = ev.t.opts.Selector(len(variants))
		if idx < 0 || idx >= len(variants) {
			return cty.NilVal, fmt.Errorf("selector returned %d for %d variants", idx, len(variants))
		}
	}
	return expr.RenderValue(variants[idx], scope, fns)
}

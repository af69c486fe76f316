// Package expr evaluates memory expressions and ${...} string templates using
// HCL native syntax over go-cty values. Memory scopes (user, conversation,
// dialog, turn, ...) are exposed as top-level object variables; references to
// absent properties evaluate to null instead of failing.
package expr

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Scope maps top-level variable names to values.
type Scope map[string]cty.Value

// Functions maps function names to implementations.
type Functions map[string]function.Function

// Builtins returns the functions available to every expression.
func Builtins() Functions {
	return Functions{
		"upper":    stdlib.UpperFunc,
		"lower":    stdlib.LowerFunc,
		"trim":     stdlib.TrimSpaceFunc,
		"length":   stdlib.LengthFunc,
		"strlen":   stdlib.StrlenFunc,
		"concat":   stdlib.ConcatFunc,
		"join":     stdlib.JoinFunc,
		"format":   stdlib.FormatFunc,
		"coalesce": stdlib.CoalesceFunc,
		"contains": stdlib.ContainsFunc,
	}
}

// Merge returns a new Functions containing fs in order; later entries win.
func Merge(fs ...Functions) Functions {
	out := Functions{}
	for _, f := range fs {
		for k, v := range f {
			out[k] = v
		}
	}
	return out
}

// Eval evaluates a single expression. A leading "=" is ignored.
func Eval(src string, scope Scope, funcs Functions) (cty.Value, error) {
	src = strings.TrimSpace(src)
	src = strings.TrimSpace(strings.TrimPrefix(src, "="))
	if src == "" {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}

	e, diags := hclsyntax.ParseExpression([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("parse expression %q: %w", src, diags)
	}

	v, err := evaluate(e, scope, funcs)
	if err != nil {
		return cty.NilVal, fmt.Errorf("evaluate %q: %w", src, err)
	}

	return v, nil
}

// RenderValue evaluates a string template. A template consisting of a single
// interpolation yields the raw value (which may be an object); anything else
// yields a string.
func RenderValue(src string, scope Scope, funcs Functions) (cty.Value, error) {
	if !strings.Contains(src, "${") && !strings.Contains(src, "%{") {
		return cty.StringVal(src), nil
	}

	e, diags := hclsyntax.ParseTemplate([]byte(src), "template", hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("parse template %q: %w", src, diags)
	}

	v, err := evaluate(e, scope, funcs)
	if err != nil {
		return cty.NilVal, fmt.Errorf("render %q: %w", src, err)
	}

	return v, nil
}

// Render evaluates a string template and converts the result to a string.
func Render(src string, scope Scope, funcs Functions) (string, error) {
	v, err := RenderValue(src, scope, funcs)
	if err != nil {
		return "", err
	}
	return AsString(v)
}

// AsString converts a primitive value to its string form. Null, unknown and
// collection values are errors.
func AsString(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", fmt.Errorf("value is null")
	}
	if !v.IsKnown() {
		return "", fmt.Errorf("value is unknown")
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("cannot use %s value as text", v.Type().FriendlyName())
	}
	return s.AsString(), nil
}

// Truthy interprets a condition result. Null is false; non-bool values are
// errors.
func Truthy(v cty.Value) (bool, error) {
	if v.IsNull() {
		return false, nil
	}
	if !v.IsKnown() {
		return false, fmt.Errorf("condition is unknown")
	}
	if v.Type() != cty.Bool {
		return false, fmt.Errorf("condition must be bool, got %s", v.Type().FriendlyName())
	}
	return v.True(), nil
}

func evaluate(e hclsyntax.Expression, scope Scope, funcs Functions) (cty.Value, error) {
	ctx := &hcl.EvalContext{
		Variables: withReferences(scope, e.Variables()),
		Functions: funcs,
	}

	v, diags := e.Value(ctx)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}

	return v, nil
}

// withReferences copies scope and materialises every attribute path the
// expression references, filling absent properties with null.
func withReferences(scope Scope, traversals []hcl.Traversal) map[string]cty.Value {
	vars := make(map[string]cty.Value, len(scope)+len(traversals))
	for k, v := range scope {
		vars[k] = v
	}

	for _, t := range traversals {
		root := t.RootName()
		var names []string
		for _, step := range t[1:] {
			attr, ok := step.(hcl.TraverseAttr)
			if !ok {
				break
			}
			names = append(names, attr.Name)
		}
		v, ok := vars[root]
		vars[root] = ensurePath(v, ok, names)
	}

	return vars
}

func ensurePath(v cty.Value, present bool, names []string) cty.Value {
	if !present {
		v = cty.NullVal(cty.DynamicPseudoType)
	}
	if len(names) == 0 {
		return v
	}

	var attrs map[string]cty.Value
	switch {
	case v.IsNull():
		attrs = map[string]cty.Value{}
	case v.IsKnown() && v.Type().IsObjectType():
		attrs = v.AsValueMap()
		if attrs == nil {
			attrs = map[string]cty.Value{}
		}
	default:
		// Primitive or collection: leave it to HCL to report the bad access.
		return v
	}

	child, ok := attrs[names[0]]
	attrs[names[0]] = ensurePath(child, ok, names[1:])

	return cty.ObjectVal(attrs)
}

package lg

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/internal/expr"
)

// ActivityFromResult turns a generated value into an outbound message.
// Strings become the message text; structured results map their Text and
// Speak properties (case-insensitive) onto the activity.
func ActivityFromResult(v cty.Value) (core.Activity, error) {
	if v.IsNull() {
		return core.Activity{}, fmt.Errorf("lg: empty generation result")
	}

	ty := v.Type()
	if ty.IsObjectType() || ty.IsMapType() {
		a := core.NewMessageActivity("")
		for k, av := range v.AsValueMap() {
			if av.IsNull() {
				continue
			}
			switch strings.ToLower(k) {
			case "text":
				s, err := expr.AsString(av)
				if err != nil {
					return core.Activity{}, fmt.Errorf("lg: Text: %w", err)
				}
				a.Text = s
			case "speak":
				s, err := expr.AsString(av)
				if err != nil {
					return core.Activity{}, fmt.Errorf("lg: Speak: %w", err)
				}
				a.Speak = s
			}
		}
		return a, nil
	}

	s, err := expr.AsString(v)
	if err != nil {
		return core.Activity{}, fmt.Errorf("lg: %w", err)
	}

	return core.NewMessageActivity(s), nil
}

package dialog

import (
	"fmt"
	"strings"

	"github.com/hupe1980/dialogmesh/internal/expr"
)

// Memory scope names.
const (
	ScopeUser         = "user"
	ScopeConversation = "conversation"
	ScopeDialog       = "dialog"
	ScopeTurn         = "turn"
)

// Memory addresses the scopes visible to the active dialog with dotted
// paths such as "user.name" or "dialog.choice". Writes go straight into the
// backing documents, which are persisted at the end of the turn.
type Memory struct {
	scopes map[string]map[string]any
}

func newMemory(user, conversation, dialog, turn map[string]any) Memory {
	return Memory{scopes: map[string]map[string]any{
		ScopeUser:         user,
		ScopeConversation: conversation,
		ScopeDialog:       dialog,
		ScopeTurn:         turn,
	}}
}

func (m Memory) split(path string) (map[string]any, []string, error) {
	parts := strings.Split(strings.TrimSpace(path), ".")
	if len(parts) < 2 {
		return nil, nil, fmt.Errorf("memory path %q must be scope.property", path)
	}
	root, ok := m.scopes[parts[0]]
	if !ok || root == nil {
		return nil, nil, fmt.Errorf("memory path %q: unknown scope %q", path, parts[0])
	}
	for _, p := range parts[1:] {
		if p == "" {
			return nil, nil, fmt.Errorf("memory path %q has an empty segment", path)
		}
	}
	return root, parts[1:], nil
}

// Get returns the value at path and whether it was present.
func (m Memory) Get(path string) (any, bool) {
	cur, keys, err := m.split(path)
	if err != nil {
		return nil, false
	}
	for i, k := range keys {
		v, ok := cur[k]
		if !ok {
			return nil, false
		}
		if i == len(keys)-1 {
			return v, true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// Set stores value at path, creating intermediate objects.
func (m Memory) Set(path string, value any) error {
	cur, keys, err := m.split(path)
	if err != nil {
		return err
	}
	for _, k := range keys[:len(keys)-1] {
		next, ok := cur[k]
		if !ok || next == nil {
			child := map[string]any{}
			cur[k] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("memory path %q: %s is not an object", path, k)
		}
		cur = child
	}
	cur[keys[len(keys)-1]] = value
	return nil
}

// Delete removes the value at path. Missing paths are ignored.
func (m Memory) Delete(path string) error {
	cur, keys, err := m.split(path)
	if err != nil {
		return err
	}
	for _, k := range keys[:len(keys)-1] {
		child, ok := cur[k].(map[string]any)
		if !ok {
			return nil
		}
		cur = child
	}
	delete(cur, keys[len(keys)-1])
	return nil
}

// Scope converts the memory into expression variables. Keys starting with
// an underscore are internal bookkeeping and stay hidden.
func (m Memory) Scope() (expr.Scope, error) {
	scope := make(expr.Scope, len(m.scopes))
	for name, doc := range m.scopes {
		visible := make(map[string]any, len(doc))
		for k, v := range doc {
			if strings.HasPrefix(k, "_") {
				continue
			}
			visible[k] = v
		}
		v, err := expr.ToValue(visible)
		if err != nil {
			return nil, fmt.Errorf("memory scope %s: %w", name, err)
		}
		scope[name] = v
	}
	return scope, nil
}

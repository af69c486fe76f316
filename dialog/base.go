package dialog

import (
	"fmt"
	"sync"
)

// Base bundles identity and child dialog bookkeeping. Embed it in concrete
// dialogs and supply Begin, Continue and Resume to satisfy Dialog. All
// exported methods are goroutine-safe.
type Base struct {
	id          string
	description string
	mu          sync.Mutex
	children    []Dialog
}

// NewBase constructs a Base with a generated description.
func NewBase(id string) Base {
	return Base{
		id:          id,
		description: fmt.Sprintf("Dialog %s", id),
	}
}

// ID returns the dialog id.
func (b *Base) ID() string { return b.id }

// Description returns a human readable description.
func (b *Base) Description() string { return b.description }

// SetDescription updates the description.
func (b *Base) SetDescription(desc string) { b.description = desc }

// SetDialogs replaces the set of child dialogs this dialog may begin.
func (b *Base) SetDialogs(children ...Dialog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.children = append([]Dialog(nil), children...)
}

// AddDialog registers one more child dialog.
func (b *Base) AddDialog(child Dialog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.children = append(b.children, child)
}

// Dialogs returns a copy of the child dialogs.
func (b *Base) Dialogs() []Dialog {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Dialog, len(b.children))
	copy(out, b.children)
	return out
}

// FindDialog performs a depth-first search over the child dialogs and
// returns the first one with the given id. Cycles are tolerated.
func (b *Base) FindDialog(id string) Dialog {
	return findIn(b.Dialogs(), id, map[Dialog]bool{})
}

// container is implemented by dialogs that own child dialogs.
type container interface {
	Dialogs() []Dialog
}

func findIn(dialogs []Dialog, id string, seen map[Dialog]bool) Dialog {
	for _, d := range dialogs {
		if seen[d] {
			continue
		}
		seen[d] = true

		if d.ID() == id {
			return d
		}
		if c, ok := d.(container); ok {
			if found := findIn(c.Dialogs(), id, seen); found != nil {
				return found
			}
		}
	}
	return nil
}

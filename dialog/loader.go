package dialog

import (
	"fmt"
	"strings"

	"github.com/hupe1980/dialogmesh/lg"
	"github.com/hupe1980/dialogmesh/logging"
	"github.com/hupe1980/dialogmesh/resource"
)

// LoadOptions configures Load.
type LoadOptions struct {
	// LG options apply to every generator loaded for a dialog.
	LG []func(o *lg.Options)
	// Logger receives load diagnostics.
	Logger logging.Logger
}

type loader struct {
	explorer   *resource.Explorer
	opts       LoadOptions
	dialogs    map[string]*AdaptiveDialog
	generators map[string]Generator
}

// Load reads the dialog resource id (".dialog" may be omitted) from the
// explorer and compiles it together with every dialog it begins. A dialog
// without a generator inherits the generator of the dialog that begins it.
func Load(explorer *resource.Explorer, id string, optFns ...func(o *LoadOptions)) (*AdaptiveDialog, error) {
	opts := LoadOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	l := &loader{
		explorer:   explorer,
		opts:       opts,
		dialogs:    map[string]*AdaptiveDialog{},
		generators: map[string]Generator{},
	}

	return l.load(id, nil)
}

func (l *loader) load(id string, inherited Generator) (*AdaptiveDialog, error) {
	resID := id
	if !strings.HasSuffix(resID, ".dialog") {
		resID += ".dialog"
	}
	if d, ok := l.dialogs[resID]; ok {
		return d, nil
	}

	res, err := l.explorer.GetResource(resID)
	if err != nil {
		return nil, err
	}

	def, err := ParseDefinition(res.ID, res.Bytes())
	if err != nil {
		return nil, err
	}

	gen := inherited
	if def.Generator != "" {
		if gen, err = l.generator(def.Generator); err != nil {
			return nil, fmt.Errorf("dialog %s: %w", def.ID, err)
		}
	}

	d, err := Compile(def, gen)
	if err != nil {
		return nil, err
	}
	l.dialogs[resID] = d

	var children []Dialog
	for _, childID := range d.ChildIDs() {
		child, err := l.load(childID, gen)
		if err != nil {
			return nil, fmt.Errorf("dialog %s: begin %s: %w", def.ID, childID, err)
		}
		children = append(children, child)
	}
	d.SetDialogs(children...)

	l.opts.Logger.Debug("dialog loaded", "dialog", def.ID, "resource", res.ID, "children", len(children))

	return d, nil
}

func (l *loader) generator(id string) (Generator, error) {
	if g, ok := l.generators[id]; ok {
		return g, nil
	}
	g, err := lg.Load(l.explorer, id, l.opts.LG...)
	if err != nil {
		return nil, err
	}
	l.generators[id] = g
	return g, nil
}

package lg

import (
	"fmt"
	"path"

	"github.com/hupe1980/dialogmesh/resource"
)

// Load parses the resource id and, transitively, every file it imports.
// Imports are resolved by base name through the explorer; each file is
// parsed once even when imported from several places.
func Load(explorer *resource.Explorer, id string, optFns ...func(o *Options)) (*Templates, error) {
	var (
		files []*File
		seen  = map[string]bool{}
	)

	var visit func(id string) error
	visit = func(id string) error {
		if seen[id] {
			return nil
		}
		seen[id] = true

		res, err := explorer.GetResource(id)
		if err != nil {
			return err
		}

		f, err := Parse(res.ID, res.Text())
		if err != nil {
			return err
		}
		files = append(files, f)

		for _, imp := range f.Imports {
			if err := visit(path.Base(imp)); err != nil {
				return fmt.Errorf("import %s from %s: %w", imp, res.ID, err)
			}
		}

		return nil
	}

	if err := visit(id); err != nil {
		return nil, fmt.Errorf("lg: load %s: %w", id, err)
	}

	return New(files, optFns...)
}

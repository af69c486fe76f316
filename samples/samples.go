// Package samples ships declarative bots built from .dialog and .lg
// resources.
package samples

import (
	"embed"
	"io/fs"

	"github.com/hupe1980/dialogmesh/resource"
)

// RespondingWithText is the folder of the text response sample.
const RespondingWithText = "RespondingWithTextSample"

//go:embed RespondingWithTextSample
var files embed.FS

// FS returns the embedded resources of the named sample.
func FS(name string) (fs.FS, error) {
	return fs.Sub(files, name)
}

// NewExplorer indexes the embedded resources of the named sample.
func NewExplorer(name string, optFns ...func(o *resource.Options)) (*resource.Explorer, error) {
	fsys, err := FS(name)
	if err != nil {
		return nil, err
	}

	explorer := resource.NewExplorer(optFns...)
	if err := explorer.AddFS(fsys, "."); err != nil {
		return nil, err
	}

	return explorer, nil
}

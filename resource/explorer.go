// Package resource indexes declarative bot resources (.dialog and .lg files)
// by id. Resources can come from folders on disk or any fs.FS (for example an
// embedded sample). Folder sources can be watched for changes.
package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/dialogmesh/logging"
)

// ErrResourceNotFound is returned by GetResource for unknown ids.
var ErrResourceNotFound = errors.New("resource not found")

// Resource is a loaded file. Content is read eagerly when the source is
// indexed so lookups never touch the filesystem.
type Resource struct {
	ID       string // base file name, e.g. "Main.dialog"
	FullName string // source path
	content  []byte
}

// Bytes returns a copy of the resource content.
func (r *Resource) Bytes() []byte { return append([]byte(nil), r.content...) }

// Text returns the resource content as a string.
func (r *Resource) Text() string { return string(r.content) }

// Extension returns the lower-cased file extension including the dot.
func (r *Resource) Extension() string { return strings.ToLower(path.Ext(r.ID)) }

// Options configures an Explorer.
type Options struct {
	// Extensions lists the file extensions that are indexed.
	Extensions []string
	// Logger receives load and reload diagnostics.
	Logger logging.Logger
}

// DefaultExtensions are the resource types understood by dialogmesh.
var DefaultExtensions = []string{".dialog", ".lg"}

type source struct {
	fsys      fs.FS
	root      string
	dir       string // set for on-disk folders (watchable)
	recursive bool
}

// Explorer is a goroutine-safe index of resources keyed by id.
type Explorer struct {
	opts Options

	mu        sync.RWMutex
	resources map[string]*Resource
	sources   []source
	handlers  []func([]*Resource)

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewExplorer creates an empty Explorer.
func NewExplorer(optFns ...func(o *Options)) *Explorer {
	opts := Options{
		Extensions: DefaultExtensions,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Explorer{opts: opts, resources: map[string]*Resource{}}
}

// AddFolder indexes every matching file below dir.
func (e *Explorer) AddFolder(dir string, includeSubFolders bool) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("add folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("add folder: %s is not a directory", abs)
	}
	return e.addSource(source{fsys: os.DirFS(abs), root: ".", dir: abs, recursive: includeSubFolders})
}

// AddFS indexes every matching file below root in fsys. Such sources are not
// watched.
func (e *Explorer) AddFS(fsys fs.FS, root string) error {
	if root == "" {
		root = "."
	}
	return e.addSource(source{fsys: fsys, root: root, recursive: true})
}

func (e *Explorer) addSource(src source) error {
	loaded, err := e.load(src)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.sources = append(e.sources, src)
	e.index(loaded)
	e.mu.Unlock()

	e.opts.Logger.Info("resources indexed", "source", src.display(), "count", len(loaded))

	return nil
}

// index adds resources; caller must hold the write lock.
func (e *Explorer) index(rs []*Resource) {
	for _, r := range rs {
		if prev, ok := e.resources[r.ID]; ok && prev.FullName != r.FullName {
			e.opts.Logger.Warn("duplicate resource id replaced", "id", r.ID, "previous", prev.FullName, "current", r.FullName)
		}
		e.resources[r.ID] = r
	}
}

// load walks a source and reads all matching files concurrently.
func (e *Explorer) load(src source) ([]*Resource, error) {
	var paths []string
	err := fs.WalkDir(src.fsys, src.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != src.root && !src.recursive {
				return fs.SkipDir
			}
			return nil
		}
		if e.accepts(p) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", src.display(), err)
	}

	rs := make([]*Resource, len(paths))
	var g errgroup.Group
	g.SetLimit(8)
	for i, p := range paths {
		g.Go(func() error {
			data, err := fs.ReadFile(src.fsys, p)
			if err != nil {
				return fmt.Errorf("read %s: %w", p, err)
			}
			full := p
			if src.dir != "" {
				full = filepath.Join(src.dir, filepath.FromSlash(p))
			}
			rs[i] = &Resource{ID: path.Base(p), FullName: full, content: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Stable order keeps duplicate resolution deterministic.
	sort.Slice(rs, func(i, j int) bool { return rs[i].FullName < rs[j].FullName })

	return rs, nil
}

func (e *Explorer) accepts(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	for _, want := range e.opts.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// GetResource returns the resource with the given id.
func (e *Explorer) GetResource(id string) (*Resource, error) {
	if r, ok := e.TryGetResource(id); ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, id)
}

// TryGetResource returns the resource with the given id and whether it exists.
func (e *Explorer) TryGetResource(id string) (*Resource, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.resources[id]
	return r, ok
}

// Resources returns all resources with the given extension (all when ext is
// empty) sorted by id.
func (e *Explorer) Resources(ext string) []*Resource {
	ext = strings.ToLower(ext)
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []*Resource
	for _, r := range e.resources {
		if ext == "" || r.Extension() == ext {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OnChanged registers a handler invoked with the reloaded resources after a
// watched folder changed.
func (e *Explorer) OnChanged(fn func([]*Resource)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, fn)
}

// Reload re-reads every source and replaces the index.
func (e *Explorer) Reload() ([]*Resource, error) {
	e.mu.RLock()
	sources := append([]source(nil), e.sources...)
	e.mu.RUnlock()

	var all []*Resource
	for _, src := range sources {
		rs, err := e.load(src)
		if err != nil {
			return nil, err
		}
		all = append(all, rs...)
	}

	e.mu.Lock()
	e.resources = map[string]*Resource{}
	e.index(all)
	handlers := append([]func([]*Resource){}, e.handlers...)
	e.mu.Unlock()

	for _, h := range handlers {
		h(all)
	}

	return all, nil
}

func (s source) display() string {
	if s.dir != "" {
		return s.dir
	}
	return "fs:" + s.root
}

package adapter

import (
	"fmt"
	"sync"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/dialog"
	"github.com/hupe1980/dialogmesh/logging"
	"github.com/hupe1980/dialogmesh/resource"
	"github.com/hupe1980/dialogmesh/state"
)

// Turn state keys installed by the Use* helpers.
const (
	StorageKey          = "adapter.storage"
	ResourceExplorerKey = "adapter.resourceExplorer"
)

// Options configures an Adapter.
type Options struct {
	// Logger is attached to every TurnContext. Defaults to NoOp.
	Logger logging.Logger
	// OnTurnError handles errors escaping the pipeline. When nil the error
	// is returned to the caller.
	OnTurnError func(tc *core.TurnContext, err error) error
}

// Adapter owns the middleware pipeline every turn runs through. It is safe
// to register middleware concurrently with running turns; a turn uses the
// pipeline as it was when the turn started.
type Adapter struct {
	opts Options

	mu         sync.RWMutex
	middleware []core.Middleware
}

// New creates an Adapter.
func New(optFns ...func(o *Options)) *Adapter {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Adapter{opts: opts}
}

// Logger returns the adapter logger.
func (a *Adapter) Logger() logging.Logger { return a.opts.Logger }

// Use appends middleware to the pipeline.
func (a *Adapter) Use(m ...core.Middleware) *Adapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.middleware = append(a.middleware, m...)
	return a
}

// UseStorage exposes storage to handlers through turn state.
func (a *Adapter) UseStorage(s core.Storage) *Adapter {
	return a.Use(turnValue(StorageKey, s))
}

// UseState loads the given states before and saves them after each turn.
func (a *Adapter) UseState(states ...*state.BotState) *Adapter {
	return a.Use(AutoSaveStateMiddleware(states...))
}

// UseLanguageGeneration installs the default generator for dialogs that do
// not declare their own.
func (a *Adapter) UseLanguageGeneration(g dialog.Generator) *Adapter {
	return a.Use(turnValue(dialog.GeneratorKey, g))
}

// UseResourceExplorer exposes the explorer to handlers through turn state.
func (a *Adapter) UseResourceExplorer(e *resource.Explorer) *Adapter {
	return a.Use(turnValue(ResourceExplorerKey, e))
}

// RunPipeline runs tc through the middleware and then handler.
func (a *Adapter) RunPipeline(tc *core.TurnContext, handler core.Handler) error {
	a.mu.RLock()
	chain := append([]core.Middleware(nil), a.middleware...)
	a.mu.RUnlock()

	var run func(i int) core.Handler
	run = func(i int) core.Handler {
		return func(tc *core.TurnContext) error {
			if err := tc.Err(); err != nil {
				return err
			}
			if i == len(chain) {
				if handler == nil {
					return nil
				}
				return handler(tc)
			}
			return chain[i].OnTurn(tc, run(i+1))
		}
	}

	err := run(0)(tc)
	if err == nil {
		return nil
	}

	tc.LogError("turn failed", "activity_type", tc.Activity.Type, "error", err)

	if a.opts.OnTurnError != nil {
		return a.opts.OnTurnError(tc, err)
	}

	return fmt.Errorf("turn: %w", err)
}

func turnValue(key string, v any) core.Middleware {
	return core.MiddlewareFunc(func(tc *core.TurnContext, next core.Handler) error {
		tc.Set(key, v)
		return next(tc)
	})
}

// AutoSaveStateMiddleware loads every state before the turn and saves the
// changed ones after it completes successfully.
func AutoSaveStateMiddleware(states ...*state.BotState) core.Middleware {
	return core.MiddlewareFunc(func(tc *core.TurnContext, next core.Handler) error {
		for _, s := range states {
			if err := s.Load(tc, false); err != nil {
				return err
			}
		}

		if err := next(tc); err != nil {
			return err
		}

		for _, s := range states {
			if err := s.SaveChanges(tc, false); err != nil {
				return err
			}
		}

		return nil
	})
}

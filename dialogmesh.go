// Package dialogmesh provides a high-level façade for running declarative
// bots. A Bot is built from a resource explorer holding .dialog and .lg files
// and owns the state stores, the default language generator and the dialog
// manager. Most applications interact with this package by:
//  1. Indexing resources with resource.NewExplorer (folders or an fs.FS)
//  2. Creating a Bot via New() (optionally overriding the in-memory storage)
//  3. Installing the bot middleware on an adapter with Bot.Use and routing
//     turns to Bot.Handler
//
// All defaults are safe for local development and testing; production
// deployments typically supply durable storage and a structured logger.
package dialogmesh

import (
	"fmt"
	"sync"

	"github.com/hupe1980/dialogmesh/adapter"
	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/dialog"
	"github.com/hupe1980/dialogmesh/lg"
	"github.com/hupe1980/dialogmesh/logging"
	"github.com/hupe1980/dialogmesh/resource"
	"github.com/hupe1980/dialogmesh/state"
	"github.com/hupe1980/dialogmesh/storage"
)

// Options configures a Bot.
type Options struct {
	// Storage backs conversation and user state (defaults to in-memory).
	Storage core.Storage

	// LanguageGeneration is the id of the .lg resource used by dialogs that
	// do not declare a generator. Empty disables the default generator.
	LanguageGeneration string

	// LG options apply to every loaded template set (e.g. a fixed Selector
	// in tests).
	LG []func(o *lg.Options)

	// Transcript, when set, records every inbound and outbound activity.
	Transcript adapter.TranscriptLogger

	// MaxStepsPerTurn bounds the actions executed in a single turn.
	MaxStepsPerTurn int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Bot aggregates a root dialog with the services required to run it.
type Bot struct {
	opts     Options
	explorer *resource.Explorer
	rootID   string
	conv     *state.BotState
	user     *state.BotState

	mu        sync.RWMutex
	manager   *dialog.Manager
	generator dialog.Generator
}

// New loads the root dialog rootID (and every dialog it begins) from the
// explorer.
func New(explorer *resource.Explorer, rootID string, optFns ...func(o *Options)) (*Bot, error) {
	opts := Options{
		MaxStepsPerTurn: dialog.DefaultMaxStepsPerTurn,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Storage == nil {
		opts.Storage = storage.NewMemoryStorage()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	b := &Bot{
		opts:     opts,
		explorer: explorer,
		rootID:   rootID,
		conv:     state.NewConversationState(opts.Storage),
		user:     state.NewUserState(opts.Storage),
	}

	if err := b.Reload(); err != nil {
		return nil, err
	}

	return b, nil
}

// Reload recompiles the root dialog and the default generator from the
// explorer. Conversations in flight keep their persisted stacks.
func (b *Bot) Reload() error {
	root, err := dialog.Load(b.explorer, b.rootID, func(o *dialog.LoadOptions) {
		o.LG = b.opts.LG
		o.Logger = b.opts.Logger
	})
	if err != nil {
		return fmt.Errorf("load %s: %w", b.rootID, err)
	}

	var generator dialog.Generator
	if b.opts.LanguageGeneration != "" {
		t, err := lg.Load(b.explorer, b.opts.LanguageGeneration, b.opts.LG...)
		if err != nil {
			return fmt.Errorf("load %s: %w", b.opts.LanguageGeneration, err)
		}
		generator = t
	}

	manager := dialog.NewManager(root, func(o *dialog.Options) {
		o.ConversationState = b.conv
		o.UserState = b.user
		o.Storage = b.opts.Storage
		o.Logger = b.opts.Logger
		o.MaxStepsPerTurn = b.opts.MaxStepsPerTurn
	})

	b.mu.Lock()
	b.manager = manager
	b.generator = generator
	b.mu.Unlock()

	b.opts.Logger.Info("bot loaded", "root", root.ID(), "dialogs", len(root.Dialogs()))

	return nil
}

// Manager returns the current dialog manager.
func (b *Bot) Manager() *dialog.Manager {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.manager
}

// ConversationState returns the conversation state accessor.
func (b *Bot) ConversationState() *state.BotState { return b.conv }

// UserState returns the user state accessor.
func (b *Bot) UserState() *state.BotState { return b.user }

// Use installs the bot middleware on a: storage, state auto-save, the
// default generator, the explorer and the optional transcript logger.
func (b *Bot) Use(a *adapter.Adapter) *adapter.Adapter {
	a.UseStorage(b.opts.Storage).
		UseState(b.user, b.conv).
		UseResourceExplorer(b.explorer)

	a.Use(core.MiddlewareFunc(func(tc *core.TurnContext, next core.Handler) error {
		b.mu.RLock()
		g := b.generator
		b.mu.RUnlock()
		if g != nil {
			tc.Set(dialog.GeneratorKey, g)
		}
		return next(tc)
	}))

	if b.opts.Transcript != nil {
		a.Use(adapter.NewTranscriptLoggerMiddleware(b.opts.Transcript))
	}

	return a
}

// Handler routes a turn to the current dialog manager.
func (b *Bot) Handler() core.Handler {
	return func(tc *core.TurnContext) error {
		_, err := b.Manager().OnTurn(tc)
		return err
	}
}

// NewTestFlow creates a TestAdapter for ref with the bot middleware and
// returns a flow scripting it.
func (b *Bot) NewTestFlow(ref core.ConversationReference, sendTrace bool) *adapter.TestFlow {
	a := adapter.NewTestAdapter(ref, sendTrace, func(o *adapter.Options) {
		o.Logger = b.opts.Logger
	})
	b.Use(a.Adapter)
	return adapter.NewTestFlow(a, b.Handler())
}

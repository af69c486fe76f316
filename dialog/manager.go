package dialog

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/logging"
	"github.com/hupe1980/dialogmesh/state"
	"github.com/hupe1980/dialogmesh/storage"
)

// StackKey is the conversation state property holding the dialog stack.
const StackKey = "_dialogStack"

// DefaultMaxStepsPerTurn bounds the actions executed in a single turn.
const DefaultMaxStepsPerTurn = 256

// Options configures a Manager.
type Options struct {
	// ConversationState holds the dialog stack and conversation scope.
	// Defaults to conversation state over Storage.
	ConversationState *state.BotState

	// UserState backs the user memory scope. Defaults to user state over
	// Storage.
	UserState *state.BotState

	// Storage is used for the default states. Defaults to in-memory storage.
	Storage core.Storage

	// Logger receives turn and action diagnostics. Defaults to NoOp.
	Logger logging.Logger

	// MaxStepsPerTurn guards against action loops. Zero disables the limit.
	MaxStepsPerTurn int
}

// Manager runs a root dialog for every turn: it loads state, begins the root
// when the stack is empty or continues the active dialog otherwise, then
// persists the stack and saves state.
type Manager struct {
	root     Dialog
	conv     *state.BotState
	user     *state.BotState
	logger   logging.Logger
	maxSteps int

	mu      sync.RWMutex
	dialogs map[string]Dialog
}

// NewManager creates a Manager for root.
func NewManager(root Dialog, optFns ...func(o *Options)) *Manager {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		MaxStepsPerTurn: DefaultMaxStepsPerTurn,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Storage == nil {
		opts.Storage = storage.NewMemoryStorage()
	}
	if opts.ConversationState == nil {
		opts.ConversationState = state.NewConversationState(opts.Storage)
	}
	if opts.UserState == nil {
		opts.UserState = state.NewUserState(opts.Storage)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Manager{
		root:     root,
		conv:     opts.ConversationState,
		user:     opts.UserState,
		logger:   opts.Logger,
		maxSteps: opts.MaxStepsPerTurn,
		dialogs:  map[string]Dialog{},
	}
}

// RootDialog returns the dialog begun for new conversations.
func (m *Manager) RootDialog() Dialog { return m.root }

// ConversationState returns the conversation state accessor.
func (m *Manager) ConversationState() *state.BotState { return m.conv }

// UserState returns the user state accessor.
func (m *Manager) UserState() *state.BotState { return m.user }

// Register adds a dialog that can be begun by id in addition to the root's
// children. A dialog with the same id is replaced.
func (m *Manager) Register(d Dialog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dialogs[d.ID()] = d
}

// GetDialog resolves id against the root, the registered dialogs and the
// root's descendants, in that order.
func (m *Manager) GetDialog(id string) (Dialog, bool) {
	if m.root.ID() == id {
		return m.root, true
	}

	m.mu.RLock()
	d, ok := m.dialogs[id]
	m.mu.RUnlock()
	if ok {
		return d, true
	}

	if c, ok := m.root.(interface{ FindDialog(string) Dialog }); ok {
		if d := c.FindDialog(id); d != nil {
			return d, true
		}
	}

	return nil, false
}

// OnTurn processes one turn.
func (m *Manager) OnTurn(tc *core.TurnContext) (TurnResult, error) {
	start := time.Now()

	replies := 0
	tc.OnSendActivities(func(_ *core.TurnContext, activities []core.Activity) ([]core.Activity, error) {
		for _, a := range activities {
			if a.Type != core.ActivityTypeTrace {
				replies++
			}
		}
		return activities, nil
	})

	res, err := m.onTurn(tc)
	m.logTurn(tc.Activity.Type, replies, time.Since(start), err)

	return res, err
}

// Handler adapts OnTurn to a pipeline handler.
func (m *Manager) Handler() core.Handler {
	return func(tc *core.TurnContext) error {
		_, err := m.OnTurn(tc)
		return err
	}
}

func (m *Manager) onTurn(tc *core.TurnContext) (TurnResult, error) {
	conv, err := m.conv.Get(tc)
	if err != nil {
		return TurnResult{}, err
	}
	user, err := m.user.Get(tc)
	if err != nil {
		return TurnResult{}, err
	}

	stack, err := loadStack(conv)
	if err != nil {
		return TurnResult{}, err
	}

	dc, err := newDialogContext(tc, m.GetDialog, stack, user, conv, m.logger, m.maxSteps)
	if err != nil {
		return TurnResult{}, err
	}

	var res TurnResult
	if len(stack) == 0 {
		res, err = dc.BeginDialog(m.root.ID(), nil)
	} else {
		res, err = dc.ContinueDialog()
	}
	if err != nil {
		return TurnResult{}, err
	}

	if err := storeStack(conv, dc.stack); err != nil {
		return TurnResult{}, err
	}

	if err := m.user.SaveChanges(tc, false); err != nil {
		return TurnResult{}, err
	}
	if err := m.conv.SaveChanges(tc, false); err != nil {
		return TurnResult{}, err
	}

	return res, nil
}

type turnLogger interface {
	LogTurn(activityType string, replies int, dur time.Duration, err error)
}

func (m *Manager) logTurn(activityType string, replies int, dur time.Duration, err error) {
	if l, ok := m.logger.(turnLogger); ok {
		l.LogTurn(activityType, replies, dur, err)
		return
	}
	if err != nil {
		m.logger.Error("turn failed", "activity_type", activityType, "error", err)
		return
	}
	m.logger.Info("turn completed", "activity_type", activityType, "replies", replies, "duration", dur)
}

// loadStack decodes the persisted stack from the conversation document.
func loadStack(conv core.Document) ([]*Instance, error) {
	raw, ok := conv[StackKey]
	if !ok || raw == nil {
		return nil, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode dialog stack: %w", err)
	}

	var stack []*Instance
	if err := json.Unmarshal(data, &stack); err != nil {
		return nil, fmt.Errorf("decode dialog stack: %w", err)
	}

	for _, inst := range stack {
		if inst.Memory == nil {
			inst.Memory = map[string]any{}
		}
	}

	return stack, nil
}

// storeStack writes the stack back as plain JSON values.
func storeStack(conv core.Document, stack []*Instance) error {
	if len(stack) == 0 {
		delete(conv, StackKey)
		return nil
	}

	data, err := json.Marshal(stack)
	if err != nil {
		return fmt.Errorf("encode dialog stack: %w", err)
	}

	var plain []any
	if err := json.Unmarshal(data, &plain); err != nil {
		return fmt.Errorf("decode dialog stack: %w", err)
	}

	conv[StackKey] = plain

	return nil
}

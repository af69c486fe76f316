package adapter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/dialogmesh/core"
)

// ConsoleOptions configures a ConsoleAdapter.
type ConsoleOptions struct {
	Options

	// Format renders an outbound activity. Defaults to its text.
	Format func(a core.Activity) string
	// Prompt is written before reading each line.
	Prompt string
	// ExitCommands end Run when entered on their own line.
	ExitCommands []string
	// SendTrace prints trace activities too.
	SendTrace bool
}

// ConsoleAdapter runs a single conversation over line-based text streams.
type ConsoleAdapter struct {
	*Adapter

	opts ConsoleOptions
	ref  core.ConversationReference

	mu  sync.Mutex
	out io.Writer
}

var _ core.Sender = (*ConsoleAdapter)(nil)

// ConsoleConversation returns the reference used by console conversations.
func ConsoleConversation(user string) core.ConversationReference {
	return core.ConversationReference{
		ChannelID:    "console",
		User:         core.ChannelAccount{ID: user, Name: user, Role: "user"},
		Bot:          core.ChannelAccount{ID: "bot", Name: "Bot", Role: "bot"},
		Conversation: core.ConversationAccount{ID: "console-" + user},
	}
}

// NewConsoleAdapter creates a ConsoleAdapter writing replies to out.
func NewConsoleAdapter(ref core.ConversationReference, out io.Writer, optFns ...func(o *ConsoleOptions)) *ConsoleAdapter {
	opts := ConsoleOptions{
		Format:       func(a core.Activity) string { return a.Text },
		ExitCommands: []string{"/quit", "/exit"},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	base := opts.Options
	return &ConsoleAdapter{
		Adapter: New(func(o *Options) { *o = base }),
		opts:    opts,
		ref:     ref,
		out:     out,
	}
}

// SendActivities implements core.Sender by printing each activity.
func (c *ConsoleAdapter) SendActivities(_ context.Context, activities []core.Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, a := range activities {
		if a.Type == core.ActivityTypeTrace && !c.opts.SendTrace {
			continue
		}
		if _, err := fmt.Fprintln(c.out, c.opts.Format(a)); err != nil {
			return err
		}
	}

	return nil
}

// ProcessActivity addresses a as coming from the console user and runs it
// through the pipeline.
func (c *ConsoleAdapter) ProcessActivity(ctx context.Context, a core.Activity, handler core.Handler) error {
	a = a.ApplyConversationReference(c.ref, true)
	if a.ID == "" {
		a.ID = core.NewID()
	}
	if a.Type == "" {
		a.Type = core.ActivityTypeMessage
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	return c.RunPipeline(core.NewTurnContext(ctx, c, a, c.Logger()), handler)
}

// Run greets the user with a conversation update and then processes one
// message per input line until EOF, an exit command or ctx cancellation.
func (c *ConsoleAdapter) Run(ctx context.Context, in io.Reader, handler core.Handler) error {
	err := c.ProcessActivity(ctx, core.Activity{
		Type:         core.ActivityTypeConversationUpdate,
		MembersAdded: []core.ChannelAccount{c.ref.User},
	}, handler)
	if err != nil {
		return err
	}

	sc := bufio.NewScanner(in)
	for {
		if c.opts.Prompt != "" {
			c.mu.Lock()
			_, _ = fmt.Fprint(c.out, c.opts.Prompt)
			c.mu.Unlock()
		}

		if !sc.Scan() {
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if c.isExit(line) {
			return nil
		}

		if err := c.ProcessActivity(ctx, core.NewMessageActivity(line), handler); err != nil {
			return err
		}
	}
}

func (c *ConsoleAdapter) isExit(line string) bool {
	for _, cmd := range c.opts.ExitCommands {
		if strings.EqualFold(line, cmd) {
			return true
		}
	}
	return false
}

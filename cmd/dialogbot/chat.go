package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dialogmesh/adapter"
	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/resource"
)

func newChatCmd(a *app) *cobra.Command {
	var (
		user  string
		plain bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot on the console",
		Long: `Starts a console conversation with the root dialog. Every input line is
sent as a message; /quit or EOF ends the conversation.

With bot.watch enabled the bot is reloaded whenever a resource changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.chat(ctx, cmd, user, plain)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "user", "user id of the console conversation")
	cmd.Flags().BoolVar(&plain, "plain", false, "print replies without styling")

	return cmd
}

func (a *app) chat(ctx context.Context, cmd *cobra.Command, user string, plain bool) error {
	explorer, err := a.openExplorer()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			a.logger.Warn("closing storage failed", "error", err)
		}
	}()

	bot, err := a.newBot(explorer, store)
	if err != nil {
		return err
	}

	if a.cfg.Bot.Watch {
		explorer.OnChanged(func([]*resource.Resource) {
			if err := bot.Reload(); err != nil {
				a.logger.Error("reload failed", "error", err)
				return
			}
			a.logger.Info("bot reloaded")
		})
		if err := explorer.Watch(ctx); err != nil {
			return err
		}
		defer explorer.Close()
	}

	st := defaultStyles()
	format := st.formatActivity
	if plain {
		format = func(act core.Activity) string { return act.Text }
	}

	console := adapter.NewConsoleAdapter(adapter.ConsoleConversation(user), cmd.OutOrStdout(), func(o *adapter.ConsoleOptions) {
		o.Logger = a.logger
		o.Format = format
		o.SendTrace = a.cfg.Bot.SendTrace
		o.OnTurnError = func(tc *core.TurnContext, err error) error {
			return tc.SendText("The bot encountered an error: " + err.Error())
		}
		if !plain {
			o.Prompt = st.User.Render("you>") + " "
		}
	})
	bot.Use(console.Adapter)

	return console.Run(ctx, cmd.InOrStdin(), bot.Handler())
}

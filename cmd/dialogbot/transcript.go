package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dialogmesh/adapter"
	"github.com/hupe1980/dialogmesh/core"
)

func newTranscriptCmd(a *app) *cobra.Command {
	var (
		channel string
		plain   bool
	)

	cmd := &cobra.Command{
		Use:   "transcript [conversation-id | file]",
		Short: "Print a recorded conversation",
		Long: `Prints a transcript written by the transcript logger. The argument is either
a conversation id, looked up below transcripts.dir for --channel, or the path
of a .transcript file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			activities, err := a.readTranscript(cmd.Context(), channel, args[0])
			if err != nil {
				return err
			}

			st := defaultStyles()
			out := cmd.OutOrStdout()
			for _, act := range activities {
				if plain {
					fmt.Fprintf(out, "%s\t%s\t%s\n", act.Type, act.From.ID, act.Text)
					continue
				}
				fmt.Fprintln(out, st.formatActivity(act))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "console", "channel of the conversation")
	cmd.Flags().BoolVar(&plain, "plain", false, "print tab separated type, sender and text")

	return cmd
}

func (a *app) readTranscript(ctx context.Context, channel, arg string) ([]core.Activity, error) {
	activities, err := adapter.ReadTranscriptFile(arg)
	if err != nil || activities != nil {
		return activities, err
	}

	logger, err := adapter.NewFileTranscriptLogger(a.cfg.Transcripts.Dir)
	if err != nil {
		return nil, err
	}

	return logger.GetTranscript(ctx, channel, arg)
}

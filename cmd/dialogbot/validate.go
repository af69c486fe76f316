package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dialogmesh/dialog"
	"github.com/hupe1980/dialogmesh/lg"
)

var errValidation = errors.New("validation failed")

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Parse and compile every .dialog and .lg resource",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.validate(cmd)
		},
	}
}

func (a *app) validate(cmd *cobra.Command) error {
	explorer, err := a.openExplorer()
	if err != nil {
		return err
	}

	st := defaultStyles()
	out := cmd.OutOrStdout()
	failed := 0

	report := func(id string, err error) {
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s %s: %v\n", st.Error.Render("FAIL"), id, err)
			return
		}
		fmt.Fprintf(out, "%s %s\n", st.Muted.Render("ok  "), id)
	}

	for _, r := range explorer.Resources(".lg") {
		_, err := lg.Load(explorer, r.ID)
		report(r.ID, err)
	}

	for _, r := range explorer.Resources(".dialog") {
		_, err := dialog.Load(explorer, r.ID)
		report(r.ID, err)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d resource(s)", errValidation, failed)
	}

	return nil
}

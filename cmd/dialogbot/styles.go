package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hupe1980/dialogmesh/core"
)

// Colors
var (
	primaryColor = lipgloss.Color("#7C3AED")
	mutedColor   = lipgloss.Color("#6B7280")
	userColor    = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
)

type styles struct {
	Bot    lipgloss.Style
	User   lipgloss.Style
	Trace  lipgloss.Style
	Title  lipgloss.Style
	Muted  lipgloss.Style
	Error  lipgloss.Style
	Indent lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Bot:    lipgloss.NewStyle().Foreground(primaryColor).Bold(true),
		User:   lipgloss.NewStyle().Foreground(userColor).Bold(true),
		Trace:  lipgloss.NewStyle().Foreground(mutedColor).Italic(true),
		Title:  lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Underline(true),
		Muted:  lipgloss.NewStyle().Foreground(mutedColor),
		Error:  lipgloss.NewStyle().Foreground(errorColor).Bold(true),
		Indent: lipgloss.NewStyle().PaddingLeft(5),
	}
}

// formatActivity renders one transcript line.
func (s styles) formatActivity(a core.Activity) string {
	switch a.Type {
	case core.ActivityTypeTrace:
		return s.Trace.Render(fmt.Sprintf("  [trace] %s: %v", a.Label, a.Value))
	case core.ActivityTypeConversationUpdate:
		var names []string
		for _, m := range a.MembersAdded {
			names = append(names, m.Name)
		}
		return s.Muted.Render(fmt.Sprintf("-- %s joined --", strings.Join(names, ", ")))
	}

	speaker := s.Bot.Render("bot>")
	if a.From.Role == "user" {
		speaker = s.User.Render("you>")
	}

	text := a.Text
	if strings.Contains(text, "\n") {
		lines := strings.SplitN(text, "\n", 2)
		text = lines[0] + "\n" + s.Indent.Render(lines[1])
	}

	return speaker + " " + text
}

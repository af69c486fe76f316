package main

import (
	"context"
	"fmt"

	"github.com/hupe1980/dialogmesh"
	"github.com/hupe1980/dialogmesh/adapter"
	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/internal/config"
	"github.com/hupe1980/dialogmesh/resource"
	"github.com/hupe1980/dialogmesh/storage"
)

// openExplorer indexes the configured resource folder.
func (a *app) openExplorer() (*resource.Explorer, error) {
	explorer := resource.NewExplorer(func(o *resource.Options) {
		o.Logger = a.logger
	})
	if err := explorer.AddFolder(a.cfg.Bot.ResourceDir, true); err != nil {
		return nil, err
	}
	return explorer, nil
}

// openStorage returns the configured store and a func releasing it.
func (a *app) openStorage(ctx context.Context) (core.Storage, func() error, error) {
	switch a.cfg.Storage.Driver {
	case config.DriverSQLite:
		s, err := storage.OpenSQLite(ctx, a.cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return storage.NewMemoryStorage(), func() error { return nil }, nil
	}
}

// newBot wires a Bot from the configuration.
func (a *app) newBot(explorer *resource.Explorer, store core.Storage) (*dialogmesh.Bot, error) {
	var transcript adapter.TranscriptLogger
	if a.cfg.Transcripts.Enabled {
		t, err := adapter.NewFileTranscriptLogger(a.cfg.Transcripts.Dir)
		if err != nil {
			return nil, err
		}
		transcript = t
	}

	var lgID string
	if _, ok := explorer.TryGetResource(a.cfg.Bot.LanguageGeneration); ok {
		lgID = a.cfg.Bot.LanguageGeneration
	} else if a.cfg.Bot.LanguageGeneration != "" {
		a.logger.Warn("language generation resource not found", "id", a.cfg.Bot.LanguageGeneration)
	}

	bot, err := dialogmesh.New(explorer, a.cfg.Bot.RootDialog, func(o *dialogmesh.Options) {
		o.Storage = store
		o.LanguageGeneration = lgID
		o.Transcript = transcript
		o.MaxStepsPerTurn = a.cfg.Bot.MaxStepsPerTurn
		o.Logger = a.logger
	})
	if err != nil {
		return nil, fmt.Errorf("bot: %w", err)
	}

	return bot, nil
}

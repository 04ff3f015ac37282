// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/lumenlabs/lumen-tui/internal/api"
	"github.com/lumenlabs/lumen-tui/internal/completion"
	"github.com/lumenlabs/lumen-tui/internal/config"
	"github.com/lumenlabs/lumen-tui/internal/logging"
	"github.com/lumenlabs/lumen-tui/internal/model"
	"github.com/lumenlabs/lumen-tui/internal/reconciler"
	"github.com/lumenlabs/lumen-tui/internal/storage"
	"github.com/lumenlabs/lumen-tui/internal/store"
	"github.com/lumenlabs/lumen-tui/internal/ui/chat"
	"github.com/lumenlabs/lumen-tui/internal/ui/styles"
)

// runTUI wires the full-screen interface together and blocks until exit.
func runTUI(cfg *config.Config) error {
	dbPath := cfg.Storage.DatabasePath
	if dbPath == "" {
		dbPath = storage.DefaultPath()
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	conv := model.NewConversation(cfg.Settings())
	s := store.New(conv)

	client := completion.NewClient(&completion.ClientConfig{
		BaseURL: cfg.Backend.BaseURL,
		APIKey:  cfg.Backend.APIKey,
	})
	restClient := api.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey)

	// The program pointer is set before Run, so hook callbacks (which only
	// fire from stream session goroutines after Run starts) can rely on
	// it. Hooks never run on the event loop goroutine, so a synchronous
	// Send cannot block the loop on its own inbox.
	var p *tea.Program

	// Model list arrives asynchronously and is read from session
	// goroutines; guard it.
	var modelMu sync.Mutex
	var modelList []model.ModelCapability
	readModels := func() []model.ModelCapability {
		modelMu.Lock()
		defer modelMu.Unlock()
		return modelList
	}
	capability := func(id string) (model.ModelCapability, bool) {
		return model.FindModel(readModels(), id)
	}

	hooks := reconciler.Hooks{
		OnPhase: func(phase reconciler.Phase) {
			p.Send(chat.PhaseMsg{Phase: phase})
		},
		OnNotice: func(text string) {
			p.Send(chat.NoticeMsg{Text: text})
		},
		OnAuthExpired: func() {
			p.Send(chat.AuthExpiredMsg{})
		},
		OnRestoreInput: func(text string) {
			p.Send(chat.RestoreInputMsg{Text: text})
		},
	}

	rec := reconciler.New(s, client, hooks, capability)

	view := chat.New(chat.Deps{
		Store:        s,
		Reconciler:   rec,
		Theme:        styles.NewTheme(cfg.UI.Theme),
		Markdown:     cfg.UI.Markdown,
		DefaultModel: cfg.DefaultModel,
	})

	p = tea.NewProgram(view, tea.WithAltScreen())

	// Forward store updates into the Bubble Tea loop and persist them.
	// Store listeners can fire on the event loop goroutine itself (undo,
	// model cycling), so delivery goes through the non-blocking bridge.
	bridge := chat.NewBridge(p, func(c model.Conversation) {
		if c.IsEmpty() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.SaveConversation(ctx, c); err != nil {
			logging.L().Warn("autosave failed", zap.Error(err))
		}
	})
	defer bridge.Close()
	unsubscribe := s.Subscribe(bridge.Notify)
	defer unsubscribe()

	// Fetch the model list in the background; the view resolves the
	// selected model once it arrives.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		models, err := restClient.ListModels(ctx)
		if err != nil {
			logging.L().Warn("model list fetch failed", zap.Error(err))
			p.Send(chat.ModelsLoadedMsg{Err: err})
			return
		}
		modelMu.Lock()
		modelList = models
		modelMu.Unlock()
		p.Send(chat.ModelsLoadedMsg{Models: models})
	}()

	// Re-validate the model selection when the config file changes.
	watcher, err := config.NewWatcher(config.Path(), func(next *config.Config) {
		s.Update(store.SetModel(model.ResolveModel(
			s.Read().Settings.Model, next.DefaultModel, readModels())))
	})
	if err == nil {
		if err := watcher.Watch(); err == nil {
			defer watcher.Close()
		}
	}

	_, err = p.Run()

	// Drain any in-flight stream so no listener fires after the bridge
	// shuts down.
	rec.Stop()
	rec.Wait()
	return err
}

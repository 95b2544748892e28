// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Task is a background loop owned by the App. It must return when ctx is
// cancelled.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// App owns the long-lived runtime: background tasks plus the server
// lifecycle delegated to Manager.
type App struct {
	logger  zerolog.Logger
	manager Manager
	tasks   []Task
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, tasks ...Task) *App {
	return &App{logger: logger, manager: manager, tasks: tasks}
}

// Manager returns the server manager.
func (a *App) Manager() Manager { return a.manager }

// Run starts the background tasks and the servers, and blocks until ctx is
// cancelled or the servers fail. Tasks stop when the servers stop.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, gctx := errgroup.WithContext(ctx)
	taskCtx, stopTasks := context.WithCancel(gctx)
	defer stopTasks()

	for _, task := range a.tasks {
		g.Go(func() error {
			if err := task.Run(taskCtx); err != nil {
				a.logger.Error().
					Err(err).
					Str("event", "task.failed").
					Str("task", task.Name).
					Msg("background task failed")
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		defer stopTasks()
		return a.manager.Start(gctx)
	})

	return g.Wait()
}

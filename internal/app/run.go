package app

import (
	"context"
	"errors"
	"time"

	"github.com/specialistvlad/livebag/internal/ctxlog"
	"github.com/specialistvlad/livebag/internal/fsutil"
	"github.com/specialistvlad/livebag/internal/registry"
)

// Run loads the document, starts the reload machinery and drives the scene
// until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	logger := a.logger
	logger.Info("🚀 Starting livebag run...", "document", a.config.DocumentPath)

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	if err := a.loadDocument(ctx); err != nil {
		a.shutdown(ctx)
		return err
	}

	if err := a.worker.Start(ctx); err != nil {
		a.shutdown(ctx)
		return err
	}

	if a.watcher != nil {
		if err := a.watcher.Watch(a.config.DocumentPath, a.worker.Request); err != nil {
			logger.Warn("Cannot watch document, hot reload disabled.", "path", a.config.DocumentPath, "error", err)
		}
	}

	if a.config.TweakURL != "" {
		if err := a.bridge.Connect(ctx, a.config.TweakURL); err != nil {
			logger.Warn("Cannot reach tweak server, continuing without it.", "url", a.config.TweakURL, "error", err)
		}
	}

	ticker := a.clock.NewTicker(a.config.TickInterval)
	defer ticker.Stop()
	last := a.clock.Now()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case now := <-ticker.Chan():
			a.Tick(ctx, now.Sub(last))
			last = now
		}
	}

	logger.Info("🏁 Run finished, shutting down.")
	return a.shutdown(context.WithoutCancel(ctx))
}

// Tick applies pending reloads and edits, then advances the scene by dt. A
// connected debug UI is sent the reloaded values.
func (a *App) Tick(ctx context.Context, dt time.Duration) {
	if a.worker.ApplyPending(ctx) {
		a.bridge.Publish()
	}
	a.bridge.Apply(ctx)
	a.scene.Update(dt)
}

// loadDocument performs the blocking startup load. A missing document is
// created from the current defaults when configured to.
func (a *App) loadDocument(ctx context.Context) error {
	path := a.config.DocumentPath
	if err := a.registry.Load(ctx, path); err != nil {
		if !errors.Is(err, registry.ErrParse) {
			return err
		}
		a.logger.Error("Document is invalid, running with defaults.", "path", path, "error", err)
		return nil
	}

	if !fsutil.IsRegularFile(path) && a.config.CreateMissing {
		if err := a.registry.SaveAs(ctx, path); err != nil {
			return err
		}
		a.logger.Info("Wrote default document.", "path", path)
	}
	return nil
}

// shutdown releases everything Run started. The document is saved first
// when configured to.
func (a *App) shutdown(ctx context.Context) error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	errs = append(errs, a.worker.Close(), a.bridge.Close())
	if a.config.SaveOnExit {
		errs = append(errs, a.registry.SaveAs(ctx, a.config.DocumentPath))
	}
	errs = append(errs, a.scene.Close(), a.registry.Close())
	return errors.Join(errs...)
}

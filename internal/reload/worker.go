// Package reload stages document reloads on a background goroutine and
// applies them on the main thread.
//
// Requests go through a single-slot queue: a request made while another is
// pending replaces it, so only the latest path is ever staged. Staged
// snapshots go through a second single-slot queue and are made live by
// ApplyPending, which the main loop calls once per tick.
package reload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/specialistvlad/livebag/internal/ctxlog"
	"github.com/specialistvlad/livebag/internal/metrics"
	"github.com/specialistvlad/livebag/internal/registry"
)

// DefaultIdle is the pause between two stagings.
const DefaultIdle = 10 * time.Millisecond

// ErrStarted is returned when Start is called twice.
var ErrStarted = errors.New("reload worker already started")

// Option configures a Worker.
type Option func(*Worker)

// WithExecContext sets the execution context the worker holds while staging.
func WithExecContext(exec ExecContext) Option {
	return func(w *Worker) {
		w.exec = exec
	}
}

// WithIdle sets the pause between stagings.
func WithIdle(d time.Duration) Option {
	return func(w *Worker) {
		w.idle = d
	}
}

// WithLogger sets the worker's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// Worker stages reload requests for one registry.
type Worker struct {
	reg     *registry.Registry
	exec    ExecContext
	idle    time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	requests *Slot[string]
	ready    *Slot[*registry.Snapshot]

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a stopped worker for reg.
func New(reg *registry.Registry, opts ...Option) *Worker {
	w := &Worker{
		reg:      reg,
		exec:     NopContext{},
		idle:     DefaultIdle,
		logger:   slog.Default(),
		requests: NewSlot[string](),
		ready:    NewSlot[*registry.Snapshot](),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the worker goroutine on a locked OS thread and returns once
// the execution context is current there.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrStarted
	}
	w.started = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	ctx = ctxlog.WithLogger(ctx, w.logger)
	errc := make(chan error, 1)
	w.wg.Add(1)
	go w.run(ctx, errc)
	return <-errc
}

// Request asks for path to be staged. A request still pending is replaced.
func (w *Worker) Request(path string) {
	replaced := w.requests.Push(path)
	w.metrics.ReloadRequested(replaced)
	if replaced {
		w.logger.Debug("Pending reload request replaced.", "path", path)
	} else {
		w.logger.Debug("Reload requested.", "path", path)
	}
}

// ApplyPending applies the latest staged snapshot, if any, and reports
// whether it did. It must be called from the main thread.
func (w *Worker) ApplyPending(ctx context.Context) bool {
	snap, ok := w.ready.TryPop()
	if !ok {
		return false
	}

	w.reg.Apply(ctx, snap)
	w.metrics.ReloadApplied()
	ctxlog.FromContextOr(ctx, w.logger).Info("Reload applied.", "path", snap.Path, "values", snap.Len())
	return true
}

// Close stops the worker and waits for it to exit. A snapshot staged but not
// yet applied is discarded.
func (w *Worker) Close() error {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()

	w.requests.Close()
	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
	return nil
}

func (w *Worker) run(ctx context.Context, errc chan<- error) {
	defer w.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := w.exec.MakeCurrent(); err != nil {
		errc <- fmt.Errorf("failed to make execution context current: %w", err)
		return
	}
	defer w.exec.Release()
	errc <- nil

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Reload worker started.")
	defer logger.Debug("Reload worker finished.")

	for {
		path, err := w.requests.Pop(ctx)
		if err != nil {
			return
		}

		w.stage(ctx, logger, path)

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.idle):
		}
	}
}

func (w *Worker) stage(ctx context.Context, logger *slog.Logger, path string) {
	snap, err := w.reg.Stage(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Reload skipped, document does not exist.", "path", path)
		} else {
			logger.Error("Reload staging failed.", "path", path, "error", err)
		}
		w.metrics.ReloadStaged(metrics.ResultError)
		return
	}

	if err := w.exec.Fence(ctx); err != nil {
		logger.Error("Execution context fence failed, dropping staged reload.", "path", path, "error", err)
		w.metrics.ReloadStaged(metrics.ResultError)
		return
	}

	if w.ready.Push(snap) {
		logger.Debug("Unapplied snapshot superseded.", "path", path)
	}
	w.metrics.ReloadStaged(metrics.ResultOK)
	logger.Info("Staged document.", "path", path, "values", snap.Len())
}

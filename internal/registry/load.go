package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/specialistvlad/livebag/internal/config"
	"github.com/specialistvlad/livebag/internal/ctxlog"
	"github.com/specialistvlad/livebag/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Snapshot is a document decoded against the registered values but not yet
// applied to them.
type Snapshot struct {
	Path       string
	Version    int
	HasVersion bool
	// Dynamics is the document's dynamic section; nil when absent.
	Dynamics map[string][]config.ObjectKey

	staged []stagedEntry
}

type stagedEntry struct {
	Item
	value   any
	missing bool
}

// Len returns the number of entries the snapshot will commit or reset.
func (s *Snapshot) Len() int { return len(s.staged) }

// Load reads path and applies it: version, then dynamic containers, then
// values. A missing file is logged and leaves state untouched. IsLoaded is
// true once Load returns, whatever the outcome.
func (r *Registry) Load(ctx context.Context, path string) error {
	r.SetPath(path)
	defer r.loaded.Store(true)
	return r.load(ctx, path, true)
}

// LoadAsync runs Load on its own goroutine and returns a channel closed when
// it finishes. IsLoaded is false until then. Dynamic containers may only be
// reconciled on the main thread, so the dynamic section is skipped.
func (r *Registry) LoadAsync(ctx context.Context, path string) <-chan struct{} {
	r.loaded.Store(false)
	r.SetPath(path)

	done := make(chan struct{})
	r.async.Add(1)
	go func() {
		defer r.async.Done()
		defer close(done)
		defer r.loaded.Store(true)
		_ = r.load(ctx, path, false)
	}()
	return done
}

func (r *Registry) load(ctx context.Context, path string, withDynamics bool) (err error) {
	ctx, span := r.tracer.Start(ctx, "registry.Load", trace.WithAttributes(attribute.String("livebag.path", path)))
	defer endSpan(span, &err)

	logger := ctxlog.FromContextOr(ctx, r.logger)
	snap, err := r.stage(ctxlog.WithLogger(ctx, logger), path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Document does not exist, nothing loaded.", "path", path)
			r.metrics.Load(metrics.ResultMissing)
			return nil
		}
		r.metrics.Load(metrics.ResultError)
		return err
	}

	if !withDynamics && snap.Dynamics != nil {
		logger.Error("Dynamic objects do not support async load, skipping dynamic section.", "path", path)
		snap.Dynamics = nil
	}

	r.apply(ctx, logger, snap)
	r.metrics.Load(metrics.ResultOK)
	logger.Info("Document loaded.", "path", path, "values", len(snap.staged))
	return nil
}

// Stage parses path and decodes a leaf for every registered value without
// touching live state. It may run on any goroutine; decoding runs the value
// codecs, so it must run where those codecs are allowed to build resources.
func (r *Registry) Stage(ctx context.Context, path string) (snap *Snapshot, err error) {
	ctx, span := r.tracer.Start(ctx, "registry.Stage", trace.WithAttributes(attribute.String("livebag.path", path)))
	defer endSpan(span, &err)

	return r.stage(ctxlog.WithLogger(ctx, ctxlog.FromContextOr(ctx, r.logger)), path)
}

func (r *Registry) stage(ctx context.Context, path string) (*Snapshot, error) {
	logger := ctxlog.FromContext(ctx)

	doc, err := r.codec.Load(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		logger.Error("Failed to parse document.", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	snap := &Snapshot{
		Path:       path,
		Version:    doc.Version,
		HasVersion: doc.HasVersion,
		Dynamics:   doc.Dynamics,
	}

	items := r.Items()
	registered := make(map[string]bool)
	for _, item := range items {
		registered[item.Group] = true

		group, ok := doc.Groups[item.Group]
		if !ok {
			continue
		}
		leaf, ok := group[item.Name]
		if !ok {
			snap.staged = append(snap.staged, stagedEntry{Item: item, missing: true})
			continue
		}
		v, err := item.Entry.Prepare(leaf)
		if err != nil {
			logger.Warn("Failed to decode value, keeping current value.", "group", item.Group, "name", item.Name, "error", err)
			continue
		}
		snap.staged = append(snap.staged, stagedEntry{Item: item, value: v})
	}

	for _, group := range sortedKeys(registered) {
		if _, ok := doc.Groups[group]; !ok {
			logger.Error("No group named in document.", "group", group, "path", path)
		}
	}
	for _, group := range doc.GroupNames() {
		if !registered[group] {
			logger.Warn("Document group has no registered values.", "group", group, "path", path)
		}
	}
	return snap, nil
}

// Apply makes a staged snapshot live: version, dynamic containers, then
// values. Values unregistered since staging are skipped. Apply must run on
// the main thread.
func (r *Registry) Apply(ctx context.Context, snap *Snapshot) {
	if snap == nil {
		return
	}
	ctx, span := r.tracer.Start(ctx, "registry.Apply", trace.WithAttributes(attribute.String("livebag.path", snap.Path)))
	defer span.End()

	r.apply(ctx, ctxlog.FromContextOr(ctx, r.logger), snap)
}

func (r *Registry) apply(ctx context.Context, logger *slog.Logger, snap *Snapshot) {
	if snap.HasVersion {
		r.SetVersion(snap.Version)
	}

	if snap.Dynamics != nil {
		r.reconcile(ctxlog.WithLogger(ctx, logger), logger, snap.Dynamics)
	}

	for _, s := range snap.staged {
		if current, ok := r.Lookup(s.Group, s.Name); !ok || current != s.Entry {
			logger.Debug("Value unregistered since staging, skipping.", "group", s.Group, "name", s.Name)
			continue
		}
		if s.missing {
			logger.Info("No item in document, restoring default value.", "group", s.Group, "name", s.Name)
			s.Entry.RestoreDefault()
			continue
		}
		s.Entry.Commit(s.value)
	}
}

// reconcile drives every registered container to the content listed in
// dynamics. Containers the document does not mention are cleared.
func (r *Registry) reconcile(ctx context.Context, logger *slog.Logger, dynamics map[string][]config.ObjectKey) {
	containers := r.Containers()
	if len(containers) == 0 {
		logger.Error("No dynamic container provided.")
		return
	}

	mentioned := make(map[string]bool, len(dynamics))
	for _, name := range sortedKeys(dynamics) {
		c, ok := containers[name]
		if !ok {
			logger.Error("No dynamic container registered for document entry.", "container", name)
			continue
		}
		mentioned[name] = true
		r.reconcileOne(ctx, logger, name, c, dynamics[name])
	}

	for _, name := range sortedKeys(containers) {
		if !mentioned[name] {
			r.reconcileOne(ctx, logger, name, containers[name], nil)
		}
	}
}

func (r *Registry) reconcileOne(ctx context.Context, logger *slog.Logger, name string, c Container, desired []config.ObjectKey) {
	res := c.Reconcile(ctx, desired)
	r.metrics.Reconciled(name, res.Created, res.Destroyed, res.Failed)
	logger.Debug("Reconciled dynamic container.", "container", name, "created", res.Created, "destroyed", res.Destroyed, "failed", res.Failed)
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package registry

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/livebag/internal/config"
	"github.com/specialistvlad/livebag/internal/hcl"
	"github.com/specialistvlad/livebag/internal/metrics"
	"github.com/zclconf/go-cty/cty"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/specialistvlad/livebag/internal/registry"

var (
	// ErrDuplicate is returned when a (group, name) key is already taken.
	ErrDuplicate = errors.New("duplicate value key")
	// ErrReservedGroup is returned when a group name collides with a
	// reserved document key.
	ErrReservedGroup = errors.New("reserved group name")
	// ErrNotFound is returned when unregistering an entry the registry does
	// not hold.
	ErrNotFound = errors.New("target not found")
	// ErrParse is returned when a document exists but cannot be read.
	ErrParse = errors.New("failed to parse document")
	// ErrNoPath is returned by Save when no existing document path is set.
	ErrNoPath = errors.New("no document path")
)

// Entry is a value the registry can persist.
type Entry interface {
	// Encode renders the current value as a document leaf.
	Encode() cty.Value
	// Prepare decodes a leaf without changing the live value.
	Prepare(leaf cty.Value) (any, error)
	// Commit makes a prepared value live and notifies subscribers.
	Commit(staged any)
	// RestoreDefault resets the value when its key is absent from a document.
	RestoreDefault()
}

// ReconcileResult counts what a container did during one reconciliation.
type ReconcileResult struct {
	Created   int
	Destroyed int
	Failed    int
}

// Container is a named set of dynamic objects the document can describe.
type Container interface {
	// Content lists the live objects.
	Content() []config.ObjectKey
	// Reconcile makes the live set equal to desired.
	Reconcile(ctx context.Context, desired []config.ObjectKey) ReconcileResult
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used when no logger is carried by the context.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithCodec replaces the document codec.
func WithCodec(codec config.Codec) Option {
	return func(r *Registry) {
		r.codec = codec
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithTracerProvider replaces the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Registry) {
		r.tracer = tp.Tracer(tracerName)
	}
}

// Registry holds values and dynamic containers for a single application
// instance.
type Registry struct {
	itemsMu sync.RWMutex
	groups  map[string]map[string]Entry

	pathMu sync.RWMutex
	path   string

	containersMu sync.RWMutex
	containers   map[string]Container

	version atomic.Int64
	loaded  atomic.Bool

	codec   config.Codec
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	async sync.WaitGroup
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		groups:     make(map[string]map[string]Entry),
		containers: make(map[string]Container),
		codec:      hcl.NewCodec(),
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close waits for in-flight asynchronous loads.
func (r *Registry) Close() error {
	r.async.Wait()
	return nil
}

// Register binds entry to group/name. The first registration of a key wins;
// later ones are logged and rejected with ErrDuplicate. Groups named after
// a reserved document key are rejected with ErrReservedGroup.
func (r *Registry) Register(entry Entry, name, group string) error {
	if config.IsReservedKey(group) {
		r.logger.Error("Group name is reserved by the document format, not adding.", "name", name, "group", group)
		return ErrReservedGroup
	}

	r.itemsMu.Lock()
	defer r.itemsMu.Unlock()

	g, ok := r.groups[group]
	if !ok {
		g = make(map[string]Entry)
		r.groups[group] = g
	}
	if _, exists := g[name]; exists {
		r.logger.Error("Registry already contains value, not adding.", "name", name, "group", group)
		return ErrDuplicate
	}

	g[name] = entry
	r.logger.Debug("Registered value.", "name", name, "group", group)
	return nil
}

// Unregister removes entry, matched by identity. A group left empty is
// removed too.
func (r *Registry) Unregister(entry Entry) error {
	if entry == nil {
		return nil
	}

	r.itemsMu.Lock()
	defer r.itemsMu.Unlock()

	for groupName, g := range r.groups {
		for name, e := range g {
			if e != entry {
				continue
			}
			delete(g, name)
			if len(g) == 0 {
				delete(r.groups, groupName)
			}
			r.logger.Debug("Unregistered value.", "name", name, "group", groupName)
			return nil
		}
	}

	r.logger.Error("Target not found.")
	return ErrNotFound
}

// Lookup returns the entry registered under group/name.
func (r *Registry) Lookup(group, name string) (Entry, bool) {
	r.itemsMu.RLock()
	defer r.itemsMu.RUnlock()

	e, ok := r.groups[group][name]
	return e, ok
}

// Item is one registered entry with its key.
type Item struct {
	Group string
	Name  string
	Entry Entry
}

// Items returns every registered entry sorted by group, then name.
func (r *Registry) Items() []Item {
	r.itemsMu.RLock()
	items := make([]Item, 0, len(r.groups))
	for groupName, g := range r.groups {
		for name, e := range g {
			items = append(items, Item{Group: groupName, Name: name, Entry: e})
		}
	}
	r.itemsMu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].Group != items[j].Group {
			return items[i].Group < items[j].Group
		}
		return items[i].Name < items[j].Name
	})
	return items
}

// Groups returns the registered group names in sorted order.
func (r *Registry) Groups() []string {
	r.itemsMu.RLock()
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	r.itemsMu.RUnlock()

	sort.Strings(names)
	return names
}

// AddContainer registers a dynamic container. Registering a name again
// replaces the previous container.
func (r *Registry) AddContainer(name string, c Container) {
	r.containersMu.Lock()
	defer r.containersMu.Unlock()

	if _, exists := r.containers[name]; exists {
		r.logger.Debug("Replacing dynamic container.", "container", name)
	}
	r.containers[name] = c
}

// RemoveContainer unregisters a dynamic container.
func (r *Registry) RemoveContainer(name string) {
	r.containersMu.Lock()
	defer r.containersMu.Unlock()
	delete(r.containers, name)
}

// Containers returns a copy of the registered containers.
func (r *Registry) Containers() map[string]Container {
	r.containersMu.RLock()
	defer r.containersMu.RUnlock()

	out := make(map[string]Container, len(r.containers))
	for name, c := range r.containers {
		out[name] = c
	}
	return out
}

// Path returns the document path last passed to Load or SetPath.
func (r *Registry) Path() string {
	r.pathMu.RLock()
	defer r.pathMu.RUnlock()
	return r.path
}

// SetPath sets the document path used by Save.
func (r *Registry) SetPath(path string) {
	r.pathMu.Lock()
	defer r.pathMu.Unlock()
	r.path = path
}

// Version returns the document schema version.
func (r *Registry) Version() int { return int(r.version.Load()) }

// SetVersion sets the version written by the next Save.
func (r *Registry) SetVersion(v int) { r.version.Store(int64(v)) }

// IsLoaded reports whether the last Load has finished.
func (r *Registry) IsLoaded() bool { return r.loaded.Load() }

package dynamic

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/specialistvlad/livebag/internal/config"
	"github.com/specialistvlad/livebag/internal/ctxlog"
	"github.com/specialistvlad/livebag/internal/registry"
	"github.com/specialistvlad/livebag/internal/signal"
)

// Handle addresses an object in a Container. The zero Handle was never
// bound; a non-zero Handle whose object has been destroyed is stale and
// resolves to nothing.
type Handle struct {
	slot uint32
	gen  uint32
}

// IsZero reports whether h was never bound.
func (h Handle) IsZero() bool { return h.gen == 0 }

// Event describes a created or destroyed object.
type Event[T any] struct {
	Object T
	Handle Handle
	Key    config.ObjectKey
}

// BuildFunc constructs the object for key.
type BuildFunc[T any] func(key config.ObjectKey) (T, error)

// Option configures a Container.
type Option func(*options)

type options struct {
	logger *slog.Logger
	name   string
}

// WithLogger sets the logger used when no logger is carried by the context.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithName labels the container in log output.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

type slot[T any] struct {
	gen  uint32
	used bool
	key  config.ObjectKey
	obj  T
}

// Container owns the dynamic objects of type T.
//
// At most one object exists per name. Created and Destroyed fire once per
// object whose presence changes, always with no container lock held.
type Container[T any] struct {
	Created   signal.Signal[Event[T]]
	Destroyed signal.Signal[Event[T]]

	mu      sync.RWMutex
	slots   []slot[T]
	free    []uint32
	content map[config.ObjectKey]Handle
	byName  map[string]Handle

	build  BuildFunc[T]
	name   string
	logger *slog.Logger
}

var _ registry.Container = (*Container[int])(nil)

// NewContainer creates a container that builds objects with build.
func NewContainer[T any](build BuildFunc[T], opts ...Option) *Container[T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Container[T]{
		content: make(map[config.ObjectKey]Handle),
		byName:  make(map[string]Handle),
		build:   build,
		name:    o.name,
		logger:  o.logger,
	}
}

// NewSimple creates a container whose objects ignore the type discriminator.
func NewSimple[T any](build func(name string) T, opts ...Option) *Container[T] {
	return NewContainer(func(key config.ObjectKey) (T, error) {
		return build(key.Name), nil
	}, opts...)
}

// NewFactory creates a container that dispatches on the type discriminator.
func NewFactory[T any](f *Factories[T], opts ...Option) *Container[T] {
	return NewContainer(f.Build, opts...)
}

// Reconcile makes the container hold exactly the objects in desired.
//
// Only the first key for each name counts; later keys naming the same
// object are logged and ignored. An existing object with the same key is
// kept untouched. A desired key
// whose name is held by an object of another type evicts that object before
// the new one is built. Keys that fail to build are logged and skipped.
// Objects not in desired are destroyed afterwards in (type, name) order.
func (c *Container[T]) Reconcile(ctx context.Context, desired []config.ObjectKey) registry.ReconcileResult {
	logger := ctxlog.FromContextOr(ctx, c.logger)
	var res registry.ReconcileResult

	keep := make(map[config.ObjectKey]bool, len(desired))
	for _, key := range uniqueNames(logger, desired) {

		c.mu.Lock()
		if _, ok := c.content[key]; ok {
			c.mu.Unlock()
			keep[key] = true
			continue
		}
		evicted, hasEvicted := c.evictNameLocked(key.Name)
		c.mu.Unlock()

		if hasEvicted {
			delete(keep, evicted.Key)
			c.destroyed(evicted)
			res.Destroyed++
		}

		if _, ok := c.create(logger, key); !ok {
			res.Failed++
			continue
		}
		keep[key] = true
		res.Created++
	}

	c.mu.Lock()
	var leftovers []config.ObjectKey
	for key := range c.content {
		if !keep[key] {
			leftovers = append(leftovers, key)
		}
	}
	config.SortKeys(leftovers)
	events := make([]Event[T], 0, len(leftovers))
	for _, key := range leftovers {
		events = append(events, c.removeLocked(c.content[key]))
	}
	c.mu.Unlock()

	for _, ev := range events {
		c.destroyed(ev)
	}
	res.Destroyed += len(events)
	return res
}

// uniqueNames drops every key whose name was already listed.
func uniqueNames(logger *slog.Logger, desired []config.ObjectKey) []config.ObjectKey {
	seen := make(map[string]config.ObjectKey, len(desired))
	out := make([]config.ObjectKey, 0, len(desired))
	for _, key := range desired {
		if first, ok := seen[key.Name]; ok {
			if first != key {
				logger.Warn("Dynamic object name listed twice, ignoring later entry.", "name", key.Name, "type", key.Type, "kept_type", first.Type)
			}
			continue
		}
		seen[key.Name] = key
		out = append(out, key)
	}
	return out
}

// Add builds one object outside reconciliation. An object already holding
// key is returned as is; one holding the name under another type is
// evicted first.
func (c *Container[T]) Add(ctx context.Context, typeName, name string) (Handle, bool) {
	key := config.ObjectKey{Type: typeName, Name: name}

	c.mu.Lock()
	if h, ok := c.content[key]; ok {
		c.mu.Unlock()
		return h, true
	}
	evicted, hasEvicted := c.evictNameLocked(name)
	c.mu.Unlock()

	if hasEvicted {
		c.destroyed(evicted)
	}
	return c.create(ctxlog.FromContextOr(ctx, c.logger), key)
}

// Clear destroys every object.
func (c *Container[T]) Clear() {
	c.Reconcile(context.Background(), nil)
}

// Get returns the object named name.
func (c *Container[T]) Get(name string) (T, bool) {
	h, ok := c.Lookup(name)
	if !ok {
		var zero T
		return zero, false
	}
	return c.Resolve(h)
}

// Lookup returns the handle of the object named name.
func (c *Container[T]) Lookup(name string) (Handle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.byName[name]
	return h, ok
}

// Resolve returns the object h addresses, or false if h is zero or stale.
func (c *Container[T]) Resolve(h Handle) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T
	if h.IsZero() || int(h.slot) >= len(c.slots) {
		return zero, false
	}
	s := c.slots[h.slot]
	if !s.used || s.gen != h.gen {
		return zero, false
	}
	return s.obj, true
}

// ForEach calls fn for every object in (type, name) order.
func (c *Container[T]) ForEach(fn func(key config.ObjectKey, obj T)) {
	c.mu.RLock()
	keys := c.keysLocked()
	objs := make([]T, len(keys))
	for i, key := range keys {
		objs[i] = c.slots[c.content[key].slot].obj
	}
	c.mu.RUnlock()

	for i, key := range keys {
		fn(key, objs[i])
	}
}

// Content lists the keys of every object in (type, name) order.
func (c *Container[T]) Content() []config.ObjectKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keysLocked()
}

// Len returns the number of objects.
func (c *Container[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.content)
}

func (c *Container[T]) keysLocked() []config.ObjectKey {
	keys := make([]config.ObjectKey, 0, len(c.content))
	for key := range c.content {
		keys = append(keys, key)
	}
	config.SortKeys(keys)
	return keys
}

func (c *Container[T]) create(logger *slog.Logger, key config.ObjectKey) (Handle, bool) {
	obj, err := c.build(key)
	if err != nil {
		logger.Error("Cannot create dynamic object.", "container", c.name, "type", key.Type, "name", key.Name, "error", err)
		return Handle{}, false
	}

	c.mu.Lock()
	h := c.insertLocked(key, obj)
	c.mu.Unlock()

	logger.Debug("Created dynamic object.", "container", c.name, "type", key.Type, "name", key.Name)
	c.Created.Emit(Event[T]{Object: obj, Handle: h, Key: key})
	return h, true
}

func (c *Container[T]) insertLocked(key config.ObjectKey, obj T) Handle {
	var idx uint32
	if n := len(c.free); n > 0 {
		idx = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		idx = uint32(len(c.slots))
		c.slots = append(c.slots, slot[T]{})
	}

	s := &c.slots[idx]
	s.gen++
	s.used = true
	s.key = key
	s.obj = obj

	h := Handle{slot: idx, gen: s.gen}
	c.content[key] = h
	c.byName[key.Name] = h
	return h
}

// evictNameLocked removes the object holding name, if any.
func (c *Container[T]) evictNameLocked(name string) (Event[T], bool) {
	h, ok := c.byName[name]
	if !ok {
		return Event[T]{}, false
	}
	return c.removeLocked(h), true
}

func (c *Container[T]) removeLocked(h Handle) Event[T] {
	s := &c.slots[h.slot]
	ev := Event[T]{Object: s.obj, Handle: h, Key: s.key}

	delete(c.content, s.key)
	if c.byName[s.key.Name] == h {
		delete(c.byName, s.key.Name)
	}

	var zero T
	s.used = false
	s.obj = zero
	s.key = config.ObjectKey{}
	c.free = append(c.free, h.slot)
	return ev
}

func (c *Container[T]) destroyed(ev Event[T]) {
	c.logger.Debug("Destroyed dynamic object.", "container", c.name, "type", ev.Key.Type, "name", ev.Key.Name)
	c.Destroyed.Emit(ev)
	if closer, ok := any(ev.Object).(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.logger.Warn("Failed to close dynamic object.", "container", c.name, "name", ev.Key.Name, "error", err)
		}
	}
}

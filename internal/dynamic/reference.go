package dynamic

import (
	"sync"

	"github.com/specialistvlad/livebag/internal/registry"
	"github.com/specialistvlad/livebag/internal/signal"
	"github.com/specialistvlad/livebag/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// Reference names an object in a Container without owning it. It resolves
// when an object with the target name exists and clears itself when that
// object is destroyed, so Get never returns a destroyed object.
type Reference[T any] struct {
	container *Container[T]

	mu     sync.RWMutex
	target string
	handle Handle
	owner  *registry.Registry

	changed   signal.Signal[struct{}]
	created   *signal.Connection
	destroyed *signal.Connection
}

var _ registry.Entry = (*Reference[int])(nil)

// NewReference creates a reference to target in c and resolves it
// immediately.
func NewReference[T any](c *Container[T], target string) *Reference[T] {
	r := &Reference[T]{container: c, target: target}
	r.handle, _ = c.Lookup(target)

	r.created = c.Created.Connect(r.onCreated)
	r.destroyed = c.Destroyed.Connect(r.onDestroyed)
	return r
}

// Bind registers the reference in reg, where it is saved as the target name.
func (r *Reference[T]) Bind(reg *registry.Registry, name, group string) error {
	if group == "" {
		group = value.DefaultGroup
	}
	if err := reg.Register(r, name, group); err != nil {
		return err
	}

	r.mu.Lock()
	r.owner = reg
	r.mu.Unlock()
	return nil
}

// Get returns the referenced object, or false when unresolved.
func (r *Reference[T]) Get() (T, bool) {
	return r.container.Resolve(r.Handle())
}

// Handle returns the current handle; zero when unresolved.
func (r *Reference[T]) Handle() Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handle
}

// Target returns the name the reference looks for.
func (r *Reference[T]) Target() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.target
}

// Kind reports the value kind for UI collaborators.
func (r *Reference[T]) Kind() value.Kind { return value.KindReference }

// SetObjectName retargets the reference and resolves it immediately.
func (r *Reference[T]) SetObjectName(name string) {
	h, _ := r.container.Lookup(name)

	r.mu.Lock()
	changed := r.handle != h || r.target != name
	r.target = name
	r.handle = h
	r.mu.Unlock()

	if changed {
		r.changed.Emit(struct{}{})
	}
}

// Subscribe registers fn to run whenever the target or the resolved object
// changes.
func (r *Reference[T]) Subscribe(fn func(), invokeNow bool) *signal.Connection {
	if invokeNow {
		fn()
	}
	return r.changed.Connect(func(struct{}) { fn() })
}

// Close detaches the reference from its container and registry.
func (r *Reference[T]) Close() error {
	r.created.Disconnect()
	r.destroyed.Disconnect()

	r.mu.Lock()
	owner := r.owner
	r.owner = nil
	r.handle = Handle{}
	r.mu.Unlock()

	if owner == nil {
		return nil
	}
	return owner.Unregister(r)
}

// Encode renders the target name.
func (r *Reference[T]) Encode() cty.Value {
	return cty.StringVal(r.Target())
}

// Prepare decodes a target name.
func (r *Reference[T]) Prepare(leaf cty.Value) (any, error) {
	return value.StringCodec.Decode(leaf)
}

// Commit retargets to a name produced by Prepare.
func (r *Reference[T]) Commit(staged any) {
	if name, ok := staged.(string); ok {
		r.SetObjectName(name)
	}
}

// RestoreDefault clears the target.
func (r *Reference[T]) RestoreDefault() {
	r.SetObjectName("")
}

func (r *Reference[T]) onCreated(ev Event[T]) {
	r.mu.Lock()
	bind := ev.Key.Name == r.target && r.handle != ev.Handle
	if bind {
		if _, live := r.container.Resolve(r.handle); live {
			bind = false
		}
	}
	if bind {
		r.handle = ev.Handle
	}
	r.mu.Unlock()

	if bind {
		r.changed.Emit(struct{}{})
	}
}

func (r *Reference[T]) onDestroyed(ev Event[T]) {
	r.mu.Lock()
	drop := r.handle == ev.Handle
	if drop {
		r.handle = Handle{}
	}
	r.mu.Unlock()

	if drop {
		r.changed.Emit(struct{}{})
	}
}

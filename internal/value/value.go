package value

import (
	"sync"

	"github.com/specialistvlad/livebag/internal/registry"
	"github.com/specialistvlad/livebag/internal/signal"
	"github.com/zclconf/go-cty/cty"
)

// DefaultGroup is used when a value is created with an empty group name.
const DefaultGroup = "default"

// Option configures a Value.
type Option func(*options)

type options struct {
	min, max float64
	updateFn func()
}

// WithBounds sets the display range used by UI collaborators.
func WithBounds(min, max float64) Option {
	return func(o *options) {
		o.min, o.max = min, max
	}
}

// WithUpdateFn subscribes fn to changes at construction time.
func WithUpdateFn(fn func()) Option {
	return func(o *options) {
		o.updateFn = fn
	}
}

// Value is a typed, observable cell bound to a (group, name) key.
//
// Get and Set may be called from any goroutine. Subscribers run on the
// goroutine that changed the value; values updated by the registry's load
// and swap paths therefore notify on the main thread.
type Value[T any] struct {
	mu    sync.RWMutex
	value T
	codec Codec[T]

	name, group string
	min, max    float64

	owner   *registry.Registry
	changed signal.Signal[struct{}]
}

var _ registry.Entry = (*Value[int])(nil)

// New creates a value and registers it in reg under group/name. If the key
// is already taken or the group is reserved, the registry logs it and the
// value stays usable but detached. A nil reg creates a detached value.
func New[T any](reg *registry.Registry, codec Codec[T], name, group string, initial T, opts ...Option) *Value[T] {
	o := options{min: 0, max: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if group == "" {
		group = DefaultGroup
	}

	v := &Value[T]{
		value: initial,
		codec: codec,
		name:  name,
		group: group,
		min:   o.min,
		max:   o.max,
	}
	if o.updateFn != nil {
		v.Subscribe(o.updateFn, false)
	}
	if reg != nil && reg.Register(v, name, group) == nil {
		v.owner = reg
	}
	return v
}

// NewBool creates a registered bool value.
func NewBool(reg *registry.Registry, name, group string, initial bool, opts ...Option) *Value[bool] {
	return New(reg, BoolCodec, name, group, initial, opts...)
}

// NewInt creates a registered int value.
func NewInt(reg *registry.Registry, name, group string, initial int, opts ...Option) *Value[int] {
	return New(reg, IntCodec, name, group, initial, opts...)
}

// NewFloat creates a registered float value.
func NewFloat(reg *registry.Registry, name, group string, initial float64, opts ...Option) *Value[float64] {
	return New(reg, FloatCodec, name, group, initial, opts...)
}

// NewString creates a registered string value.
func NewString(reg *registry.Registry, name, group string, initial string, opts ...Option) *Value[string] {
	return New(reg, StringCodec, name, group, initial, opts...)
}

// NewColor creates a registered RGB color value.
func NewColor(reg *registry.Registry, name, group string, initial Color, opts ...Option) *Value[Color] {
	return New(reg, ColorCodec, name, group, initial, opts...)
}

// NewVec2 creates a registered Vec2 value.
func NewVec2(reg *registry.Registry, name, group string, initial Vec2, opts ...Option) *Value[Vec2] {
	return New(reg, Vec2Codec, name, group, initial, opts...)
}

// NewVec3 creates a registered Vec3 value.
func NewVec3(reg *registry.Registry, name, group string, initial Vec3, opts ...Option) *Value[Vec3] {
	return New(reg, Vec3Codec, name, group, initial, opts...)
}

// NewQuat creates a registered quaternion value.
func NewQuat(reg *registry.Registry, name, group string, initial Quat, opts ...Option) *Value[Quat] {
	return New(reg, QuatCodec, name, group, initial, opts...)
}

// NewFloatList creates a registered float list value.
func NewFloatList(reg *registry.Registry, name, group string, initial []float64, opts ...Option) *Value[[]float64] {
	return New(reg, FloatListCodec, name, group, initial, opts...)
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set replaces the value and notifies subscribers if it changed.
func (v *Value[T]) Set(newValue T) {
	v.mu.Lock()
	changed := v.codec.Equal == nil || !v.codec.Equal(v.value, newValue)
	v.value = newValue
	v.mu.Unlock()

	if changed {
		v.changed.Emit(struct{}{})
	}
}

// Subscribe registers fn to run after every change. If invokeNow is true fn
// also runs once before Subscribe returns.
func (v *Value[T]) Subscribe(fn func(), invokeNow bool) *signal.Connection {
	if invokeNow {
		fn()
	}
	return v.changed.Connect(func(struct{}) { fn() })
}

// Name returns the value's name within its group.
func (v *Value[T]) Name() string { return v.name }

// Group returns the value's group.
func (v *Value[T]) Group() string { return v.group }

// Kind returns the value's kind.
func (v *Value[T]) Kind() Kind { return v.codec.Kind }

// Bounds returns the display range.
func (v *Value[T]) Bounds() (min, max float64) { return v.min, v.max }

// Registered reports whether the value is bound to a registry.
func (v *Value[T]) Registered() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.owner != nil
}

// Close removes the value from its registry, freeing the key for reuse.
func (v *Value[T]) Close() error {
	v.mu.Lock()
	owner := v.owner
	v.owner = nil
	v.mu.Unlock()

	if owner == nil {
		return nil
	}
	return owner.Unregister(v)
}

// Encode renders the current value as a document leaf.
func (v *Value[T]) Encode() cty.Value {
	return v.codec.Encode(v.Get())
}

// Prepare decodes a leaf without touching the live value.
func (v *Value[T]) Prepare(leaf cty.Value) (any, error) {
	return v.codec.Decode(leaf)
}

// Commit sets a value produced by Prepare.
func (v *Value[T]) Commit(staged any) {
	if t, ok := staged.(T); ok {
		v.Set(t)
	}
}

// RestoreDefault resets to the zero value of T.
func (v *Value[T]) RestoreDefault() {
	var zero T
	v.Set(zero)
}

package dynamic

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/livebag/internal/config"
)

// ErrUnknownType is returned when no constructor is registered for a type.
var ErrUnknownType = errors.New("unknown dynamic object type")

// Constructor builds one object of a registered type.
type Constructor[T any] func(name string) (T, error)

// Factories maps type discriminators to constructors.
type Factories[T any] struct {
	all map[string]Constructor[T]
}

// NewFactories creates an empty constructor table.
func NewFactories[T any]() *Factories[T] {
	return &Factories[T]{
		all: make(map[string]Constructor[T]),
	}
}

// Register adds the constructor for typeName. Registering a type twice is a
// programming error and panics.
func (f *Factories[T]) Register(typeName string, c Constructor[T]) {
	if _, exists := f.all[typeName]; exists {
		panic(fmt.Sprintf("dynamic object type '%s' already registered", typeName))
	}
	slog.Debug("Registering dynamic object type.", "type", typeName)
	f.all[typeName] = c
}

// Build constructs the object for key.
func (f *Factories[T]) Build(key config.ObjectKey) (T, error) {
	c, ok := f.all[key.Type]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", ErrUnknownType, key.Type)
	}
	return c(key.Name)
}

// Types returns the registered type names in sorted order.
func (f *Factories[T]) Types() []string {
	types := make([]string, 0, len(f.all))
	for t := range f.all {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

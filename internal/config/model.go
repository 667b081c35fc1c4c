package config

import (
	"sort"

	"github.com/zclconf/go-cty/cty"
)

const (
	// DynamicsKey is the reserved top-level key holding dynamic object lists.
	DynamicsKey = "__dynamics__"
	// VersionKey is the top-level key holding the schema version.
	VersionKey = "version"
)

// IsReservedKey reports whether key cannot be used as a group name.
func IsReservedKey(key string) bool {
	return key == DynamicsKey || key == VersionKey
}

// ObjectKey identifies one dynamic object: its type discriminator and its
// instance name.
type ObjectKey struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Less orders keys by type, then name.
func (k ObjectKey) Less(other ObjectKey) bool {
	if k.Type != other.Type {
		return k.Type < other.Type
	}
	return k.Name < other.Name
}

// SortKeys sorts keys in place by (type, name).
func SortKeys(keys []ObjectKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}

// Document is the unified, format-agnostic representation of a parameter
// document.
type Document struct {
	Version    int
	HasVersion bool

	// Dynamics maps a container name to its desired object list. A nil map
	// means the document has no dynamic section at all.
	Dynamics map[string][]ObjectKey

	// Groups maps a group name to its leaves, keyed by value name.
	Groups map[string]map[string]cty.Value
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Groups: make(map[string]map[string]cty.Value),
	}
}

// Leaf returns the value stored for group/name.
func (d *Document) Leaf(group, name string) (cty.Value, bool) {
	g, ok := d.Groups[group]
	if !ok {
		return cty.NilVal, false
	}
	v, ok := g[name]
	return v, ok
}

// SetLeaf stores a value for group/name, creating the group if needed.
func (d *Document) SetLeaf(group, name string, v cty.Value) {
	if d.Groups == nil {
		d.Groups = make(map[string]map[string]cty.Value)
	}
	g, ok := d.Groups[group]
	if !ok {
		g = make(map[string]cty.Value)
		d.Groups[group] = g
	}
	g[name] = v
}

// GroupNames returns the group names in sorted order.
func (d *Document) GroupNames() []string {
	names := make([]string, 0, len(d.Groups))
	for name := range d.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContainerNames returns the dynamic container names in sorted order.
func (d *Document) ContainerNames() []string {
	names := make([]string, 0, len(d.Dynamics))
	for name := range d.Dynamics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package hcl

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/livebag/internal/config"
	"github.com/specialistvlad/livebag/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// translateDocument converts a parsed root object into the agnostic model.
// Malformed sections are logged and skipped rather than failing the whole
// document.
func translateDocument(ctx context.Context, root map[string]cty.Value) *config.Document {
	logger := ctxlog.FromContext(ctx)
	doc := config.NewDocument()

	for key, val := range root {
		switch key {
		case config.VersionKey:
			version, err := translateVersion(val)
			if err != nil {
				logger.Warn("Ignoring malformed document version.", "error", err)
				continue
			}
			doc.Version = version
			doc.HasVersion = true
		case config.DynamicsKey:
			doc.Dynamics = translateDynamics(logger, val)
		default:
			leaves, ok := translateGroup(val)
			if !ok {
				logger.Warn("Ignoring document entry that is not a group.", "group", key, "type", val.Type().FriendlyName())
				continue
			}
			doc.Groups[key] = leaves
		}
	}
	return doc
}

func translateVersion(val cty.Value) (int, error) {
	num, err := convert.Convert(val, cty.Number)
	if err != nil {
		return 0, err
	}
	var version int
	if err := gocty.FromCtyValue(num, &version); err != nil {
		return 0, err
	}
	return version, nil
}

// translateDynamics reads {container: [{type, name}, ...]}. It never returns
// nil for a present section, so callers can tell "empty" from "absent".
func translateDynamics(logger *slog.Logger, val cty.Value) map[string][]config.ObjectKey {
	out := make(map[string][]config.ObjectKey)
	if val.IsNull() || !isObjectLike(val.Type()) {
		logger.Warn("Dynamic objects section is not an object, ignoring its content.", "type", val.Type().FriendlyName())
		return out
	}

	for containerName, list := range val.AsValueMap() {
		keys := []config.ObjectKey{}
		if list.IsNull() || !isSequence(list.Type()) {
			logger.Warn("Dynamic object list is not an array.", "container", containerName)
			out[containerName] = keys
			continue
		}
		for _, item := range list.AsValueSlice() {
			key, ok := translateObjectKey(item)
			if !ok {
				logger.Warn("Skipping malformed dynamic object entry.", "container", containerName)
				continue
			}
			keys = append(keys, key)
		}
		out[containerName] = keys
	}
	return out
}

func translateObjectKey(item cty.Value) (config.ObjectKey, bool) {
	if item.IsNull() || !isObjectLike(item.Type()) {
		return config.ObjectKey{}, false
	}
	attrs := item.AsValueMap()

	name, ok := stringAttr(attrs, "name")
	if !ok {
		return config.ObjectKey{}, false
	}
	typeName, _ := stringAttr(attrs, "type")
	return config.ObjectKey{Type: typeName, Name: name}, true
}

func stringAttr(attrs map[string]cty.Value, key string) (string, bool) {
	v, ok := attrs[key]
	if !ok || v.IsNull() || !v.IsKnown() {
		return "", false
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", false
	}
	return s.AsString(), true
}

// translateGroup accepts either {name: leaf} or [{name: leaf}, ...].
func translateGroup(val cty.Value) (map[string]cty.Value, bool) {
	if val.IsNull() {
		return nil, false
	}
	ty := val.Type()
	switch {
	case isObjectLike(ty):
		return nonNullLeaves(val.AsValueMap()), true
	case isSequence(ty):
		leaves := make(map[string]cty.Value)
		for _, item := range val.AsValueSlice() {
			if item.IsNull() || !isObjectLike(item.Type()) {
				return nil, false
			}
			for name, leaf := range nonNullLeaves(item.AsValueMap()) {
				leaves[name] = leaf
			}
		}
		return leaves, true
	default:
		return nil, false
	}
}

func nonNullLeaves(in map[string]cty.Value) map[string]cty.Value {
	out := make(map[string]cty.Value, len(in))
	for name, leaf := range in {
		if leaf.IsNull() {
			continue
		}
		out[name] = leaf
	}
	return out
}

func isObjectLike(ty cty.Type) bool {
	return ty.IsObjectType() || ty.IsMapType()
}

func isSequence(ty cty.Type) bool {
	return ty.IsTupleType() || ty.IsListType()
}

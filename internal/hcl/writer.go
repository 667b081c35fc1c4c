package hcl

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/livebag/internal/config"
	"github.com/specialistvlad/livebag/internal/ctxlog"
	"github.com/specialistvlad/livebag/internal/fsutil"
	"github.com/tidwall/pretty"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Write serializes doc in the syntax implied by path and atomically replaces
// the file.
func (c *Codec) Write(ctx context.Context, path string, doc *config.Document) error {
	logger := ctxlog.FromContext(ctx)

	data, err := c.Marshal(doc, SyntaxFor(path))
	if err != nil {
		return fmt.Errorf("failed to encode document for %s: %w", path, err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return err
	}

	logger.Debug("Document written.", "path", path, "bytes", len(data))
	return nil
}

// Marshal renders doc in the given syntax.
func (c *Codec) Marshal(doc *config.Document, syntax Syntax) ([]byte, error) {
	keys, tree := buildTree(doc)

	if syntax == SyntaxHCL {
		f := hclwrite.NewEmptyFile()
		body := f.Body()
		for _, key := range keys {
			body.SetAttributeValue(key, tree[key])
		}
		return f.Bytes(), nil
	}

	root := cty.ObjectVal(tree)
	raw, err := ctyjson.Marshal(root, root.Type())
	if err != nil {
		return nil, err
	}
	return pretty.Pretty(raw), nil
}

// buildTree returns the top-level entries and their preferred write order:
// dynamic objects first, then groups sorted by name, then the version.
func buildTree(doc *config.Document) ([]string, map[string]cty.Value) {
	tree := make(map[string]cty.Value, len(doc.Groups)+2)
	var keys []string

	if doc.Dynamics != nil {
		containers := make(map[string]cty.Value, len(doc.Dynamics))
		for _, name := range doc.ContainerNames() {
			items := make([]cty.Value, 0, len(doc.Dynamics[name]))
			for _, key := range doc.Dynamics[name] {
				items = append(items, cty.ObjectVal(map[string]cty.Value{
					"type": cty.StringVal(key.Type),
					"name": cty.StringVal(key.Name),
				}))
			}
			containers[name] = cty.TupleVal(items)
		}
		tree[config.DynamicsKey] = cty.ObjectVal(containers)
		keys = append(keys, config.DynamicsKey)
	}

	groups := make([]string, 0, len(doc.Groups))
	for name := range doc.Groups {
		if config.IsReservedKey(name) {
			continue
		}
		groups = append(groups, name)
	}
	sort.Strings(groups)
	for _, name := range groups {
		tree[name] = cty.ObjectVal(doc.Groups[name])
		keys = append(keys, name)
	}

	tree[config.VersionKey] = cty.NumberIntVal(int64(doc.Version))
	keys = append(keys, config.VersionKey)
	return keys, tree
}

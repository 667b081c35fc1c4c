package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/livebag/internal/config"
	"github.com/specialistvlad/livebag/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Syntax is the on-disk syntax of a document.
type Syntax int

const (
	// SyntaxJSON is plain JSON.
	SyntaxJSON Syntax = iota
	// SyntaxHCL is HCL native syntax.
	SyntaxHCL
)

// SyntaxFor picks the syntax for path from its extension.
func SyntaxFor(path string) Syntax {
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return SyntaxHCL
	}
	return SyntaxJSON
}

// Codec is the concrete implementation of config.Codec.
type Codec struct{}

// NewCodec creates a new document codec.
func NewCodec() *Codec {
	return &Codec{}
}

var _ config.Codec = (*Codec)(nil)

// Load reads the document at path and translates it into the agnostic model.
func (c *Codec) Load(ctx context.Context, path string) (*config.Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Document loader started.", "path", path)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	doc, err := c.Parse(ctx, src, path)
	if err != nil {
		return nil, err
	}

	logger.Debug("Document loading complete.", "path", path, "groups", len(doc.Groups), "containers", len(doc.Dynamics))
	return doc, nil
}

// Parse translates src into the agnostic model. The filename selects the
// syntax and is used in diagnostics.
func (c *Codec) Parse(ctx context.Context, src []byte, filename string) (*config.Document, error) {
	var (
		root map[string]cty.Value
		err  error
	)
	switch SyntaxFor(filename) {
	case SyntaxHCL:
		root, err = parseHCL(src, filename)
	default:
		root, err = parseJSON(src)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", filename, err)
	}
	return translateDocument(ctx, root), nil
}

func parseJSON(src []byte) (map[string]cty.Value, error) {
	ty, err := ctyjson.ImpliedType(src)
	if err != nil {
		return nil, err
	}
	if !ty.IsObjectType() {
		return nil, fmt.Errorf("document root must be an object, got %s", ty.FriendlyName())
	}
	val, err := ctyjson.Unmarshal(src, ty)
	if err != nil {
		return nil, err
	}
	return val.AsValueMap(), nil
}

func parseHCL(src []byte, filename string) (map[string]cty.Value, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	root := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		root[name] = val
	}
	return root, nil
}

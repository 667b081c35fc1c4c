// Package hcl provides the concrete implementation for the document loading
// and writing interfaces defined in the `config` package.
//
// Two syntaxes are supported, selected by file extension: HCL native syntax
// for `.hcl` files, and JSON for everything else. Both are read into a tree
// of cty values and translated into a config.Document; writing performs the
// reverse translation and replaces the target file atomically.
package hcl

// Package config defines the format-agnostic document model for the
// registry, along with the core interfaces (Loader, Writer) for reading and
// writing that document from various sources.
//
// The `config.Document` is the single source of truth exchanged between the
// `registry` and a concrete codec. Concrete implementations of the
// interfaces, such as for JSON and HCL, are provided in separate packages.
package config

package config

import "context"

// Loader is the interface for a format-specific document loader.
type Loader interface {
	// Load reads the document at path and translates it into the
	// format-agnostic model.
	Load(ctx context.Context, path string) (*Document, error)
}

// Writer is the interface for a format-specific document writer.
type Writer interface {
	// Write serializes doc and replaces the file at path with it.
	Write(ctx context.Context, path string, doc *Document) error
}

// Codec reads and writes documents.
type Codec interface {
	Loader
	Writer
}

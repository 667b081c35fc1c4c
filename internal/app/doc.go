// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle: load the
// parameter document, keep it hot-reloaded while a fixed-rate loop runs the
// scene, and save on the way out. It is decoupled from any specific
// entrypoint like a CLI.
package app

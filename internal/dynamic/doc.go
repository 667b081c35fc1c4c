// Package dynamic manages objects whose existence is declared by the
// parameter document.
//
// A Container owns the objects of one Go type, keyed by (type, name), and
// reconciles them against the list a document declares: unchanged keys keep
// their object, new keys are built by a factory, dropped keys are destroyed.
// Objects are addressed through generation-checked Handles, so a handle to a
// destroyed object is detectably stale rather than dangling.
//
// A Reference is a registry value that names an object in a Container and
// follows it across reloads.
//
// Reconciliation and reference resolution must happen on the main thread.
package dynamic

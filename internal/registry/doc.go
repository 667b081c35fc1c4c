// Package registry binds named values to a parameter document.
//
// A Registry holds every live value under a (group, name) key and the dynamic
// object containers under a container name. It can write all of them to a
// document (Save), read a document back into them (Load), and split the read
// into a side-effect-free Stage and a main-thread Apply for hot reloading.
//
// The registry never holds one of its locks while it runs a container
// reconciliation or a value's change callbacks, so callbacks may freely call
// back into the registry.
package registry

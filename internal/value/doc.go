// Package value implements named values: typed, observable cells bound to a
// (group, name) key in a registry and serialized to the parameter document.
//
// The set of supported value kinds is closed and explicit. Each kind has a
// Codec that encodes the Go value into a document leaf and decodes it back;
// new kinds are added by writing another Codec, not by reflection.
package value

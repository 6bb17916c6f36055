// Package extract walks the type schema registry against a concrete field
// instance and returns only the options reachable through the choices the
// instance actually selected.
//
// Extraction is a pure function of (registry, node, instance): the registry
// is read through copies and the instance is never written to.
package extract

// Package orchestrator wires the normalize → synthesize → render → persist →
// reload pipeline that turns a list of collaborator field instances into an
// enabled module, with functional options for every collaborator.
package orchestrator

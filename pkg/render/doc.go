// Package render defines the renderer contract that turns a Model Descriptor
// into artifact source text, and a registry that selects renderers by name.
// Concrete renderers live under pkg/renderers.
package render

// Package template defines the template seam artifact renderers render
// through. The pongo subpackage provides the default pongo2-backed engine.
package template

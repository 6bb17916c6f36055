// Package widgets discovers the widget contributors that can be placed in a
// rich content area. Contributors live in sibling directories whose names end
// in a fixed suffix; each one declares a label in its definition source.
// The resulting list feeds the area kind's choice list when the type schema
// registry is built.
package widgets

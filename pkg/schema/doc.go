// Package schema holds the type schema registry: an ordered forest of nodes
// describing every field type an administrator can pick and the option
// schemas that become visible when a particular choice is selected.
//
// Declarations are data. The default forest ships as embedded YAML under
// declarations/ and is loaded with LoadFS; callers can point LoadFS at any
// other fs.FS holding JSON or YAML files of the same shape. A Registry is
// built once and never mutated afterwards: lookups hand out copies, and
// widget contributors are folded into the area choice list during New.
// Holder swaps whole snapshots when contributors change on disk.
package schema

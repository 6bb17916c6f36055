package schema

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-modelgen/pkg/widgets"
)

// Provider hands out the registry snapshot to use for one operation.
type Provider interface {
	Get() *Registry
}

// Option customises registry construction.
type Option func(*buildConfig)

type buildConfig struct {
	widgets []widgets.Contributor
}

// WithWidgets appends widget contributors to the area choice list. Values
// already declared are skipped.
func WithWidgets(contributors ...widgets.Contributor) Option {
	return func(cfg *buildConfig) {
		cfg.widgets = append(cfg.widgets, contributors...)
	}
}

// Registry is an immutable, validated type schema forest.
type Registry struct {
	root  string
	area  AreaConfig
	nodes []Node
	index map[string]int
}

var _ Provider = (*Registry)(nil)

// New validates decl and builds a Registry. The declarations are copied;
// later changes to decl do not affect the registry.
func New(decl Declarations, options ...Option) (*Registry, error) {
	cfg := buildConfig{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	reg := &Registry{
		root:  strings.TrimSpace(decl.Root),
		area:  decl.Area,
		nodes: make([]Node, 0, len(decl.Nodes)),
		index: make(map[string]int, len(decl.Nodes)),
	}

	for _, raw := range decl.Nodes {
		node := withKinds(raw.Clone())
		name := strings.TrimSpace(node.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: node without a name", ErrInvalidNode)
		}
		if _, exists := reg.index[name]; exists {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrInvalidNode, name)
		}
		node.Name = name
		reg.index[name] = len(reg.nodes)
		reg.nodes = append(reg.nodes, node)
	}

	if reg.root == "" {
		return nil, fmt.Errorf("%w: no root node declared", ErrInvalidNode)
	}
	root, ok := reg.index[reg.root]
	if !ok {
		return nil, fmt.Errorf("%w: root %q", ErrUnknownNode, reg.root)
	}
	if reg.nodes[root].Kind != KindChoiceList {
		return nil, fmt.Errorf("%w: root %q must be a choice list", ErrInvalidNode, reg.root)
	}

	if err := reg.applyWidgets(cfg.widgets); err != nil {
		return nil, err
	}
	for _, node := range reg.nodes {
		if err := reg.validate(node, node.Name); err != nil {
			return nil, err
		}
	}
	if err := reg.checkCycles(); err != nil {
		return nil, err
	}
	return reg, nil
}

// Get returns the registry itself so a fixed snapshot can serve as a Provider.
func (r *Registry) Get() *Registry { return r }

// Root returns a copy of the root node (the field type choice list).
func (r *Registry) Root() Node {
	node, _ := r.Lookup(r.root)
	return node
}

// Lookup returns a copy of the top-level node declared under name.
func (r *Registry) Lookup(name string) (Node, bool) {
	if r == nil {
		return Node{}, false
	}
	idx, ok := r.index[name]
	if !ok {
		return Node{}, false
	}
	return r.nodes[idx].Clone(), true
}

// Nodes returns a copy of the forest in declaration order.
func (r *Registry) Nodes() []Node {
	if r == nil {
		return nil
	}
	out := make([]Node, len(r.nodes))
	for i, node := range r.nodes {
		out[i] = node.Clone()
	}
	return out
}

// AreaType returns the field type that wraps extracted widgets in the area
// envelope. Empty when no area is declared.
func (r *Registry) AreaType() string {
	if r == nil {
		return ""
	}
	return r.area.Type
}

// WidgetNode returns the name of the node listing area widgets.
func (r *Registry) WidgetNode() string {
	if r == nil {
		return ""
	}
	return r.area.Widgets
}

// FieldTypes lists the values of the root choice list.
func (r *Registry) FieldTypes() []string {
	root := r.Root()
	out := make([]string, 0, len(root.Choices))
	for _, c := range root.Choices {
		out = append(out, c.Value)
	}
	return out
}

func (r *Registry) applyWidgets(contributors []widgets.Contributor) error {
	if r.area.Type == "" && r.area.Widgets == "" {
		if len(contributors) > 0 {
			return fmt.Errorf("%w: widgets supplied but no area is declared", ErrInvalidNode)
		}
		return nil
	}
	if r.area.Type == "" || r.area.Widgets == "" {
		return fmt.Errorf("%w: area requires both type and widgets", ErrInvalidNode)
	}
	idx, ok := r.index[r.area.Widgets]
	if !ok {
		return fmt.Errorf("%w: area widgets node %q", ErrUnknownNode, r.area.Widgets)
	}
	node := &r.nodes[idx]
	if node.Kind != KindChoiceList {
		return fmt.Errorf("%w: area widgets node %q must be a choice list", ErrInvalidNode, node.Name)
	}
	for _, c := range contributors {
		if c.Name == "" || node.HasValue(c.Name) {
			continue
		}
		node.Choices = append(node.Choices, Choice{Label: c.Label, Value: c.Name})
	}
	return nil
}

func (r *Registry) validate(node Node, path string) error {
	switch node.Kind {
	case KindScalar:
		if len(node.Choices) > 0 || len(node.Schema) > 0 {
			return fmt.Errorf("%w: scalar %q declares choices or schema", ErrInvalidNode, path)
		}
	case KindChoiceList:
		if len(node.Schema) > 0 {
			return fmt.Errorf("%w: choice list %q declares a schema", ErrInvalidNode, path)
		}
		for _, choice := range node.Choices {
			for _, ref := range choice.ShowFields {
				if _, ok := r.index[ref]; !ok {
					return fmt.Errorf("%w: %q (shown by %s=%s)", ErrUnknownNode, ref, path, choice.Value)
				}
			}
		}
	case KindObject, KindArray:
		if len(node.Choices) > 0 {
			return fmt.Errorf("%w: %s %q declares choices", ErrInvalidNode, node.Kind, path)
		}
		for _, child := range node.Schema {
			if strings.TrimSpace(child.Name) == "" {
				return fmt.Errorf("%w: unnamed member of %q", ErrInvalidNode, path)
			}
			if err := r.validate(child, path+"."+child.Name); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %q has unknown kind %q", ErrInvalidNode, path, node.Kind)
	}
	return nil
}

// checkCycles rejects showFields chains that lead back to a node already on
// the path; extraction would otherwise never terminate.
func (r *Registry) checkCycles() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(r.nodes))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("%w: showFields cycle through %q", ErrInvalidNode, name)
		case done:
			return nil
		}
		state[name] = visiting
		for _, ref := range references(r.nodes[r.index[name]]) {
			if err := visit(ref); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, node := range r.nodes {
		if err := visit(node.Name); err != nil {
			return err
		}
	}
	return nil
}

func references(node Node) []string {
	var out []string
	for _, c := range node.Choices {
		out = append(out, c.ShowFields...)
	}
	for _, child := range node.Schema {
		out = append(out, references(child)...)
	}
	return out
}

func withKinds(node Node) Node {
	if node.Kind == "" {
		node.Kind = KindOf(node.Type)
	}
	for i := range node.Schema {
		node.Schema[i] = withKinds(node.Schema[i])
	}
	return node
}

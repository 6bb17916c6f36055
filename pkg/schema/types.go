package schema

import "errors"

// Kind tags the extraction rule a node follows.
type Kind string

const (
	KindScalar     Kind = "scalar"
	KindChoiceList Kind = "choice-list"
	KindObject     Kind = "nested-object"
	KindArray      Kind = "nested-array"
)

// Field types understood by the host application.
const (
	TypeString     = "string"
	TypeBoolean    = "boolean"
	TypeInteger    = "integer"
	TypeFloat      = "float"
	TypeDate       = "date"
	TypeTime       = "time"
	TypeColor      = "color"
	TypeURL        = "url"
	TypePassword   = "password"
	TypeSelect     = "select"
	TypeCheckboxes = "checkboxes"
	TypeObject     = "object"
	TypeArray      = "array"
	TypeArea       = "area"
)

var (
	// ErrUnknownNode is returned when a showFields entry names a node that is
	// not declared.
	ErrUnknownNode = errors.New("schema: unknown node")
	// ErrInvalidNode is returned when a node's choices/schema do not match its
	// kind.
	ErrInvalidNode = errors.New("schema: invalid node")
)

// Choice is one selectable value of a choice-list node. ShowFields names the
// nodes that become active when the choice is selected.
type Choice struct {
	Label      string   `json:"label" yaml:"label"`
	Value      string   `json:"value" yaml:"value"`
	ShowFields []string `json:"showFields,omitempty" yaml:"showFields,omitempty"`
}

// Node describes one field type or one sub-option. Name is the property read
// off a field instance; Type is the host field type used to edit it.
type Node struct {
	Name    string   `json:"name" yaml:"name"`
	Label   string   `json:"label,omitempty" yaml:"label,omitempty"`
	Kind    Kind     `json:"kind,omitempty" yaml:"kind,omitempty"`
	Type    string   `json:"type" yaml:"type"`
	Help    string   `json:"help,omitempty" yaml:"help,omitempty"`
	Choices []Choice `json:"choices,omitempty" yaml:"choices,omitempty"`
	Schema  []Node   `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// KindOf maps a host field type onto the extraction kind used when a node
// does not declare one explicitly.
func KindOf(fieldType string) Kind {
	switch fieldType {
	case TypeSelect, TypeCheckboxes, TypeArea:
		return KindChoiceList
	case TypeObject:
		return KindObject
	case TypeArray:
		return KindArray
	default:
		return KindScalar
	}
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	if n.Choices != nil {
		out.Choices = make([]Choice, len(n.Choices))
		for i, c := range n.Choices {
			out.Choices[i] = c
			if c.ShowFields != nil {
				out.Choices[i].ShowFields = append([]string(nil), c.ShowFields...)
			}
		}
	}
	if n.Schema != nil {
		out.Schema = make([]Node, len(n.Schema))
		for i, child := range n.Schema {
			out.Schema[i] = child.Clone()
		}
	}
	return out
}

// HasValue reports whether a choice with value is declared on the node.
func (n Node) HasValue(value string) bool {
	for _, c := range n.Choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// KindDerivedType tags every descriptor produced by the synthesizer.
const KindDerivedType = "derived-type"

// DefaultExtends is the host base type derived types extend.
const DefaultExtends = "apostrophe-pieces"

// ErrMissingType is returned when a field instance carries no type.
var ErrMissingType = errors.New("model: field type is missing")

// Keys of the canonical field descriptor. Option keys never override them.
const (
	KeyName     = "name"
	KeyLabel    = "label"
	KeyRequired = "required"
	KeyType     = "type"
)

// CanonicalKeys lists the canonical keys in output order.
var CanonicalKeys = []string{KeyName, KeyLabel, KeyRequired, KeyType}

// FieldInstance is one collaborator-authored field entry:
// {name, required, type, <type specific options>}.
type FieldInstance map[string]any

// Name returns the raw field name.
func (f FieldInstance) Name() string { return stringValue(f[KeyName]) }

// Type returns the declared field type, empty when absent.
func (f FieldInstance) Type() string { return stringValue(f[KeyType]) }

// Required reports the required flag. Strings such as "true" are accepted.
func (f FieldInstance) Required() bool {
	switch v := f[KeyRequired].(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && parsed
	default:
		return false
	}
}

// Field is a canonical field descriptor.
type Field struct {
	Name     string         `json:"name"`
	Label    string         `json:"label"`
	Required bool           `json:"required"`
	Type     string         `json:"type"`
	Options  map[string]any `json:"options,omitempty"`
}

// Map flattens the descriptor into {name, label, required, type, ...options}.
func (f Field) Map() map[string]any {
	out := make(map[string]any, len(f.Options)+len(CanonicalKeys))
	for k, v := range f.Options {
		out[k] = v
	}
	out[KeyName] = f.Name
	out[KeyLabel] = f.Label
	out[KeyRequired] = f.Required
	out[KeyType] = f.Type
	return out
}

// Entity carries the metadata of the derived type being created.
type Entity struct {
	Title string `json:"title" yaml:"title"`
	Slug  string `json:"slug" yaml:"slug"`
}

// Descriptor is the in-memory Model Descriptor of a derived type.
type Descriptor struct {
	Kind    string  `json:"kind"`
	Extends string  `json:"extend,omitempty"`
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	Fields  []Field `json:"fields"`
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

package extract

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-modelgen/pkg/schema"
)

// Options is the mapping produced for choice-list and object nodes.
type Options = map[string]any

// Envelope keys used to wrap widget configuration for rich content areas.
const (
	EnvelopeKey = "options"
	WidgetsKey  = "widgets"
)

// Extractor resolves extraction against one registry snapshot.
type Extractor struct {
	registry *schema.Registry
}

// New returns an Extractor reading from registry.
func New(registry *schema.Registry) *Extractor {
	return &Extractor{registry: registry}
}

// Field extracts the options of instance starting at the registry root. The
// instance's own "type" property decides whether area semantics apply at the
// top level.
func (e *Extractor) Field(instance map[string]any) any {
	if e == nil || e.registry == nil {
		return Options{}
	}
	fieldType := coerceString(instance["type"])
	return e.walk(e.registry.Root(), instance, fieldType)
}

// Node extracts starting at node. Area semantics apply when node's own type
// is the registry's area type.
func (e *Extractor) Node(node schema.Node, instance map[string]any) any {
	return e.walk(node, instance, node.Type)
}

func (e *Extractor) walk(node schema.Node, instance map[string]any, fieldType string) any {
	switch node.Kind {
	case schema.KindScalar:
		return instance[node.Name]
	case schema.KindChoiceList:
		return e.choices(node, instance, fieldType)
	case schema.KindObject:
		sub, _ := instance[node.Name].(map[string]any)
		return e.members(node.Schema, sub)
	case schema.KindArray:
		return e.items(node, instance)
	default:
		return Options{}
	}
}

func (e *Extractor) choices(node schema.Node, instance map[string]any, fieldType string) any {
	acc := Options{}
	selection, present := instance[node.Name]
	collection := isCollection(selection)

	for _, choice := range node.Choices {
		if len(choice.ShowFields) > 0 {
			if !present || !selected(selection, choice.Value) {
				continue
			}
			for _, ref := range choice.ShowFields {
				sub, ok := e.registry.Lookup(ref)
				if !ok {
					continue
				}
				res := e.walk(sub, instance, sub.Type)
				if e.isArea(fieldType) {
					mergeWidgets(acc, res)
					continue
				}
				mergeInto(acc, choice.Value, res)
			}
			continue
		}

		if choice.Value == "" || !present {
			continue
		}
		if collection {
			if contains(selection, choice.Value) {
				if _, exists := acc[choice.Value]; !exists {
					acc[choice.Value] = Options{}
				}
			}
			continue
		}
		if coerceString(selection) == choice.Value {
			return selection
		}
	}
	return acc
}

func (e *Extractor) members(children []schema.Node, sub map[string]any) Options {
	acc := Options{}
	if sub == nil {
		return acc
	}
	for _, child := range children {
		if child.Kind == schema.KindScalar {
			value, ok := sub[child.Name]
			if !ok {
				continue
			}
			acc[child.Name] = value
			continue
		}
		value := e.walk(child, sub, child.Type)
		if value == nil {
			continue
		}
		acc[child.Name] = value
	}
	return acc
}

func (e *Extractor) items(node schema.Node, instance map[string]any) []any {
	raw := instance[node.Name]
	if !isCollection(raw) {
		return []any{}
	}
	rv := reflect.ValueOf(raw)
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item, ok := rv.Index(i).Interface().(map[string]any)
		if !ok {
			continue
		}
		out = append(out, e.members(node.Schema, item))
	}
	return out
}

func (e *Extractor) isArea(fieldType string) bool {
	area := e.registry.AreaType()
	return area != "" && fieldType == area
}

// mergeInto stores res under key. Two mappings under the same key are merged;
// anything else replaces the previous value.
// Absent values are skipped.
func mergeInto(acc Options, key string, res any) {
	if res == nil {
		return
	}
	incoming, ok := res.(map[string]any)
	if !ok {
		acc[key] = res
		return
	}
	existing, ok := acc[key].(map[string]any)
	if !ok {
		acc[key] = incoming
		return
	}
	merged := make(Options, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}
	acc[key] = merged
}

func mergeWidgets(acc Options, res any) {
	envelope, ok := acc[EnvelopeKey].(map[string]any)
	if !ok {
		envelope = Options{}
		acc[EnvelopeKey] = envelope
	}
	mergeInto(envelope, WidgetsKey, res)
}

func selected(selection any, value string) bool {
	if isCollection(selection) {
		return contains(selection, value)
	}
	return coerceString(selection) == value
}

func isCollection(value any) bool {
	if value == nil {
		return false
	}
	switch reflect.TypeOf(value).Kind() {
	case reflect.Slice, reflect.Array:
		_, isBytes := value.([]byte)
		return !isBytes
	default:
		return false
	}
}

func contains(collection any, value string) bool {
	rv := reflect.ValueOf(collection)
	for i := 0; i < rv.Len(); i++ {
		if coerceString(rv.Index(i).Interface()) == value {
			return true
		}
	}
	return false
}

func coerceString(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(value)
	}
}

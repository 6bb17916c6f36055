package intake

import (
	"reflect"

	"github.com/invopop/jsonschema"
)

// JSONSchema describes the request document for editors and API clients.
func JSONSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		ExpandedStruct:             true,
		FieldNameTag:               "json",
	}
	reflector.Mapper = func(t reflect.Type) *jsonschema.Schema {
		if t == reflect.TypeOf(Field{}) {
			return fieldSchema()
		}
		return nil
	}
	s := reflector.Reflect(&Request{})
	if s.Version == "" {
		s.Version = jsonschema.Version
	}
	s.Title = "modelgen request"
	return s
}

func fieldSchema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	props.Set("name", &jsonschema.Schema{Type: "string", Description: "Field name, camel-cased in the generated module"})
	props.Set("type", &jsonschema.Schema{Type: "string", Description: "Field type declared by the type schema registry"})
	props.Set("required", &jsonschema.Schema{Type: "boolean"})
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             []string{"name", "type"},
		AdditionalProperties: jsonschema.TrueSchema,
		Description:          "Field instance; keys other than name, type and required carry type specific options",
	}
}

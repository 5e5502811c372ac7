package turnkit

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// SchemaFor generates a JSON Schema object from a struct type T using its
// field tags. Field names come from `json` tags, descriptions from `desc`,
// allowed values from `enum` (comma-separated), and `required:"true"` marks
// the field as required.
//
//	type WriteArgs struct {
//	    Path string `json:"path" desc:"Destination path" required:"true"`
//	    Mode string `json:"mode" desc:"Write mode" enum:"create,append"`
//	}
func SchemaFor[T any]() (json.RawMessage, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %T is not a struct type", zero)
	}
	return buildObjectSchema(t).marshal()
}

// MustSchemaFor is like SchemaFor but panics on error. Useful in
// initialization code where a bad tool definition should be fatal.
func MustSchemaFor[T any]() json.RawMessage {
	schema, err := SchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return schema
}

type objectSchema struct {
	properties map[string]*propertyDef
	order      []string
	required   []string
}

type propertyDef struct {
	Type        string
	Description string
	Enum        []any
	Items       *propertyDef
	Object      *objectSchema
}

func buildObjectSchema(t reflect.Type) *objectSchema {
	s := &objectSchema{properties: make(map[string]*propertyDef)}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name := strings.Split(jsonTag, ",")[0]
		if name == "" {
			name = field.Name
		}

		prop := propertyFor(field.Type)
		prop.Description = field.Tag.Get("desc")
		if enum := field.Tag.Get("enum"); enum != "" {
			for _, v := range strings.Split(enum, ",") {
				prop.Enum = append(prop.Enum, v)
			}
		}

		s.properties[name] = prop
		s.order = append(s.order, name)
		if field.Tag.Get("required") == "true" {
			s.required = append(s.required, name)
		}
	}

	return s
}

func propertyFor(t reflect.Type) *propertyDef {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return &propertyDef{Type: "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &propertyDef{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &propertyDef{Type: "number"}
	case reflect.Bool:
		return &propertyDef{Type: "boolean"}
	case reflect.Slice, reflect.Array:
		return &propertyDef{Type: "array", Items: propertyFor(t.Elem())}
	case reflect.Struct:
		return &propertyDef{Type: "object", Object: buildObjectSchema(t)}
	case reflect.Map:
		return &propertyDef{Type: "object"}
	default:
		return &propertyDef{Type: "string"}
	}
}

func (s *objectSchema) marshal() (json.RawMessage, error) {
	data, err := json.Marshal(s.toMap())
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return data, nil
}

func (s *objectSchema) toMap() map[string]any {
	props := make(map[string]any, len(s.order))
	for _, name := range s.order {
		props[name] = s.properties[name].toMap()
	}
	result := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(s.required) > 0 {
		result["required"] = s.required
	}
	return result
}

func (p *propertyDef) toMap() map[string]any {
	if p.Object != nil {
		m := p.Object.toMap()
		if p.Description != "" {
			m["description"] = p.Description
		}
		return m
	}

	result := map[string]any{"type": p.Type}
	if p.Description != "" {
		result["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		result["enum"] = p.Enum
	}
	if p.Items != nil {
		result["items"] = p.Items.toMap()
	}
	return result
}

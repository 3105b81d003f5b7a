// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/logrelay/lib/timeexpr"
)

// Schema is the subset of JSON Schema used to describe operation
// requests and results. It maps directly onto MCP's inputSchema and
// outputSchema fields.
type Schema struct {
	// Type is a JSON Schema type name, or a list of names for values
	// that accept more than one JSON type (time expressions accept
	// both strings and numbers).
	Type any `json:"type,omitempty"`

	// Description is populated from the desc struct tag.
	Description string `json:"description,omitempty"`

	// Properties maps property names to their schemas. Only set when
	// Type is "object".
	Properties map[string]*Schema `json:"properties,omitempty"`

	// Required lists property names that must be provided.
	Required []string `json:"required,omitempty"`

	// Enum lists the accepted values, from the enum struct tag.
	Enum []string `json:"enum,omitempty"`

	// Default is parsed from the default struct tag into the field's
	// JSON type so that it marshals as a number, boolean, or string.
	Default any `json:"default,omitempty"`

	// Items describes the element type for array schemas.
	Items *Schema `json:"items,omitempty"`

	// AdditionalProperties describes the value type for map-typed
	// object schemas.
	AdditionalProperties *Schema `json:"additionalProperties,omitempty"`

	// Format is an optional format hint such as "date-time".
	Format string `json:"format,omitempty"`
}

// SchemaOf generates a JSON Schema describing values of v's type.
// Structs produce object schemas whose property names come from json
// tags, descriptions from desc tags, accepted values from enum tags,
// and defaults from default tags. A field is required when tagged
// required:"true" without a default.
func SchemaOf(v any) (*Schema, error) {
	typ := reflect.TypeOf(v)
	if typ == nil {
		return &Schema{}, nil
	}
	return schemaForType(typ)
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	durationType  = reflect.TypeOf(time.Duration(0))
	exprType      = reflect.TypeOf(timeexpr.Expr{})
	byteSliceType = reflect.TypeOf([]byte{})
)

func buildObjectSchema(structType reflect.Type) (*Schema, error) {
	schema := &Schema{
		Type:       "object",
		Properties: make(map[string]*Schema),
	}

	for i := range structType.NumField() {
		field := structType.Field(i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			embedded, err := buildObjectSchema(field.Type)
			if err != nil {
				return nil, fmt.Errorf("embedded %s: %w", field.Name, err)
			}
			for name, property := range embedded.Properties {
				schema.Properties[name] = property
			}
			schema.Required = append(schema.Required, embedded.Required...)
			continue
		}
		if !field.IsExported() {
			continue
		}

		propertyName := jsonPropertyName(field)
		if propertyName == "" || propertyName == "-" {
			continue
		}

		property, err := fieldSchema(field)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		schema.Properties[propertyName] = property

		if field.Tag.Get("required") == "true" && field.Tag.Get("default") == "" {
			schema.Required = append(schema.Required, propertyName)
		}
	}

	if len(schema.Properties) == 0 {
		schema.Properties = nil
	}
	return schema, nil
}

// jsonPropertyName returns "" for fields without a json tag and "-"
// for excluded fields.
func jsonPropertyName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

// fieldSchema builds the schema of one struct field. Scalars honor the
// enum and default tags; compound types delegate to schemaForType and
// keep only the description.
func fieldSchema(field reflect.StructField) (*Schema, error) {
	fieldType := field.Type
	if fieldType.Kind() == reflect.Pointer {
		fieldType = fieldType.Elem()
	}

	schema, err := schemaForType(fieldType)
	if err != nil {
		return nil, err
	}
	schema.Description = field.Tag.Get("desc")

	switch fieldType.Kind() {
	case reflect.String, reflect.Bool, reflect.Int, reflect.Int64, reflect.Float64:
	default:
		return schema, nil
	}

	if enum := field.Tag.Get("enum"); enum != "" {
		schema.Enum = strings.Split(enum, ",")
	}
	if defaultString := field.Tag.Get("default"); defaultString != "" {
		value, err := parseDefault(fieldType, defaultString)
		if err != nil {
			return nil, fmt.Errorf("default %q: %w", defaultString, err)
		}
		schema.Default = value
	}
	return schema, nil
}

func parseDefault(fieldType reflect.Type, value string) (any, error) {
	if fieldType == durationType {
		if _, err := time.ParseDuration(value); err != nil {
			return nil, err
		}
		return value, nil
	}

	switch fieldType.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Bool:
		return strconv.ParseBool(value)
	case reflect.Int:
		return strconv.Atoi(value)
	case reflect.Int64:
		return strconv.ParseInt(value, 10, 64)
	case reflect.Float64:
		return strconv.ParseFloat(value, 64)
	default:
		return nil, fmt.Errorf("unsupported type %s", fieldType)
	}
}

func schemaForType(typ reflect.Type) (*Schema, error) {
	switch typ {
	case exprType:
		return &Schema{Type: []string{"string", "integer"}}, nil
	case timeType:
		return &Schema{Type: "string", Format: "date-time"}, nil
	case durationType:
		return &Schema{Type: "string", Format: "duration"}, nil
	case byteSliceType:
		return &Schema{Type: "string", Format: "byte"}, nil
	}

	switch typ.Kind() {
	case reflect.Struct:
		return buildObjectSchema(typ)
	case reflect.Slice, reflect.Array:
		items, err := schemaForType(typ.Elem())
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		return &Schema{Type: "array", Items: items}, nil
	case reflect.Pointer:
		return schemaForType(typ.Elem())
	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Map:
		if typ.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", typ.Key())
		}
		if typ.Elem().Kind() == reflect.Interface {
			return &Schema{Type: "object"}, nil
		}
		valueSchema, err := schemaForType(typ.Elem())
		if err != nil {
			return nil, fmt.Errorf("map value: %w", err)
		}
		return &Schema{Type: "object", AdditionalProperties: valueSchema}, nil
	case reflect.Interface:
		return &Schema{}, nil
	default:
		return nil, fmt.Errorf("unsupported type %s (%s)", typ, typ.Kind())
	}
}

// SchemaJSON marshals the schema of v as indented JSON.
func SchemaJSON(v any) ([]byte, error) {
	schema, err := SchemaOf(v)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(schema, "", "  ")
}

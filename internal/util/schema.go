package util

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// ValidationError describes the first argument that does not satisfy a tool's
// parameter schema.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// CreateSchema derives a JSON schema object from a Go struct (or pointer to
// one). Recognized field tags:
//
//	json:"name,omitempty"   property name; omitempty or a pointer type makes it optional
//	description:"..."       property description
//	enum:"a,b,c"            allowed string values
//
// Nested structs become nested objects and slices carry an items schema.
// Anything that is not a struct yields an empty object schema.
func CreateSchema(v any) map[string]any {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return objectSchema(t)
}

func objectSchema(t reflect.Type) map[string]any {
	props := map[string]any{}
	var required []string

	for i := range t.NumField() {
		f := t.Field(i)
		name, optional, ok := fieldName(f)
		if !ok {
			continue
		}

		prop := typeSchema(f.Type)
		if d := f.Tag.Get("description"); d != "" {
			prop["description"] = d
		}
		if e := f.Tag.Get("enum"); e != "" {
			prop["enum"] = strings.Split(e, ",")
		}
		props[name] = prop

		if !optional {
			required = append(required, name)
		}
	}

	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// fieldName resolves the JSON property name of f. ok is false for fields that
// are not serialized.
func fieldName(f reflect.StructField) (name string, optional, ok bool) {
	if !f.IsExported() {
		return "", false, false
	}

	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, false
	}

	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}

	optional = f.Type.Kind() == reflect.Ptr
	for _, o := range strings.Split(opts, ",") {
		if strings.TrimSpace(o) == "omitempty" {
			optional = true
		}
	}

	return name, optional, true
}

func typeSchema(t reflect.Type) map[string]any {
	switch t.Kind() {
	case reflect.Ptr:
		return typeSchema(t.Elem())
	case reflect.Struct:
		return objectSchema(t)
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": typeSchema(t.Elem())}
	case reflect.Map:
		return map[string]any{"type": "object"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	default:
		return map[string]any{"type": "string"}
	}
}

// ValidateParameters checks params against a JSON object schema: required
// properties must be present and declared properties must match their type
// and enum. Undeclared properties are accepted. Errors are reported in a
// stable order (required first, then properties by name).
func ValidateParameters(params map[string]any, schema map[string]any) error {
	for _, name := range stringList(schema["required"]) {
		if _, ok := params[name]; !ok {
			return &ValidationError{Field: name, Message: "required field is missing"}
		}
	}

	props, _ := schema["properties"].(map[string]any)

	for _, name := range slices.Sorted(maps.Keys(params)) {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		if err := checkValue(name, params[name], prop); err != nil {
			return err
		}
	}

	return nil
}

func checkValue(field string, value any, prop map[string]any) error {
	if value == nil {
		return nil
	}

	want, _ := prop["type"].(string)
	if !matchesType(value, want) {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("expected type %s, got %T", want, value),
		}
	}

	if enum := stringList(prop["enum"]); len(enum) > 0 {
		if s, ok := value.(string); ok && !slices.Contains(enum, s) {
			return &ValidationError{
				Field:   field,
				Value:   value,
				Message: "must be one of " + strings.Join(enum, ", "),
			}
		}
	}

	return nil
}

// stringList accepts []string (schemas built in Go) and []any (schemas
// decoded from JSON, e.g. listed by a remote tool server).
func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func matchesType(value any, want string) bool {
	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		if f, ok := value.(float64); ok {
			return f == float64(int64(f))
		}
		return isInteger(value)
	case "number":
		switch value.(type) {
		case float32, float64:
			return true
		}
		return isInteger(value)
	case "array":
		return reflect.TypeOf(value).Kind() == reflect.Slice
	case "object":
		return reflect.TypeOf(value).Kind() == reflect.Map
	default:
		return true
	}
}

func isInteger(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

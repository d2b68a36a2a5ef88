package main

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

const componentPrefix = "#/components/schemas/"

var timeType = reflect.TypeOf(time.Time{})

func ref(name string) *Schema { return &Schema{Ref: componentPrefix + name} }

// schemaSet turns contract structs into component schemas. A struct nested
// in another one becomes a component of its own and is referenced by name.
type schemaSet struct {
	schemas map[string]*Schema
	types   map[string]reflect.Type
}

func newSchemaSet() *schemaSet {
	return &schemaSet{
		schemas: make(map[string]*Schema),
		types:   make(map[string]reflect.Type),
	}
}

// add registers the struct type t and every struct it reaches, and returns a
// reference to t.
func (s *schemaSet) add(t reflect.Type) (*Schema, error) {
	if t.Kind() != reflect.Struct || t == timeType {
		return nil, fmt.Errorf("component %s: not a struct", t)
	}
	name := t.Name()
	if name == "" {
		return nil, fmt.Errorf("component %s: anonymous struct", t)
	}
	if prev, ok := s.types[name]; ok {
		if prev != t {
			return nil, fmt.Errorf("component %s: defined by both %s and %s", name, prev, t)
		}
		return ref(name), nil
	}

	obj := &Schema{Type: "object", Properties: make(map[string]*Schema)}
	s.types[name] = t
	s.schemas[name] = obj

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		prop, omitempty := jsonName(f)
		if prop == "-" {
			continue
		}
		fs, err := s.field(f.Type)
		if err != nil {
			return nil, fmt.Errorf("component %s field %s: %w", name, f.Name, err)
		}
		if desc := f.Tag.Get("description"); desc != "" && fs.Ref == "" {
			fs.Description = desc
		}
		obj.Properties[prop] = fs
		if !omitempty && f.Type.Kind() != reflect.Ptr {
			obj.Required = append(obj.Required, prop)
		}
	}
	return ref(name), nil
}

func (s *schemaSet) field(t reflect.Type) (*Schema, error) {
	if t == timeType {
		return &Schema{Type: "string", Format: "date-time"}, nil
	}

	switch t.Kind() {
	case reflect.Ptr:
		inner, err := s.field(t.Elem())
		if err != nil {
			return nil, err
		}
		// A reference cannot carry nullable; the property is optional instead.
		if inner.Ref == "" {
			inner.Nullable = true
		}
		return inner, nil
	case reflect.Struct:
		return s.add(t)
	case reflect.Slice:
		items, err := s.field(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil
	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Int, reflect.Int32, reflect.Int64:
		return &Schema{Type: "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	}
	return nil, fmt.Errorf("unsupported kind %s", t.Kind())
}

// jsonName returns the property name of a field and whether it is omitted
// when empty.
func jsonName(f reflect.StructField) (string, bool) {
	name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		name = f.Name
	}
	return name, strings.Contains(opts, "omitempty")
}

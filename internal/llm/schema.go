package llm

import (
	"encoding/json"
	"fmt"
)

// SchemaType enumerates the value shapes a Schema can describe.
type SchemaType string

const (
	TypeObject SchemaType = "object"
	TypeString SchemaType = "string"
	TypeNumber SchemaType = "number"
	TypeArray  SchemaType = "array"
)

// Schema describes the shape of a structured completion in a backend-neutral
// form. Each client translates it to its provider's native representation
// (Gemini response schemas, OpenAI JSON-schema response format) and the
// shared validator checks decoded output against it, so schema enforcement
// does not depend on any single backend's mechanism.
type Schema struct {
	Type        SchemaType
	Description string

	// Object fields.
	Properties map[string]*Schema
	Required   []string

	// Array fields.
	Items    *Schema
	MinItems int
	MaxItems int

	// Number bounds (inclusive).
	Minimum *float64
	Maximum *float64

	// String constraint.
	Enum []string
}

// Float is a convenience for bound literals.
func Float(v float64) *float64 { return &v }

// JSONMap renders the schema as a JSON-Schema-style map, the form OpenAI's
// response_format expects.
func (s *Schema) JSONMap() map[string]any {
	if s == nil {
		return nil
	}
	m := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		m["description"] = s.Description
	}
	switch s.Type {
	case TypeObject:
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.JSONMap()
		}
		m["properties"] = props
		m["additionalProperties"] = false
		if len(s.Required) > 0 {
			m["required"] = s.Required
		}
	case TypeArray:
		m["items"] = s.Items.JSONMap()
		if s.MinItems > 0 {
			m["minItems"] = s.MinItems
		}
		if s.MaxItems > 0 {
			m["maxItems"] = s.MaxItems
		}
	case TypeNumber:
		if s.Minimum != nil {
			m["minimum"] = *s.Minimum
		}
		if s.Maximum != nil {
			m["maximum"] = *s.Maximum
		}
	case TypeString:
		if len(s.Enum) > 0 {
			m["enum"] = s.Enum
		}
	}
	return m
}

// Decode validates raw against the schema and unmarshals it into out. Any
// mismatch is reported as ErrSchema so callers can retry with a re-prompt.
func (s *Schema) Decode(raw []byte, out any) error {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrSchema, err)
	}
	if err := s.check(value, "$"); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

func (s *Schema) check(value any, path string) error {
	if s == nil {
		return nil
	}
	switch s.Type {
	case TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s is not an object", ErrSchema, path)
		}
		for _, name := range s.Required {
			if _, present := obj[name]; !present {
				return fmt.Errorf("%w: %s missing required field %q", ErrSchema, path, name)
			}
		}
		for name, sub := range s.Properties {
			v, present := obj[name]
			if !present {
				continue
			}
			if err := sub.check(v, path+"."+name); err != nil {
				return err
			}
		}
	case TypeArray:
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%w: %s is not an array", ErrSchema, path)
		}
		if s.MinItems > 0 && len(arr) < s.MinItems {
			return fmt.Errorf("%w: %s has %d items, need at least %d", ErrSchema, path, len(arr), s.MinItems)
		}
		if s.MaxItems > 0 && len(arr) > s.MaxItems {
			return fmt.Errorf("%w: %s has %d items, allows at most %d", ErrSchema, path, len(arr), s.MaxItems)
		}
		for i, v := range arr {
			if err := s.Items.check(v, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case TypeNumber:
		n, ok := value.(float64)
		if !ok {
			return fmt.Errorf("%w: %s is not a number", ErrSchema, path)
		}
		if s.Minimum != nil && n < *s.Minimum {
			return fmt.Errorf("%w: %s = %v below minimum %v", ErrSchema, path, n, *s.Minimum)
		}
		if s.Maximum != nil && n > *s.Maximum {
			return fmt.Errorf("%w: %s = %v above maximum %v", ErrSchema, path, n, *s.Maximum)
		}
	case TypeString:
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s is not a string", ErrSchema, path)
		}
		if len(s.Enum) > 0 {
			for _, allowed := range s.Enum {
				if str == allowed {
					return nil
				}
			}
			return fmt.Errorf("%w: %s = %q not in %v", ErrSchema, path, str, s.Enum)
		}
	}
	return nil
}

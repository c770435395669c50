package filetypes

import (
	"fmt"
	"strings"
)

type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Field describes one fixed-width column. Numeric fields are right-aligned
// and zero-padded by convention.
type Field struct {
	Name    string
	Length  int
	Align   Align
	Pad     rune
	Numeric bool
}

// Schema is a declarative fixed-width record layout.
type Schema struct {
	Name    string
	Version string
	Fields  []Field
}

func (s *Schema) RecordLength() int {
	total := 0
	for _, f := range s.Fields {
		total += f.Length
	}
	return total
}

// Encode renders one record line. A value longer than its column is an
// error, never silently truncated.
func (s *Schema) Encode(values map[string]string) (string, error) {
	var sb strings.Builder
	sb.Grow(s.RecordLength())
	for _, f := range s.Fields {
		value := values[f.Name]
		if len(value) > f.Length {
			return "", fmt.Errorf("schema %s: field %s value %q exceeds width %d", s.Name, f.Name, value, f.Length)
		}
		pad := f.Pad
		if pad == 0 {
			pad = ' '
			if f.Numeric {
				pad = '0'
			}
		}
		padding := strings.Repeat(string(pad), f.Length-len(value))
		if f.Align == AlignRight || f.Numeric {
			sb.WriteString(padding)
			sb.WriteString(value)
		} else {
			sb.WriteString(value)
			sb.WriteString(padding)
		}
	}
	return sb.String(), nil
}

// Decode splits one record line back into trimmed field values.
func (s *Schema) Decode(line string) (map[string]string, error) {
	if len(line) != s.RecordLength() {
		return nil, fmt.Errorf("schema %s: record length %d, want %d", s.Name, len(line), s.RecordLength())
	}
	out := make(map[string]string, len(s.Fields))
	offset := 0
	for _, f := range s.Fields {
		rawValue := line[offset : offset+f.Length]
		offset += f.Length
		pad := f.Pad
		if pad == 0 {
			pad = ' '
			if f.Numeric {
				pad = '0'
			}
		}
		if f.Align == AlignRight || f.Numeric {
			rawValue = strings.TrimLeft(rawValue, string(pad))
		} else {
			rawValue = strings.TrimRight(rawValue, string(pad))
		}
		out[f.Name] = rawValue
	}
	return out, nil
}

// Registry maps schema names to layouts.
type Registry struct {
	schemas map[string]*Schema
}

func NewRegistry() *Registry {
	return &Registry{schemas: map[string]*Schema{}}
}

func (r *Registry) Register(s *Schema) error {
	if s == nil || s.Name == "" {
		return fmt.Errorf("schema requires a name")
	}
	if _, exists := r.schemas[s.Name]; exists {
		return fmt.Errorf("schema %q already registered", s.Name)
	}
	for _, f := range s.Fields {
		if f.Name == "" || f.Length <= 0 {
			return fmt.Errorf("schema %q has an invalid field", s.Name)
		}
	}
	r.schemas[s.Name] = s
	return nil
}

func (r *Registry) Lookup(name string) (*Schema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

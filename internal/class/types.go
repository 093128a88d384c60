// Package class provides the data model for graph entity classes:
// typed property definitions, class definitions for nodes and
// relationships, and the entities that instantiate them.
package class

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Kind distinguishes node classes from relationship classes.
type Kind string

const (
	KindNode         Kind = "node"
	KindRelationship Kind = "relationship"
)

// IsValid returns true if the kind is valid.
func (k Kind) IsValid() bool {
	return k == KindNode || k == KindRelationship
}

// PropertyType represents the declared type of a property value.
type PropertyType string

const (
	TypeString  PropertyType = "string"
	TypeNumber  PropertyType = "number"
	TypeBoolean PropertyType = "boolean"
	TypeNull    PropertyType = "null"
)

// IsValid returns true if the property type is one a definition may declare.
func (t PropertyType) IsValid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean:
		return true
	default:
		return false
	}
}

// Value is a typed property value: string, number, boolean, or null.
// The zero Value is null.
type Value struct {
	t PropertyType
	s string
	n float64
	b bool
}

// String creates a string value.
func String(s string) Value { return Value{t: TypeString, s: s} }

// Number creates a number value.
func Number(n float64) Value { return Value{t: TypeNumber, n: n} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{t: TypeBoolean, b: b} }

// Null creates a null value.
func Null() Value { return Value{} }

// ZeroValue returns the zero value for a declared type: "", 0, false.
// An invalid or empty type yields null.
func ZeroValue(t PropertyType) Value {
	switch t {
	case TypeString:
		return String("")
	case TypeNumber:
		return Number(0)
	case TypeBoolean:
		return Bool(false)
	default:
		return Null()
	}
}

// Type returns the type of the value. Null values report TypeNull.
func (v Value) Type() PropertyType {
	if v.t == "" {
		return TypeNull
	}
	return v.t
}

// IsNull returns true if the value is null.
func (v Value) IsNull() bool { return v.Type() == TypeNull }

// AsString returns the string content, or "" if the value is not a string.
func (v Value) AsString() string { return v.s }

// AsNumber returns the numeric content, or 0 if the value is not a number.
func (v Value) AsNumber() float64 { return v.n }

// AsBool returns the boolean content, or false if the value is not a boolean.
func (v Value) AsBool() bool { return v.b }

// Equal reports whether two values have the same type and content.
func (v Value) Equal(o Value) bool {
	if v.Type() != o.Type() {
		return false
	}
	switch v.Type() {
	case TypeString:
		return v.s == o.s
	case TypeNumber:
		return v.n == o.n
	case TypeBoolean:
		return v.b == o.b
	default:
		return true
	}
}

// String renders the value for error messages and logs.
func (v Value) String() string {
	switch v.Type() {
	case TypeString:
		return v.s
	case TypeNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case TypeBoolean:
		return strconv.FormatBool(v.b)
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type() {
	case TypeString:
		return json.Marshal(v.s)
	case TypeNumber:
		return json.Marshal(v.n)
	case TypeBoolean:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Only scalar JSON values are
// accepted; arrays and objects are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return v.fromInterface(raw)
}

// UnmarshalYAML implements yaml.Unmarshaler for seed definition files.
func (v *Value) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return v.fromInterface(raw)
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (interface{}, error) {
	switch v.Type() {
	case TypeString:
		return v.s, nil
	case TypeNumber:
		return v.n, nil
	case TypeBoolean:
		return v.b, nil
	default:
		return nil, nil
	}
}

func (v *Value) fromInterface(raw interface{}) error {
	switch x := raw.(type) {
	case nil:
		*v = Null()
	case string:
		*v = String(x)
	case bool:
		*v = Bool(x)
	case float64:
		*v = Number(x)
	case int:
		*v = Number(float64(x))
	case int64:
		*v = Number(float64(x))
	default:
		return fmt.Errorf("unsupported property value type %T", raw)
	}
	return nil
}

// PropertyDefinition declares the rules for one named property.
// Immutable once attached to a published class definition; classes
// evolve by whole-definition replacement.
type PropertyDefinition struct {
	Type          PropertyType `json:"type" yaml:"type"`
	Required      bool         `json:"required,omitempty" yaml:"required,omitempty"`
	AllowedValues []Value      `json:"allowedValues,omitempty" yaml:"allowedValues,omitempty"`
	MinLength     *int         `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength     *int         `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Default       *Value       `json:"default,omitempty" yaml:"default,omitempty"`
}

// Definition is a named class template for graph entities.
// Node classes constrain a property bag; relationship classes additionally
// constrain the relation type and the entity kinds allowed at each endpoint.
type Definition struct {
	ID         string                        `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string                        `json:"name" yaml:"name"`
	Kind       Kind                          `json:"kind" yaml:"kind"`
	Properties map[string]PropertyDefinition `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required   []string                      `json:"required,omitempty" yaml:"required,omitempty"`
	Active     bool                          `json:"active" yaml:"active"`

	// Relationship classes only.
	RelationType string   `json:"relationType,omitempty" yaml:"relationType,omitempty"`
	SourceKinds  []string `json:"sourceKinds,omitempty" yaml:"sourceKinds,omitempty"`
	TargetKinds  []string `json:"targetKinds,omitempty" yaml:"targetKinds,omitempty"`

	CreatedAt time.Time `json:"-" yaml:"-"`
	UpdatedAt time.Time `json:"-" yaml:"-"`
}

// DefaultEndpointKinds is the endpoint kind set assumed when a relationship
// class does not restrict its endpoints.
var DefaultEndpointKinds = []string{"Entity"}

// Normalize fills structural defaults: relationship classes with no declared
// endpoint kinds accept the default kind set.
func (d *Definition) Normalize() {
	if d.Kind != KindRelationship {
		return
	}
	if len(d.SourceKinds) == 0 {
		d.SourceKinds = append([]string(nil), DefaultEndpointKinds...)
	}
	if len(d.TargetKinds) == 0 {
		d.TargetKinds = append([]string(nil), DefaultEndpointKinds...)
	}
}

// Validate checks structural invariants of the definition itself
// (not of any property bag).
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("class name is required")
	}
	if !d.Kind.IsValid() {
		return fmt.Errorf("invalid class kind: %q", d.Kind)
	}
	if d.Kind == KindRelationship && d.RelationType == "" {
		return fmt.Errorf("relationship class %s requires a relation type", d.Name)
	}
	for name, def := range d.Properties {
		if !def.Type.IsValid() {
			return fmt.Errorf("property %s has invalid type %q", name, def.Type)
		}
		if def.MinLength != nil && *def.MinLength < 0 {
			return fmt.Errorf("property %s has negative minLength", name)
		}
		if def.MinLength != nil && def.MaxLength != nil && *def.MinLength > *def.MaxLength {
			return fmt.Errorf("property %s has minLength greater than maxLength", name)
		}
	}
	return nil
}

// IsRequired reports whether a property name is required by this class,
// either through the top-level required list or its own definition.
// Names in the required list with no property definition are
// required-but-untyped, which is allowed.
func (d *Definition) IsRequired(name string) bool {
	if def, ok := d.Properties[name]; ok && def.Required {
		return true
	}
	for _, r := range d.Required {
		if r == name {
			return true
		}
	}
	return false
}

// RequiredNames returns the sorted union of the top-level required list and
// the property definitions flagged required.
func (d *Definition) RequiredNames() []string {
	set := make(map[string]struct{})
	for _, r := range d.Required {
		set[r] = struct{}{}
	}
	for name, def := range d.Properties {
		if def.Required {
			set[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SuggestedDefault returns the default value a missing property should be
// filled with: the declared default if present, else the zero value of the
// declared type, else null for required-but-untyped names.
func (d *Definition) SuggestedDefault(name string) Value {
	def, ok := d.Properties[name]
	if !ok {
		return Null()
	}
	if def.Default != nil {
		return *def.Default
	}
	return ZeroValue(def.Type)
}

// Clone returns a deep copy of the definition.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	out := *d
	if d.Properties != nil {
		out.Properties = make(map[string]PropertyDefinition, len(d.Properties))
		for name, def := range d.Properties {
			cp := def
			cp.AllowedValues = append([]Value(nil), def.AllowedValues...)
			if def.MinLength != nil {
				v := *def.MinLength
				cp.MinLength = &v
			}
			if def.MaxLength != nil {
				v := *def.MaxLength
				cp.MaxLength = &v
			}
			if def.Default != nil {
				v := *def.Default
				cp.Default = &v
			}
			out.Properties[name] = cp
		}
	}
	out.Required = append([]string(nil), d.Required...)
	out.SourceKinds = append([]string(nil), d.SourceKinds...)
	out.TargetKinds = append([]string(nil), d.TargetKinds...)
	return &out
}

// PropertyArchive preserves the properties lost in one class switch,
// tagged with the class they came from and when the switch happened.
type PropertyArchive struct {
	SourceClass string           `json:"sourceClass"`
	ArchivedAt  time.Time        `json:"archivedAt"`
	Properties  map[string]Value `json:"properties"`
}

// Entity is a graph entity instance: a node or a relationship whose
// property bag satisfies its current class at all times outside an
// in-flight switch.
type Entity struct {
	ID         string           `json:"id"`
	ClassID    string           `json:"classId"`
	Kind       Kind             `json:"kind"`
	Properties map[string]Value `json:"properties"`
	Labels     []string         `json:"labels,omitempty"`

	// Relationship entities only. SourceKinds and TargetKinds carry the
	// kind labels of the endpoint entities at creation time.
	SourceID    string   `json:"sourceId,omitempty"`
	TargetID    string   `json:"targetId,omitempty"`
	SourceKinds []string `json:"sourceKinds,omitempty"`
	TargetKinds []string `json:"targetKinds,omitempty"`

	Archives  []PropertyArchive `json:"archives,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	out := *e
	out.Properties = CloneProperties(e.Properties)
	out.Labels = append([]string(nil), e.Labels...)
	out.SourceKinds = append([]string(nil), e.SourceKinds...)
	out.TargetKinds = append([]string(nil), e.TargetKinds...)
	if e.Archives != nil {
		out.Archives = make([]PropertyArchive, len(e.Archives))
		for i, a := range e.Archives {
			out.Archives[i] = PropertyArchive{
				SourceClass: a.SourceClass,
				ArchivedAt:  a.ArchivedAt,
				Properties:  CloneProperties(a.Properties),
			}
		}
	}
	return &out
}

// CloneProperties returns a copy of a property bag.
func CloneProperties(props map[string]Value) map[string]Value {
	if props == nil {
		return nil
	}
	out := make(map[string]Value, len(props))
	for name, v := range props {
		out[name] = v
	}
	return out
}

// SortedNames returns the property names of a bag in sorted order, for
// deterministic iteration.
func SortedNames(props map[string]Value) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package class

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationResult is the outcome of validating a property bag against a
// class definition. All violations are collected; validation never stops
// at the first error.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate checks a property bag against a class definition.
//
// Property names absent from the definition are not errors: classes are
// permissive of extra data. The result is deterministic for a given
// definition and bag.
func Validate(def *Definition, props map[string]Value) ValidationResult {
	var errs []string

	names := make([]string, 0, len(def.Properties))
	for name := range def.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		errs = append(errs, validateProperty(def.Properties[name], name, props)...)
	}

	// The top-level required list is checked independently of per-property
	// rules; it may name properties with no definition at all.
	for _, name := range sortedRequired(def.Required) {
		if v, ok := props[name]; !ok || v.IsNull() {
			errs = append(errs, fmt.Sprintf("Required property %s is missing", name))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidateProperty checks a single named property of a bag against its
// definition in the class, returning the violations for that name only.
func ValidateProperty(def *Definition, name string, props map[string]Value) []string {
	pd, ok := def.Properties[name]
	if !ok {
		return nil
	}
	return validateProperty(pd, name, props)
}

func validateProperty(pd PropertyDefinition, name string, props map[string]Value) []string {
	var errs []string

	v, present := props[name]
	if !present || v.IsNull() {
		if pd.Required {
			errs = append(errs, fmt.Sprintf("%s is required", name))
		}
		return errs
	}

	if v.Type() != pd.Type {
		errs = append(errs, fmt.Sprintf("%s must be of type %s", name, pd.Type))
		return errs
	}

	if len(pd.AllowedValues) > 0 && !valueAllowed(v, pd.AllowedValues) {
		errs = append(errs, fmt.Sprintf("%s must be one of [%s]", name, renderValues(pd.AllowedValues)))
	}

	if v.Type() == TypeString {
		length := len(v.AsString())
		if pd.MinLength != nil && length < *pd.MinLength {
			errs = append(errs, fmt.Sprintf("%s must be at least %d characters", name, *pd.MinLength))
		}
		if pd.MaxLength != nil && length > *pd.MaxLength {
			errs = append(errs, fmt.Sprintf("%s must be at most %d characters", name, *pd.MaxLength))
		}
	}

	return errs
}

func valueAllowed(v Value, allowed []Value) bool {
	for _, a := range allowed {
		if v.Equal(a) {
			return true
		}
	}
	return false
}

func renderValues(values []Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func sortedRequired(required []string) []string {
	out := append([]string(nil), required...)
	sort.Strings(out)
	return out
}

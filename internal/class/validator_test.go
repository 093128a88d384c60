package class

import (
	"math/rand"
	"reflect"
	"testing"
)

func intPtr(i int) *int { return &i }

func serverClass() *Definition {
	return &Definition{
		ID:   "srv-1",
		Name: "Server",
		Kind: KindNode,
		Properties: map[string]PropertyDefinition{
			"os": {
				Type:     TypeString,
				Required: true,
			},
			"cpu": {
				Type: TypeNumber,
			},
			"env": {
				Type:          TypeString,
				AllowedValues: []Value{String("dev"), String("staging"), String("prod")},
			},
			"hostname": {
				Type:      TypeString,
				MinLength: intPtr(3),
				MaxLength: intPtr(8),
			},
		},
		Active: true,
	}
}

func TestValidate_ValidBag(t *testing.T) {
	def := serverClass()
	result := Validate(def, map[string]Value{
		"os":       String("Linux"),
		"cpu":      Number(4),
		"env":      String("prod"),
		"hostname": String("web-01"),
	})

	if !result.Valid {
		t.Fatalf("expected valid bag, got errors: %v", result.Errors)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %v", result.Errors)
	}
}

func TestValidate_ExtraPropertiesAllowed(t *testing.T) {
	def := serverClass()
	result := Validate(def, map[string]Value{
		"os":        String("Linux"),
		"undefined": Number(42),
	})

	if !result.Valid {
		t.Fatalf("extra properties must not fail validation, got %v", result.Errors)
	}
}

func TestValidate_Violations(t *testing.T) {
	def := serverClass()

	tests := []struct {
		name  string
		props map[string]Value
		want  []string
	}{
		{
			name:  "missing required",
			props: map[string]Value{"cpu": Number(2)},
			want:  []string{"os is required"},
		},
		{
			name:  "null counts as absent",
			props: map[string]Value{"os": Null()},
			want:  []string{"os is required"},
		},
		{
			name:  "type mismatch",
			props: map[string]Value{"os": String("Linux"), "cpu": String("four")},
			want:  []string{"cpu must be of type number"},
		},
		{
			name:  "allowed values",
			props: map[string]Value{"os": String("Linux"), "env": String("qa")},
			want:  []string{"env must be one of [dev, staging, prod]"},
		},
		{
			name:  "too short",
			props: map[string]Value{"os": String("Linux"), "hostname": String("ab")},
			want:  []string{"hostname must be at least 3 characters"},
		},
		{
			name:  "too long",
			props: map[string]Value{"os": String("Linux"), "hostname": String("web-01-long")},
			want:  []string{"hostname must be at most 8 characters"},
		},
		{
			name:  "type mismatch short-circuits value rules",
			props: map[string]Value{"os": String("Linux"), "env": Number(3)},
			want:  []string{"env must be of type string"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(def, tt.props)
			if result.Valid {
				t.Fatal("expected validation to fail")
			}
			if !reflect.DeepEqual(result.Errors, tt.want) {
				t.Errorf("errors mismatch:\n got %v\nwant %v", result.Errors, tt.want)
			}
		})
	}
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	def := serverClass()
	result := Validate(def, map[string]Value{
		"cpu":      String("four"),
		"env":      String("qa"),
		"hostname": String("x"),
	})

	want := []string{
		"cpu must be of type number",
		"env must be one of [dev, staging, prod]",
		"hostname must be at least 3 characters",
		"os is required",
	}
	if !reflect.DeepEqual(result.Errors, want) {
		t.Errorf("errors mismatch:\n got %v\nwant %v", result.Errors, want)
	}
}

func TestValidate_TopLevelRequiredList(t *testing.T) {
	def := &Definition{
		Name:     "Tagged",
		Kind:     KindNode,
		Required: []string{"tag"},
	}

	result := Validate(def, map[string]Value{})
	want := []string{"Required property tag is missing"}
	if !reflect.DeepEqual(result.Errors, want) {
		t.Errorf("errors mismatch:\n got %v\nwant %v", result.Errors, want)
	}

	result = Validate(def, map[string]Value{"tag": String("a")})
	if !result.Valid {
		t.Errorf("expected valid, got %v", result.Errors)
	}
}

func TestValidate_Deterministic(t *testing.T) {
	def := serverClass()
	props := map[string]Value{
		"cpu": String("four"),
		"env": String("qa"),
	}

	first := Validate(def, props)
	for i := 0; i < 20; i++ {
		if got := Validate(def, props); !reflect.DeepEqual(got, first) {
			t.Fatalf("validation not deterministic: %v vs %v", got, first)
		}
	}
}

// TestValidate_AgainstReference cross-checks Validate with an independent
// rule-by-rule reimplementation over randomly generated definitions and
// bags. Fixed seed keeps failures reproducible.
func TestValidate_AgainstReference(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		def := randomDefinition(rng)
		props := randomBag(rng)

		got := Validate(def, props).Valid
		want := referenceValid(def, props)
		if got != want {
			t.Fatalf("iteration %d: Validate=%v reference=%v\ndef=%+v\nprops=%v",
				i, got, want, def, props)
		}
	}
}

var propertyNamePool = []string{"os", "cpu", "env", "tag", "ram", "zone"}

func randomDefinition(rng *rand.Rand) *Definition {
	def := &Definition{
		Name:       "Random",
		Kind:       KindNode,
		Properties: make(map[string]PropertyDefinition),
	}
	for _, name := range propertyNamePool {
		if rng.Intn(2) == 0 {
			continue
		}
		pd := PropertyDefinition{Required: rng.Intn(3) == 0}
		switch rng.Intn(3) {
		case 0:
			pd.Type = TypeString
			if rng.Intn(2) == 0 {
				pd.AllowedValues = []Value{String("a"), String("bb")}
			}
			if rng.Intn(3) == 0 {
				pd.MinLength = intPtr(rng.Intn(3))
			}
			if rng.Intn(3) == 0 {
				pd.MaxLength = intPtr(1 + rng.Intn(3))
			}
		case 1:
			pd.Type = TypeNumber
			if rng.Intn(3) == 0 {
				pd.AllowedValues = []Value{Number(1), Number(2)}
			}
		case 2:
			pd.Type = TypeBoolean
		}
		def.Properties[name] = pd
	}
	if rng.Intn(4) == 0 {
		def.Required = []string{propertyNamePool[rng.Intn(len(propertyNamePool))]}
	}
	return def
}

func randomBag(rng *rand.Rand) map[string]Value {
	props := make(map[string]Value)
	for _, name := range propertyNamePool {
		switch rng.Intn(6) {
		case 0:
			props[name] = String([]string{"", "a", "bb", "ccc"}[rng.Intn(4)])
		case 1:
			props[name] = Number(float64(rng.Intn(3)))
		case 2:
			props[name] = Bool(rng.Intn(2) == 0)
		case 3:
			props[name] = Null()
		default:
			// absent
		}
	}
	return props
}

// referenceValid applies the validation rules one by one without sharing
// code with Validate.
func referenceValid(def *Definition, props map[string]Value) bool {
	for name, pd := range def.Properties {
		v, ok := props[name]
		if !ok || v.IsNull() {
			if pd.Required {
				return false
			}
			continue
		}
		if v.Type() != pd.Type {
			return false
		}
		if len(pd.AllowedValues) > 0 {
			found := false
			for _, a := range pd.AllowedValues {
				if v.Equal(a) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		if v.Type() == TypeString {
			n := len(v.AsString())
			if pd.MinLength != nil && n < *pd.MinLength {
				return false
			}
			if pd.MaxLength != nil && n > *pd.MaxLength {
				return false
			}
		}
	}
	for _, name := range def.Required {
		if v, ok := props[name]; !ok || v.IsNull() {
			return false
		}
	}
	return true
}

func TestValidateProperty_SingleName(t *testing.T) {
	def := serverClass()
	props := map[string]Value{"env": String("qa"), "cpu": String("four")}

	errs := ValidateProperty(def, "env", props)
	if len(errs) != 1 || errs[0] != "env must be one of [dev, staging, prod]" {
		t.Errorf("unexpected errors: %v", errs)
	}

	// Names the class does not define have no rules to break.
	if errs := ValidateProperty(def, "unknown", props); errs != nil {
		t.Errorf("expected nil for undefined property, got %v", errs)
	}
}

package class

import "testing"

func TestParseDefinitionJSON_Valid(t *testing.T) {
	data := []byte(`{
		"name": "Server",
		"kind": "node",
		"properties": {
			"os": {"type": "string", "required": true},
			"env": {"type": "string", "allowedValues": ["dev", "prod"]},
			"ram": {"type": "number", "default": 16}
		},
		"required": ["os"]
	}`)

	def, err := ParseDefinitionJSON(data)
	if err != nil {
		t.Fatalf("ParseDefinitionJSON failed: %v", err)
	}
	if def.Name != "Server" || def.Kind != KindNode {
		t.Errorf("unexpected definition: %+v", def)
	}
	if !def.Properties["os"].Required {
		t.Error("os must be required")
	}
	if got := def.Properties["ram"].Default; got == nil || !got.Equal(Number(16)) {
		t.Errorf("ram default: got %v", got)
	}
	if len(def.Properties["env"].AllowedValues) != 2 {
		t.Errorf("env allowed values: got %v", def.Properties["env"].AllowedValues)
	}
}

func TestParseDefinitionJSON_NormalizesRelationship(t *testing.T) {
	data := []byte(`{
		"name": "depends_on",
		"kind": "relationship",
		"relationType": "depends_on"
	}`)

	def, err := ParseDefinitionJSON(data)
	if err != nil {
		t.Fatalf("ParseDefinitionJSON failed: %v", err)
	}
	if len(def.SourceKinds) == 0 || len(def.TargetKinds) == 0 {
		t.Errorf("endpoint kinds not defaulted: %+v", def)
	}
}

func TestParseDefinitionJSON_Rejected(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"missing name", `{"kind": "node"}`},
		{"missing kind", `{"name": "X"}`},
		{"bad kind", `{"name": "X", "kind": "edge"}`},
		{"bad property type", `{"name": "X", "kind": "node", "properties": {"p": {"type": "array"}}}`},
		{"property without type", `{"name": "X", "kind": "node", "properties": {"p": {"required": true}}}`},
		{"unknown top-level field", `{"name": "X", "kind": "node", "color": "red"}`},
		{"negative minLength", `{"name": "X", "kind": "node", "properties": {"p": {"type": "string", "minLength": -1}}}`},
		{"composite allowed value", `{"name": "X", "kind": "node", "properties": {"p": {"type": "string", "allowedValues": [["a"]]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDefinitionJSON([]byte(tt.data)); err == nil {
				t.Error("expected parse to fail")
			}
		})
	}
}

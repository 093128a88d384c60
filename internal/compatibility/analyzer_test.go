package compatibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphops/class-registry/internal/class"
)

func intPtr(i int) *int { return &i }

func serverClass() *class.Definition {
	return &class.Definition{
		ID:   "srv-1",
		Name: "Server",
		Kind: class.KindNode,
		Properties: map[string]class.PropertyDefinition{
			"os":  {Type: class.TypeString, Required: true},
			"cpu": {Type: class.TypeNumber},
		},
		Active: true,
	}
}

func vmClass() *class.Definition {
	ram := class.Number(0)
	return &class.Definition{
		ID:   "vm-1",
		Name: "VirtualMachine",
		Kind: class.KindNode,
		Properties: map[string]class.PropertyDefinition{
			"os":  {Type: class.TypeString, Required: true},
			"ram": {Type: class.TypeNumber, Required: true, Default: &ram},
		},
		Active: true,
	}
}

func TestAnalyze_SelfSwitchIsPerfect(t *testing.T) {
	a := NewAnalyzer()
	def := serverClass()
	props := map[string]class.Value{
		"os":  class.String("Linux"),
		"cpu": class.Number(4),
	}

	report := a.Analyze(props, def, def)

	assert.True(t, report.Compatible)
	assert.Equal(t, 1.0, report.Score)
	assert.Len(t, report.Preserved, 2)
	assert.Empty(t, report.Lost)
	assert.Empty(t, report.MissingRequired)
	assert.False(t, report.RequiresUserInput())
}

func TestAnalyze_PartialOverlap(t *testing.T) {
	a := NewAnalyzer()
	props := map[string]class.Value{
		"os":  class.String("Linux"),
		"cpu": class.Number(4),
	}

	report := a.Analyze(props, serverClass(), vmClass())

	// os carries over, cpu has no home, ram is required and absent.
	assert.Equal(t, map[string]class.Value{"os": class.String("Linux")}, report.Preserved)
	assert.Equal(t, map[string]class.Value{"cpu": class.Number(4)}, report.Lost)
	require.Len(t, report.MissingRequired, 1)
	assert.Equal(t, "ram", report.MissingRequired[0].Name)
	assert.True(t, report.MissingRequired[0].SuggestedDefault.Equal(class.Number(0)))

	assert.False(t, report.Compatible)
	assert.InDelta(t, 1.0/3.0, report.Score, 1e-9)

	// Node analyses leave the relationship fields at their defaults.
	assert.True(t, report.EndpointCompatible)
	assert.True(t, report.SemanticallyRelated)
	assert.Equal(t, 1.0, report.SemanticConfidence)
}

func TestAnalyze_EmptyBagScoresPerfect(t *testing.T) {
	a := NewAnalyzer()
	current := &class.Definition{ID: "a", Name: "A", Kind: class.KindNode}
	target := &class.Definition{ID: "b", Name: "B", Kind: class.KindNode}

	report := a.Analyze(nil, current, target)

	assert.True(t, report.Compatible)
	assert.Equal(t, 1.0, report.Score)
	assert.Empty(t, report.Steps)
}

func TestAnalyze_UndefinedPropertyDropped(t *testing.T) {
	a := NewAnalyzer()
	props := map[string]class.Value{"gpu": class.Bool(true)}

	report := a.Analyze(props, serverClass(), vmClass())

	require.Contains(t, report.Lost, "gpu")
	var drop *DropProperty
	for _, step := range report.Steps {
		if d, ok := step.(DropProperty); ok && d.Name == "gpu" {
			drop = &d
			break
		}
	}
	require.NotNil(t, drop)
	assert.Equal(t, "property is not defined in class VirtualMachine", drop.Reason)
}

func TestAnalyze_AllowedValuesViolationBecomesRemap(t *testing.T) {
	a := NewAnalyzer()
	current := &class.Definition{
		ID: "a", Name: "A", Kind: class.KindNode,
		Properties: map[string]class.PropertyDefinition{
			"env": {Type: class.TypeString},
		},
	}
	target := &class.Definition{
		ID: "b", Name: "B", Kind: class.KindNode,
		Properties: map[string]class.PropertyDefinition{
			"env": {
				Type:          class.TypeString,
				AllowedValues: []class.Value{class.String("dev"), class.String("prod")},
			},
		},
	}

	report := a.Analyze(map[string]class.Value{"env": class.String("qa")}, current, target)

	require.Contains(t, report.Lost, "env")
	require.Len(t, report.Steps, 1)
	remap, ok := report.Steps[0].(RemapValue)
	require.True(t, ok, "expected a RemapValue step, got %T", report.Steps[0])
	assert.Equal(t, "env", remap.Name)
	assert.True(t, remap.Current.Equal(class.String("qa")))
	assert.True(t, remap.Suggested.Equal(class.String("dev")))
	assert.True(t, report.RequiresUserInput())

	// Losing an optional property never blocks the switch on its own.
	assert.True(t, report.Compatible)
}

func TestAnalyze_RequiredViolationTakesAddRequiredPath(t *testing.T) {
	a := NewAnalyzer()
	current := &class.Definition{
		ID: "a", Name: "A", Kind: class.KindNode,
		Properties: map[string]class.PropertyDefinition{
			"env": {Type: class.TypeString},
		},
	}
	target := &class.Definition{
		ID: "b", Name: "B", Kind: class.KindNode,
		Properties: map[string]class.PropertyDefinition{
			"env": {
				Type:          class.TypeString,
				Required:      true,
				AllowedValues: []class.Value{class.String("dev")},
			},
		},
	}

	report := a.Analyze(map[string]class.Value{"env": class.String("qa")}, current, target)

	// One drop plus one fill; never a remap for a required name.
	for _, step := range report.Steps {
		if _, ok := step.(RemapValue); ok {
			t.Fatal("required property must not produce a RemapValue step")
		}
	}
	require.Len(t, report.MissingRequired, 1)
	assert.Equal(t, "env", report.MissingRequired[0].Name)
	assert.False(t, report.Compatible)
}

func TestAnalyze_TypeMismatchIsDroppedNotRemapped(t *testing.T) {
	a := NewAnalyzer()
	current := &class.Definition{
		ID: "a", Name: "A", Kind: class.KindNode,
		Properties: map[string]class.PropertyDefinition{
			"port": {Type: class.TypeString},
		},
	}
	target := &class.Definition{
		ID: "b", Name: "B", Kind: class.KindNode,
		Properties: map[string]class.PropertyDefinition{
			"port": {
				Type:          class.TypeNumber,
				AllowedValues: []class.Value{class.Number(80), class.Number(443)},
			},
		},
	}

	report := a.Analyze(map[string]class.Value{"port": class.String("80")}, current, target)

	require.Len(t, report.Steps, 1)
	drop, ok := report.Steps[0].(DropProperty)
	require.True(t, ok, "expected a DropProperty step, got %T", report.Steps[0])
	assert.Equal(t, "port must be of type number", drop.Reason)
}

func TestAnalyze_LosingCurrentRequiredBlocksSwitch(t *testing.T) {
	a := NewAnalyzer()
	current := &class.Definition{
		ID: "a", Name: "A", Kind: class.KindNode,
		Properties: map[string]class.PropertyDefinition{
			"serial": {Type: class.TypeString, Required: true},
		},
	}
	target := &class.Definition{ID: "b", Name: "B", Kind: class.KindNode}

	report := a.Analyze(map[string]class.Value{"serial": class.String("x1")}, current, target)

	assert.False(t, report.Compatible)
	assert.Contains(t, report.Lost, "serial")
	assert.Empty(t, report.MissingRequired)
}

func TestAnalyze_ExtraCheckDispatchesOnTargetKind(t *testing.T) {
	a := NewAnalyzer()
	called := false
	a.Register(class.KindRelationship, func(req Request, report *Report) {
		called = true
	})

	node := &class.Definition{ID: "n", Name: "N", Kind: class.KindNode}
	a.Analyze(nil, node, node)
	assert.False(t, called, "node analysis must not trigger relationship checks")

	rel := &class.Definition{ID: "r", Name: "R", Kind: class.KindRelationship, RelationType: "uses"}
	a.Analyze(nil, rel, rel)
	assert.True(t, called)
}

func TestAnalyze_ScoreMonotonicOnTargetGrowth(t *testing.T) {
	a := NewAnalyzer()
	props := map[string]class.Value{
		"os":  class.String("Linux"),
		"cpu": class.Number(4),
	}

	before := a.Analyze(props, serverClass(), vmClass())

	// Giving cpu a matching home in the target must never lower the score.
	grown := vmClass()
	grown.Properties["cpu"] = class.PropertyDefinition{Type: class.TypeNumber}
	after := a.Analyze(props, serverClass(), grown)

	assert.GreaterOrEqual(t, after.Score, before.Score)
	assert.Contains(t, after.Preserved, "cpu")
}

func TestAnalyze_DeterministicStepOrder(t *testing.T) {
	a := NewAnalyzer()
	props := map[string]class.Value{
		"os":  class.String("Linux"),
		"cpu": class.Number(4),
		"gpu": class.Bool(false),
	}

	first := a.Analyze(props, serverClass(), vmClass())
	for i := 0; i < 10; i++ {
		report := a.Analyze(props, serverClass(), vmClass())
		require.Equal(t, first.Steps, report.Steps)
	}
}

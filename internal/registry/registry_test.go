package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphops/class-registry/internal/class"
	"github.com/graphops/class-registry/internal/compatibility"
	"github.com/graphops/class-registry/internal/storage"
	"github.com/graphops/class-registry/internal/storage/memory"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	store := memory.NewStore()
	analyzer := compatibility.NewAnalyzer()
	analyzer.Register(class.KindRelationship, compatibility.RelationshipChecks())
	return New(store, store, analyzer)
}

func registerClass(t *testing.T, r *Registry, def *class.Definition) *class.Definition {
	t.Helper()
	created, err := r.RegisterClass(context.Background(), def)
	require.NoError(t, err)
	return created
}

func serverDef() *class.Definition {
	return &class.Definition{
		Name: "Server",
		Kind: class.KindNode,
		Properties: map[string]class.PropertyDefinition{
			"os":  {Type: class.TypeString, Required: true},
			"cpu": {Type: class.TypeNumber},
		},
	}
}

func vmDef() *class.Definition {
	ram := class.Number(8)
	return &class.Definition{
		Name: "VirtualMachine",
		Kind: class.KindNode,
		Properties: map[string]class.PropertyDefinition{
			"os":  {Type: class.TypeString, Required: true},
			"ram": {Type: class.TypeNumber, Required: true, Default: &ram},
			"env": {
				Type:          class.TypeString,
				AllowedValues: []class.Value{class.String("dev"), class.String("prod")},
			},
		},
	}
}

func TestRegisterClass(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	created := registerClass(t, r, serverDef())
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Active)

	got, err := r.GetClass(ctx, "Server")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	// Structural validation happens before storage
	_, err = r.RegisterClass(ctx, &class.Definition{Kind: class.KindNode})
	assert.Error(t, err)

	_, err = r.RegisterClass(ctx, serverDef())
	assert.ErrorIs(t, err, storage.ErrClassExists)
}

func TestRegisterClass_NormalizesRelationships(t *testing.T) {
	r := newTestRegistry(t)

	created := registerClass(t, r, &class.Definition{
		Name:         "depends_on",
		Kind:         class.KindRelationship,
		RelationType: "depends_on",
	})
	assert.Equal(t, class.DefaultEndpointKinds, created.SourceKinds)
	assert.Equal(t, class.DefaultEndpointKinds, created.TargetKinds)
}

func TestApplyClass_CreateThenReplace(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	first, err := r.ApplyClass(ctx, serverDef())
	require.NoError(t, err)

	// Applying the same name and kind replaces, keeping the ID
	updated := serverDef()
	updated.Properties["gpu"] = class.PropertyDefinition{Type: class.TypeBoolean}
	second, err := r.ApplyClass(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Contains(t, second.Properties, "gpu")
}

func TestCreateEntity(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	registerClass(t, r, serverDef())

	entity, err := r.CreateEntity(ctx, &class.Entity{
		ClassID:    "Server",
		Properties: map[string]class.Value{"os": class.String("Linux")},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entity.ID)
	assert.Equal(t, class.KindNode, entity.Kind)

	// Invalid properties are rejected with the full violation list
	_, err = r.CreateEntity(ctx, &class.Entity{
		ClassID:    "Server",
		Properties: map[string]class.Value{"cpu": class.String("four")},
	})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{
		"cpu must be of type number",
		"os is required",
	}, validationErr.Errors)

	// Unknown class
	_, err = r.CreateEntity(ctx, &class.Entity{ClassID: "ghost"})
	assert.ErrorIs(t, err, storage.ErrClassNotFound)
}

func TestCreateEntity_InactiveClassRejected(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	registerClass(t, r, serverDef())
	require.NoError(t, r.DeactivateClass(ctx, "Server"))

	_, err := r.CreateEntity(ctx, &class.Entity{
		ClassID:    "Server",
		Properties: map[string]class.Value{"os": class.String("Linux")},
	})
	assert.ErrorIs(t, err, storage.ErrClassInactive)
}

func TestAnalyzeCompatibility(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	registerClass(t, r, serverDef())
	registerClass(t, r, vmDef())

	entity, err := r.CreateEntity(ctx, &class.Entity{
		ClassID: "Server",
		Properties: map[string]class.Value{
			"os":  class.String("Linux"),
			"cpu": class.Number(4),
		},
	})
	require.NoError(t, err)

	report, plan, err := r.AnalyzeCompatibility(ctx, entity.ID, "VirtualMachine")
	require.NoError(t, err)

	assert.False(t, report.Compatible)
	assert.Contains(t, report.Preserved, "os")
	assert.Contains(t, report.Lost, "cpu")
	require.Len(t, report.MissingRequired, 1)
	assert.Equal(t, "ram", report.MissingRequired[0].Name)
	assert.True(t, report.MissingRequired[0].SuggestedDefault.Equal(class.Number(8)))
	assert.InDelta(t, 1.0/3.0, report.Score, 1e-9)

	change, ok := plan.Steps[0].(compatibility.ChangeClass)
	require.True(t, ok)
	assert.Equal(t, "Server", change.From)
	assert.Equal(t, "VirtualMachine", change.To)

	// Analysis never mutates the entity
	unchanged, err := r.GetEntity(ctx, entity.ID)
	require.NoError(t, err)
	assert.Contains(t, unchanged.Properties, "cpu")
}

func TestSwitchClass_AutoFillAndArchive(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	registerClass(t, r, serverDef())
	registerClass(t, r, vmDef())

	entity, err := r.CreateEntity(ctx, &class.Entity{
		ClassID: "Server",
		Properties: map[string]class.Value{
			"os":  class.String("Linux"),
			"cpu": class.Number(4),
		},
	})
	require.NoError(t, err)

	result, err := r.SwitchClass(ctx, entity.ID, "VirtualMachine", nil, true)
	require.NoError(t, err)

	// Preserved carried, missing required filled from its default
	assert.True(t, result.Entity.Properties["os"].Equal(class.String("Linux")))
	assert.True(t, result.Entity.Properties["ram"].Equal(class.Number(8)))
	assert.NotContains(t, result.Entity.Properties, "cpu")

	// Lost property archived with its source class
	require.Len(t, result.Entity.Archives, 1)
	assert.Equal(t, "Server", result.Entity.Archives[0].SourceClass)
	assert.True(t, result.Entity.Archives[0].Properties["cpu"].Equal(class.Number(4)))
	assert.True(t, result.ArchivedProperties["cpu"].Equal(class.Number(4)))

	// The switch is persisted
	stored, err := r.GetEntity(ctx, entity.ID)
	require.NoError(t, err)
	target, err := r.GetClass(ctx, "VirtualMachine")
	require.NoError(t, err)
	assert.Equal(t, target.ID, stored.ClassID)
}

func TestSwitchClass_MappingsWin(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	registerClass(t, r, serverDef())
	registerClass(t, r, vmDef())

	entity, err := r.CreateEntity(ctx, &class.Entity{
		ClassID:    "Server",
		Properties: map[string]class.Value{"os": class.String("Linux")},
	})
	require.NoError(t, err)

	mappings := map[string]class.Value{
		"ram": class.Number(32),
		"env": class.String("prod"),
	}
	result, err := r.SwitchClass(ctx, entity.ID, "VirtualMachine", mappings, false)
	require.NoError(t, err)

	assert.True(t, result.Entity.Properties["ram"].Equal(class.Number(32)),
		"caller mapping must beat the suggested default")
	assert.True(t, result.Entity.Properties["env"].Equal(class.String("prod")))
	assert.Equal(t, mappings, result.AppliedMappings)
	assert.Empty(t, result.Entity.Archives)
}

func TestSwitchClass_RevalidationAborts(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	registerClass(t, r, serverDef())
	registerClass(t, r, vmDef())

	entity, err := r.CreateEntity(ctx, &class.Entity{
		ClassID:    "Server",
		Properties: map[string]class.Value{"os": class.String("Linux")},
	})
	require.NoError(t, err)

	// A bad mapping fails the full re-validation before anything commits
	_, err = r.SwitchClass(ctx, entity.ID, "VirtualMachine", map[string]class.Value{
		"env": class.String("qa"),
	}, false)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	stored, err := r.GetEntity(ctx, entity.ID)
	require.NoError(t, err)
	current, err := r.GetClass(ctx, "Server")
	require.NoError(t, err)
	assert.Equal(t, current.ID, stored.ClassID, "failed switch must not change the entity")
}

func TestSwitchClass_EndpointVeto(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	registerClass(t, r, &class.Definition{
		Name: "depends_on", Kind: class.KindRelationship, RelationType: "depends_on",
		SourceKinds: []string{"Server"}, TargetKinds: []string{"Database"},
	})
	registerClass(t, r, &class.Definition{
		Name: "requires", Kind: class.KindRelationship, RelationType: "requires",
		SourceKinds: []string{"Database"}, TargetKinds: []string{"Database"},
	})

	entity, err := r.CreateEntity(ctx, &class.Entity{
		ClassID:     "depends_on",
		SourceKinds: []string{"Server"},
		TargetKinds: []string{"Database"},
	})
	require.NoError(t, err)

	_, err = r.SwitchClass(ctx, entity.ID, "requires", nil, false)
	assert.ErrorIs(t, err, ErrIncompatibleClass)
}

func TestSwitchClass_KindMismatch(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	registerClass(t, r, serverDef())
	registerClass(t, r, &class.Definition{
		Name: "uses", Kind: class.KindRelationship, RelationType: "uses",
	})

	entity, err := r.CreateEntity(ctx, &class.Entity{
		ClassID:    "Server",
		Properties: map[string]class.Value{"os": class.String("Linux")},
	})
	require.NoError(t, err)

	_, err = r.SwitchClass(ctx, entity.ID, "uses", nil, false)
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestSwitchClass_InactiveTargetRejected(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	registerClass(t, r, serverDef())
	registerClass(t, r, vmDef())

	entity, err := r.CreateEntity(ctx, &class.Entity{
		ClassID:    "Server",
		Properties: map[string]class.Value{"os": class.String("Linux")},
	})
	require.NoError(t, err)

	require.NoError(t, r.DeactivateClass(ctx, "VirtualMachine"))
	_, err = r.SwitchClass(ctx, entity.ID, "VirtualMachine", nil, false)
	assert.ErrorIs(t, err, storage.ErrClassInactive)
}

func TestSwitchClass_SelfSwitchIsNoOp(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	registerClass(t, r, serverDef())

	entity, err := r.CreateEntity(ctx, &class.Entity{
		ClassID: "Server",
		Properties: map[string]class.Value{
			"os":  class.String("Linux"),
			"cpu": class.Number(4),
		},
	})
	require.NoError(t, err)

	result, err := r.SwitchClass(ctx, entity.ID, "Server", nil, true)
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.Report.Score)
	assert.True(t, result.Entity.Properties["cpu"].Equal(class.Number(4)))
	assert.Empty(t, result.Entity.Archives)
	assert.False(t, errors.Is(err, ErrIncompatibleClass))
}

func TestDeleteClass_BlockedWhileInUse(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	registerClass(t, r, serverDef())

	_, err := r.CreateEntity(ctx, &class.Entity{
		ClassID:    "Server",
		Properties: map[string]class.Value{"os": class.String("Linux")},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, r.DeleteClass(ctx, "Server"), storage.ErrClassInUse)
}

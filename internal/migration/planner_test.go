package migration

import (
	"strings"
	"testing"

	"github.com/graphops/class-registry/internal/class"
	"github.com/graphops/class-registry/internal/compatibility"
)

func TestBuildPlan_ChangeClassComesFirst(t *testing.T) {
	current := &class.Definition{ID: "a", Name: "Server", Kind: class.KindNode}
	target := &class.Definition{ID: "b", Name: "VirtualMachine", Kind: class.KindNode}
	report := &compatibility.Report{
		Compatible:         true,
		EndpointCompatible: true,
		Steps: []compatibility.MigrationStep{
			compatibility.KeepProperty{Name: "os"},
			compatibility.DropProperty{Name: "cpu", Reason: "property is not defined in class VirtualMachine"},
		},
	}

	plan := BuildPlan(report, current, target)

	if len(plan.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(plan.Steps))
	}
	change, ok := plan.Steps[0].(compatibility.ChangeClass)
	if !ok {
		t.Fatalf("first step must be the class change, got %T", plan.Steps[0])
	}
	if change.From != "Server" || change.To != "VirtualMachine" {
		t.Errorf("unexpected class change: %+v", change)
	}
	if _, ok := plan.Steps[1].(compatibility.KeepProperty); !ok {
		t.Errorf("report step order not preserved: %T", plan.Steps[1])
	}
}

func TestBuildPlan_SelfSwitchHasNoClassChange(t *testing.T) {
	def := &class.Definition{ID: "a", Name: "Server", Kind: class.KindNode}
	report := &compatibility.Report{Compatible: true, EndpointCompatible: true}

	plan := BuildPlan(report, def, def)

	if len(plan.Steps) != 0 {
		t.Errorf("expected no steps for a self switch, got %v", plan.Steps)
	}
	if !plan.CanAutoMigrate {
		t.Error("self switch must be auto-migratable")
	}
}

func TestBuildPlan_Flags(t *testing.T) {
	current := &class.Definition{ID: "a", Name: "A", Kind: class.KindNode}
	target := &class.Definition{ID: "b", Name: "B", Kind: class.KindNode}

	report := &compatibility.Report{
		Compatible:         true,
		EndpointCompatible: true,
		Steps: []compatibility.MigrationStep{
			compatibility.RemapValue{
				Name:      "env",
				Current:   class.String("qa"),
				Suggested: class.String("dev"),
			},
		},
	}

	plan := BuildPlan(report, current, target)
	if !plan.RequiresUserInput {
		t.Error("a remap step must require user input")
	}

	report = &compatibility.Report{Compatible: false, EndpointCompatible: true}
	if plan := BuildPlan(report, current, target); plan.CanAutoMigrate {
		t.Error("incompatible report must not auto-migrate")
	}

	report = &compatibility.Report{Compatible: true, EndpointCompatible: false}
	if plan := BuildPlan(report, current, target); plan.CanAutoMigrate {
		t.Error("endpoint-incompatible report must not auto-migrate")
	}
}

func TestBuildPlan_Warnings(t *testing.T) {
	current := &class.Definition{
		ID: "a", Name: "connects_to", Kind: class.KindRelationship, RelationType: "connects_to",
	}
	target := &class.Definition{
		ID: "b", Name: "monitors", Kind: class.KindRelationship, RelationType: "monitors",
	}
	report := &compatibility.Report{
		Compatible:          false,
		EndpointCompatible:  false,
		EndpointIssue:       "source kinds [Server] are not compatible with allowed source kinds [Database]",
		SemanticallyRelated: false,
	}

	plan := BuildPlan(report, current, target)

	if len(plan.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", plan.Warnings)
	}
	if plan.Warnings[0] != report.EndpointIssue {
		t.Errorf("endpoint issue must come first, got %q", plan.Warnings[0])
	}
	if !strings.Contains(plan.Warnings[1], "not semantically related") {
		t.Errorf("unexpected semantic warning: %q", plan.Warnings[1])
	}
}

func TestBuildPlan_NoSemanticWarningForNodes(t *testing.T) {
	current := &class.Definition{ID: "a", Name: "A", Kind: class.KindNode}
	target := &class.Definition{ID: "b", Name: "B", Kind: class.KindNode}
	report := &compatibility.Report{
		Compatible:          true,
		EndpointCompatible:  true,
		SemanticallyRelated: false,
	}

	plan := BuildPlan(report, current, target)
	if len(plan.Warnings) != 0 {
		t.Errorf("node switches have no semantic warnings, got %v", plan.Warnings)
	}
}

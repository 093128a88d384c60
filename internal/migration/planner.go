// Package migration turns compatibility reports into executable
// class-switch migration plans.
package migration

import (
	"fmt"

	"github.com/graphops/class-registry/internal/class"
	"github.com/graphops/class-registry/internal/compatibility"
)

// Plan is an ordered, executable set of migration steps with the flags an
// operator needs to decide whether the switch can run unattended.
type Plan struct {
	Steps             []compatibility.MigrationStep
	Warnings          []string
	RequiresUserInput bool
	CanAutoMigrate    bool
}

// BuildPlan orders the report's migration steps into an executable plan.
//
// Step order is deterministic: the class change itself first, then the
// report's steps in their original order. Warnings follow the same rule:
// the endpoint issue, if any, precedes the semantic-mismatch advisory.
func BuildPlan(report *compatibility.Report, current, target *class.Definition) *Plan {
	plan := &Plan{
		Steps: make([]compatibility.MigrationStep, 0, len(report.Steps)+1),
	}

	if current.ID != target.ID {
		plan.Steps = append(plan.Steps, compatibility.ChangeClass{
			From: current.Name,
			To:   target.Name,
		})
	}
	plan.Steps = append(plan.Steps, report.Steps...)

	if report.EndpointIssue != "" {
		plan.Warnings = append(plan.Warnings, report.EndpointIssue)
	}
	if target.Kind == class.KindRelationship && !report.SemanticallyRelated {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf(
			"relation types %s and %s are not semantically related",
			current.RelationType, target.RelationType))
	}

	plan.RequiresUserInput = report.RequiresUserInput()
	plan.CanAutoMigrate = report.Compatible && report.EndpointCompatible

	return plan
}

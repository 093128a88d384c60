package compatibility

import (
	"fmt"
	"strings"
)

// RelationshipChecks returns the extra checks applied when the target of
// a switch is a relationship class: endpoint-kind compatibility, which can
// veto the switch, and semantic similarity between relation type names,
// which is advisory only.
func RelationshipChecks() ExtraCheck {
	return func(req Request, report *Report) {
		checkEndpoints(req, report)

		related, confidence := Similarity(req.Current.RelationType, req.Target.RelationType)
		report.SemanticallyRelated = related
		report.SemanticConfidence = confidence
	}
}

// checkEndpoints intersects the kinds at each endpoint with the kinds the
// target class allows. The entity's actual endpoint kinds are used when
// known; otherwise the current class's declared sets stand in for them.
// An empty intersection at either endpoint vetoes the switch.
func checkEndpoints(req Request, report *Report) {
	sourceKinds := req.Current.SourceKinds
	targetKinds := req.Current.TargetKinds
	if req.Entity != nil {
		if len(req.Entity.SourceKinds) > 0 {
			sourceKinds = req.Entity.SourceKinds
		}
		if len(req.Entity.TargetKinds) > 0 {
			targetKinds = req.Entity.TargetKinds
		}
	}

	if len(intersect(sourceKinds, req.Target.SourceKinds)) == 0 {
		report.EndpointCompatible = false
		report.Compatible = false
		report.EndpointIssue = fmt.Sprintf(
			"source kinds [%s] are not compatible with allowed source kinds [%s]",
			strings.Join(sourceKinds, ", "), strings.Join(req.Target.SourceKinds, ", "))
		return
	}

	if len(intersect(targetKinds, req.Target.TargetKinds)) == 0 {
		report.EndpointCompatible = false
		report.Compatible = false
		report.EndpointIssue = fmt.Sprintf(
			"target kinds [%s] are not compatible with allowed target kinds [%s]",
			strings.Join(targetKinds, ", "), strings.Join(req.Target.TargetKinds, ", "))
	}
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range b {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

package compatibility

import (
	"fmt"

	"github.com/graphops/class-registry/internal/class"
)

// Request bundles the inputs of one analysis. Entity is optional: class
// diffs can be analyzed without a concrete instance, in which case the
// endpoint checks fall back to the current class's declared kind sets.
type Request struct {
	Entity  *class.Entity
	Current *class.Definition
	Target  *class.Definition
}

// ExtraCheck folds kind-specific checks into a report after the generic
// property analysis has run.
type ExtraCheck func(req Request, report *Report)

// Analyzer computes compatibility reports for class switches. Extra
// checks are registered per entity kind; the generic property analysis
// applies to all kinds.
type Analyzer struct {
	extra map[class.Kind]ExtraCheck
}

// NewAnalyzer creates a new analyzer with no extra checks.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		extra: make(map[class.Kind]ExtraCheck),
	}
}

// Register registers an extra check for an entity kind.
func (a *Analyzer) Register(kind class.Kind, check ExtraCheck) {
	a.extra[kind] = check
}

// Analyze diffs two class definitions against a property bag with no
// concrete entity.
func (a *Analyzer) Analyze(props map[string]class.Value, current, target *class.Definition) *Report {
	return a.analyze(Request{Current: current, Target: target}, props)
}

// AnalyzeEntity diffs an entity's current class against a target class
// using the entity's own property bag and endpoint kinds.
func (a *Analyzer) AnalyzeEntity(entity *class.Entity, current, target *class.Definition) *Report {
	return a.analyze(Request{Entity: entity, Current: current, Target: target}, entity.Properties)
}

func (a *Analyzer) analyze(req Request, props map[string]class.Value) *Report {
	report := &Report{
		Preserved:           make(map[string]class.Value),
		Lost:                make(map[string]class.Value),
		EndpointCompatible:  true,
		SemanticallyRelated: true,
		SemanticConfidence:  1.0,
	}

	for _, name := range class.SortedNames(props) {
		value := props[name]
		a.classifyProperty(req.Target, name, value, props, report)
	}

	// Every target-required name that did not survive needs a fill.
	for _, name := range req.Target.RequiredNames() {
		if _, preserved := report.Preserved[name]; preserved {
			continue
		}
		suggested := req.Target.SuggestedDefault(name)
		report.MissingRequired = append(report.MissingRequired, MissingProperty{
			Name:             name,
			SuggestedDefault: suggested,
		})
		report.Steps = append(report.Steps, AddRequiredProperty{Name: name, Default: suggested})
	}

	report.Score = score(len(report.Preserved), len(report.Lost), len(report.MissingRequired))

	// Compatibility is about the target class being satisfiable, not
	// about zero data loss: losing optional properties only lowers the
	// score. Losing a property the current class required, or leaving a
	// target requirement unmet, blocks the switch.
	report.Compatible = len(report.MissingRequired) == 0 && !anyLostRequired(req.Current, report)

	if check, ok := a.extra[req.Target.Kind]; ok {
		check(req, report)
	}

	return report
}

// classifyProperty decides whether one property survives under the target
// class and emits the matching migration step.
func (a *Analyzer) classifyProperty(target *class.Definition, name string, value class.Value, props map[string]class.Value, report *Report) {
	pd, defined := target.Properties[name]
	if !defined {
		report.Lost[name] = value
		report.Steps = append(report.Steps, DropProperty{
			Name:   name,
			Reason: fmt.Sprintf("property is not defined in class %s", target.Name),
		})
		return
	}

	violations := class.ValidateProperty(target, name, props)
	if len(violations) == 0 {
		report.Preserved[name] = value
		report.Steps = append(report.Steps, KeepProperty{Name: name})
		return
	}

	report.Lost[name] = value

	// A value that only breaks the allowed-values rule is a remap
	// candidate: the property fits the target class, but only the caller
	// can choose which allowed value it should become. Required names
	// take the add-required path instead so one property never yields
	// two steps.
	if !target.IsRequired(name) && value.Type() == pd.Type && len(pd.AllowedValues) > 0 {
		report.Steps = append(report.Steps, RemapValue{
			Name:      name,
			Current:   value,
			Suggested: pd.AllowedValues[0],
		})
		return
	}

	report.Steps = append(report.Steps, DropProperty{Name: name, Reason: violations[0]})
}

// score is the fraction of properties retained. An empty analysis (no
// properties, nothing lost, nothing missing) scores 1.0.
func score(preserved, lost, missing int) float64 {
	denom := preserved + lost + missing
	if denom == 0 {
		return 1.0
	}
	s := float64(preserved) / float64(denom)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func anyLostRequired(current *class.Definition, report *Report) bool {
	for name := range report.Lost {
		if current.IsRequired(name) {
			return true
		}
	}
	return false
}

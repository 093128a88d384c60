package compatibility

import "strings"

// semanticGroups are the fixed keyword groups relation type names are
// tested against. Two relation types that fall into the same group are
// considered semantically related even when their names differ.
var semanticGroups = map[string][]string{
	"dependency":    {"depends_on", "requires", "needs", "uses"},
	"connectivity":  {"connects_to", "linked_to", "attached_to", "wired_to"},
	"hierarchy":     {"parent_of", "child_of", "contains", "part_of"},
	"communication": {"sends_to", "receives_from", "communicates_with"},
	"control":       {"controls", "manages", "monitors", "supervises"},
	"data_flow":     {"provides_data_to", "receives_data_from", "feeds_into"},
}

// Similarity scores how semantically related two relation type names are.
// Exact match scores 1.0, shared keyword-group membership 0.8, one name
// containing the other 0.6, anything else 0 and unrelated. The score is
// advisory: it never blocks a switch.
func Similarity(a, b string) (related bool, confidence float64) {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if a == b {
		return true, 1.0
	}

	if shareGroup(a, b) {
		return true, 0.8
	}

	if a != "" && b != "" && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return true, 0.6
	}

	return false, 0
}

func shareGroup(a, b string) bool {
	for _, keywords := range semanticGroups {
		if inGroup(a, keywords) && inGroup(b, keywords) {
			return true
		}
	}
	return false
}

func inGroup(name string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

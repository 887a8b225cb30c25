// Package transitions holds the pure state-machine rules for incident status
// transitions. It has no store dependency so the rules can be unit tested
// on their own; the store layer applies them inside its status-change
// transactions.
package transitions

import "github.com/kiranshivaraju/loghunter/pkg/models"

// ValidTransitions enumerates every legal next status for a given current
// status. RESOLVED is terminal: ValidTransitions[RESOLVED] is empty.
var ValidTransitions = map[string][]string{
	models.StatusOpen:      {models.StatusMitigated, models.StatusResolved},
	models.StatusMitigated: {models.StatusResolved},
	models.StatusResolved:  {},
}

// CanTransition reports whether from -> to is a legal status change.
// Self-transitions are always rejected.
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	for _, allowed := range ValidTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

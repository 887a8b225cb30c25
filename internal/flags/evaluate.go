package flags

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kiranshivaraju/loghunter/pkg/models"
)

// EvalContext is the input a flag is evaluated against.
type EvalContext struct {
	UserID      string
	Environment string
}

// Result is the deterministic outcome of an evaluation, with a human-readable
// trace of every step taken.
type Result struct {
	Enabled bool     `json:"enabled"`
	Reason  string   `json:"reason"`
	Trace   []string `json:"trace"`
}

// Evaluate runs the flag's rule tree against ctx. It performs no I/O: the
// flag and its rules must already be fetched from the store. Rules are
// evaluated in ascending Order; the first match wins.
func Evaluate(flag models.FeatureFlag, rules []models.Rule, ctx EvalContext) Result {
	trace := []string{}

	if !flag.Enabled {
		trace = append(trace, "flag globally disabled")
		return Result{Enabled: false, Reason: "globally disabled", Trace: trace}
	}
	if flag.Environment != ctx.Environment {
		trace = append(trace, fmt.Sprintf("flag environment %q does not match context environment %q", flag.Environment, ctx.Environment))
		return Result{Enabled: false, Reason: "environment mismatch", Trace: trace}
	}
	if len(rules) == 0 {
		trace = append(trace, "flag has no rules")
		return Result{Enabled: true, Reason: "no rules, enabled for all", Trace: trace}
	}

	ordered := make([]models.Rule, len(rules))
	copy(ordered, rules)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	for i, rule := range ordered {
		matched, detail := evalRule(rule.Type, rule.Condition, flag.Key, ctx, 1)
		trace = append(trace, fmt.Sprintf("rule[%d] %s: %s", i, rule.Type, detail))
		if matched {
			return Result{Enabled: true, Reason: fmt.Sprintf("matched rule %d", i), Trace: trace}
		}
	}

	return Result{Enabled: false, Reason: "no rules matched", Trace: trace}
}

// evalRule evaluates a single rule node. An unparseable stored rule is
// reported in the trace detail and treated as non-matching rather than
// failing the whole evaluation.
func evalRule(ruleType string, condition json.RawMessage, flagKey string, ctx EvalContext, depth int) (bool, string) {
	if depth > models.MaxRuleDepth {
		return false, "max nesting depth exceeded, treated as non-matching"
	}

	switch ruleType {
	case models.RuleTypeAllowlist:
		var c models.AllowlistCondition
		if err := json.Unmarshal(condition, &c); err != nil {
			return false, fmt.Sprintf("unparseable allowlist condition: %v", err)
		}
		for _, id := range c.UserIDs {
			if id == ctx.UserID {
				return true, fmt.Sprintf("userId %q is in allowlist", ctx.UserID)
			}
		}
		return false, fmt.Sprintf("userId %q not in allowlist", ctx.UserID)

	case models.RuleTypePercentRollout:
		var c models.PercentRolloutCondition
		if err := json.Unmarshal(condition, &c); err != nil {
			return false, fmt.Sprintf("unparseable percent_rollout condition: %v", err)
		}
		bucket := StableHash(ctx.UserID, flagKey)
		if int(bucket) < c.Percentage {
			return true, fmt.Sprintf("bucket %d < percentage %d", bucket, c.Percentage)
		}
		return false, fmt.Sprintf("bucket %d >= percentage %d", bucket, c.Percentage)

	case models.RuleTypeAnd:
		var c models.CompositeCondition
		if err := json.Unmarshal(condition, &c); err != nil {
			return false, fmt.Sprintf("unparseable AND condition: %v", err)
		}
		for _, child := range c.Rules {
			matched, detail := evalRule(child.Type, child.Condition, flagKey, ctx, depth+1)
			if !matched {
				return false, fmt.Sprintf("AND short-circuited on %s (%s)", child.Type, detail)
			}
		}
		return true, "AND: all children matched"

	case models.RuleTypeOr:
		var c models.CompositeCondition
		if err := json.Unmarshal(condition, &c); err != nil {
			return false, fmt.Sprintf("unparseable OR condition: %v", err)
		}
		for _, child := range c.Rules {
			matched, detail := evalRule(child.Type, child.Condition, flagKey, ctx, depth+1)
			if matched {
				return true, fmt.Sprintf("OR short-circuited on %s (%s)", child.Type, detail)
			}
		}
		return false, "OR: no child matched"

	default:
		return false, fmt.Sprintf("unrecognized rule type %q, treated as non-matching", ruleType)
	}
}

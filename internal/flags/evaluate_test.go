package flags

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/loghunter/pkg/models"
)

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestEvaluate_GloballyDisabled(t *testing.T) {
	flag := models.FeatureFlag{Key: "k", Enabled: false, Environment: "PROD"}
	res := Evaluate(flag, nil, EvalContext{UserID: "u1", Environment: "PROD"})
	if res.Enabled {
		t.Fatal("expected disabled flag to never enable")
	}
	if res.Reason != "globally disabled" {
		t.Fatalf("reason = %q", res.Reason)
	}
}

func TestEvaluate_EnvironmentMismatch(t *testing.T) {
	flag := models.FeatureFlag{Key: "k", Enabled: true, Environment: "PROD"}
	res := Evaluate(flag, nil, EvalContext{UserID: "u1", Environment: "STAGING"})
	if res.Enabled {
		t.Fatal("expected environment mismatch to disable")
	}
	if res.Reason != "environment mismatch" {
		t.Fatalf("reason = %q", res.Reason)
	}
}

func TestEvaluate_NoRulesEnabledForAll(t *testing.T) {
	flag := models.FeatureFlag{Key: "k", Enabled: true, Environment: "PROD"}
	res := Evaluate(flag, nil, EvalContext{UserID: "u1", Environment: "PROD"})
	if !res.Enabled {
		t.Fatal("expected flag with zero rules to be enabled for all")
	}
}

func TestEvaluate_AllowlistFirstMatchWins(t *testing.T) {
	flag := models.FeatureFlag{Key: "k", Enabled: true, Environment: "PROD"}
	rules := []models.Rule{
		{ID: uuid.New(), Type: models.RuleTypeAllowlist, Order: 0, Condition: mustJSON(t, models.AllowlistCondition{UserIDs: []string{"u1", "u2"}})},
		{ID: uuid.New(), Type: models.RuleTypePercentRollout, Order: 1, Condition: mustJSON(t, models.PercentRolloutCondition{Percentage: 0})},
	}

	for _, uid := range []string{"u1", "u2"} {
		res := Evaluate(flag, rules, EvalContext{UserID: uid, Environment: "PROD"})
		if !res.Enabled {
			t.Fatalf("expected %q to be enabled via allowlist", uid)
		}
		allowlistTraceCount := 0
		for _, line := range res.Trace {
			if containsAllowlist(line) {
				allowlistTraceCount++
			}
		}
		if allowlistTraceCount != 1 {
			t.Fatalf("expected exactly one ALLOWLIST trace entry, got %d", allowlistTraceCount)
		}
	}

	res := Evaluate(flag, rules, EvalContext{UserID: "u3", Environment: "PROD"})
	if res.Enabled {
		t.Fatal("expected u3 (not in allowlist, 0%% rollout) to be disabled")
	}
}

func containsAllowlist(s string) bool {
	return len(s) >= 9 && (s[:9] == "rule[0] A" || s[:9] == "rule[1] A")
}

func TestEvaluate_PercentRolloutMonotonic(t *testing.T) {
	flag := models.FeatureFlag{Key: "new_checkout_flow", Enabled: true, Environment: "PROD"}
	low := []models.Rule{{ID: uuid.New(), Type: models.RuleTypePercentRollout, Order: 0, Condition: mustJSON(t, models.PercentRolloutCondition{Percentage: 25})}}
	high := []models.Rule{{ID: uuid.New(), Type: models.RuleTypePercentRollout, Order: 0, Condition: mustJSON(t, models.PercentRolloutCondition{Percentage: 75})}}

	for i := 0; i < 1000; i++ {
		uid := fmt.Sprintf("user-%d", i)
		lowRes := Evaluate(flag, low, EvalContext{UserID: uid, Environment: "PROD"})
		highRes := Evaluate(flag, high, EvalContext{UserID: uid, Environment: "PROD"})
		if lowRes.Enabled && !highRes.Enabled {
			t.Fatalf("monotonicity violated for %q: enabled at 25%% but not 75%%", uid)
		}
	}
}

func TestEvaluate_AndShortCircuits(t *testing.T) {
	flag := models.FeatureFlag{Key: "k", Enabled: true, Environment: "PROD"}
	rules := []models.Rule{
		{ID: uuid.New(), Type: models.RuleTypeAnd, Order: 0, Condition: mustJSON(t, models.CompositeCondition{
			Rules: []models.RuleBody{
				{Type: models.RuleTypeAllowlist, Condition: mustJSON(t, models.AllowlistCondition{UserIDs: []string{"u1"}})},
				{Type: models.RuleTypePercentRollout, Condition: mustJSON(t, models.PercentRolloutCondition{Percentage: 100})},
			},
		})},
	}
	res := Evaluate(flag, rules, EvalContext{UserID: "u2", Environment: "PROD"})
	if res.Enabled {
		t.Fatal("expected AND to fail when first child misses")
	}
}

func TestEvaluate_OrShortCircuits(t *testing.T) {
	flag := models.FeatureFlag{Key: "k", Enabled: true, Environment: "PROD"}
	rules := []models.Rule{
		{ID: uuid.New(), Type: models.RuleTypeOr, Order: 0, Condition: mustJSON(t, models.CompositeCondition{
			Rules: []models.RuleBody{
				{Type: models.RuleTypeAllowlist, Condition: mustJSON(t, models.AllowlistCondition{UserIDs: []string{"u1"}})},
				{Type: models.RuleTypePercentRollout, Condition: mustJSON(t, models.PercentRolloutCondition{Percentage: 0})},
			},
		})},
	}
	res := Evaluate(flag, rules, EvalContext{UserID: "u1", Environment: "PROD"})
	if !res.Enabled {
		t.Fatal("expected OR to succeed when first child matches")
	}
}

func TestEvaluate_UnparseableRuleTreatedAsNonMatching(t *testing.T) {
	flag := models.FeatureFlag{Key: "k", Enabled: true, Environment: "PROD"}
	rules := []models.Rule{
		{ID: uuid.New(), Type: models.RuleTypeAllowlist, Order: 0, Condition: json.RawMessage(`not json`)},
	}
	res := Evaluate(flag, rules, EvalContext{UserID: "u1", Environment: "PROD"})
	if res.Enabled {
		t.Fatal("expected unparseable rule to be treated as non-matching, not fail evaluation")
	}
}

func TestValidateCondition(t *testing.T) {
	if err := ValidateCondition(models.RuleTypePercentRollout, mustJSON(t, models.PercentRolloutCondition{Percentage: 101})); err != ErrInvalidPercentage {
		t.Fatalf("expected ErrInvalidPercentage, got %v", err)
	}
	if err := ValidateCondition(models.RuleTypeAnd, mustJSON(t, models.CompositeCondition{Rules: nil})); err != ErrEmptyComposite {
		t.Fatalf("expected ErrEmptyComposite, got %v", err)
	}
	if err := ValidateCondition("BOGUS", mustJSON(t, struct{}{})); err == nil {
		t.Fatal("expected error for unknown rule type")
	}
}

func TestValidateCondition_MaxDepth(t *testing.T) {
	// Build a chain of nested AND rules deeper than models.MaxRuleDepth.
	var condition = mustJSON(t, models.PercentRolloutCondition{Percentage: 50})
	ruleType := models.RuleTypePercentRollout
	for i := 0; i < models.MaxRuleDepth+2; i++ {
		condition = mustJSON(t, models.CompositeCondition{
			Rules: []models.RuleBody{{Type: ruleType, Condition: condition}},
		})
		ruleType = models.RuleTypeAnd
	}
	if err := ValidateCondition(ruleType, condition); err != ErrMaxDepthExceeded {
		t.Fatalf("expected ErrMaxDepthExceeded, got %v", err)
	}
}

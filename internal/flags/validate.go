package flags

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kiranshivaraju/loghunter/pkg/models"
)

var (
	ErrUnknownRuleType  = errors.New("flags: unknown rule type")
	ErrInvalidPercentage = errors.New("flags: percentage must be an integer in [0, 100]")
	ErrEmptyComposite    = errors.New("flags: AND/OR rules require at least one child")
	ErrMaxDepthExceeded  = errors.New("flags: rule nesting exceeds the maximum depth")
)

// ValidateCondition checks a single rule node's condition payload against its
// declared type, recursing into AND/OR children up to models.MaxRuleDepth.
func ValidateCondition(ruleType string, condition json.RawMessage) error {
	return validateAtDepth(ruleType, condition, 1)
}

func validateAtDepth(ruleType string, condition json.RawMessage, depth int) error {
	if depth > models.MaxRuleDepth {
		return ErrMaxDepthExceeded
	}

	switch ruleType {
	case models.RuleTypeAllowlist:
		var c models.AllowlistCondition
		if err := json.Unmarshal(condition, &c); err != nil {
			return fmt.Errorf("flags: invalid allowlist condition: %w", err)
		}
		return nil

	case models.RuleTypePercentRollout:
		var c models.PercentRolloutCondition
		if err := json.Unmarshal(condition, &c); err != nil {
			return fmt.Errorf("flags: invalid percent_rollout condition: %w", err)
		}
		if c.Percentage < 0 || c.Percentage > 100 {
			return ErrInvalidPercentage
		}
		return nil

	case models.RuleTypeAnd, models.RuleTypeOr:
		var c models.CompositeCondition
		if err := json.Unmarshal(condition, &c); err != nil {
			return fmt.Errorf("flags: invalid %s condition: %w", ruleType, err)
		}
		if len(c.Rules) == 0 {
			return ErrEmptyComposite
		}
		for _, child := range c.Rules {
			if err := validateAtDepth(child.Type, child.Condition, depth+1); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownRuleType, ruleType)
	}
}

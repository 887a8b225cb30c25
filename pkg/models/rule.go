package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

const (
	RuleTypeAllowlist      = "ALLOWLIST"
	RuleTypePercentRollout = "PERCENT_ROLLOUT"
	RuleTypeAnd            = "AND"
	RuleTypeOr             = "OR"
)

// MaxRuleDepth bounds how deeply AND/OR nodes may nest.
const MaxRuleDepth = 16

// Rule is a node in the flag evaluation grammar. Condition's shape depends on Type:
// ALLOWLIST -> AllowlistCondition, PERCENT_ROLLOUT -> PercentRolloutCondition,
// AND/OR -> CompositeCondition.
type Rule struct {
	ID        uuid.UUID       `db:"id"         json:"id"`
	FlagID    uuid.UUID       `db:"flag_id"    json:"flag_id"`
	Type      string          `db:"type"       json:"type"`
	Condition json.RawMessage `db:"condition"  json:"condition"`
	Order     int             `db:"order_idx"  json:"order"`
}

// AllowlistCondition matches iff the context userId is a member of UserIDs.
type AllowlistCondition struct {
	UserIDs []string `json:"userIds"`
}

// PercentRolloutCondition matches iff stableHash(userId, flagKey) < Percentage.
type PercentRolloutCondition struct {
	Percentage int `json:"percentage"`
}

// CompositeCondition holds the nested rule bodies for AND/OR nodes.
type CompositeCondition struct {
	Rules []RuleBody `json:"rules"`
}

// RuleBody is the wire shape of a rule embedded inside a composite condition —
// Rule itself minus the flag/order columns that only make sense for top-level rows.
type RuleBody struct {
	Type      string          `json:"type"`
	Condition json.RawMessage `json:"condition"`
}

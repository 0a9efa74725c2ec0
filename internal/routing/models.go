package routing

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ksred/freight-clearing-api/internal/types"
)

// RoutingRule routes funds between two legal entities through one or
// two intermediate entities, each hop optionally keeping a retention.
// Selection among matching rules picks the minimum priority value.
type RoutingRule struct {
	gorm.Model         `json:"-"`
	RuleID             string              `gorm:"uniqueIndex" json:"rule_id"`
	PayerEntityID      string              `gorm:"index:idx_routing_key" json:"payer_entity_id"`
	PayeeEntityID      string              `gorm:"index:idx_routing_key" json:"payee_entity_id"`
	Currency           string              `gorm:"index:idx_routing_key" json:"currency"`
	Priority           int                 `json:"priority"`
	Hop1EntityID       string              `json:"hop1_entity_id"`
	Hop1EntityName     string              `json:"hop1_entity_name"`
	Hop1RetentionType  types.RetentionType `json:"hop1_retention_type"`
	Hop1RetentionValue decimal.Decimal     `gorm:"type:decimal(20,4)" json:"hop1_retention_value"`
	Hop2EntityID       string              `json:"hop2_entity_id,omitempty"`
	Hop2EntityName     string              `json:"hop2_entity_name,omitempty"`
	Hop2RetentionType  types.RetentionType `json:"hop2_retention_type,omitempty"`
	Hop2RetentionValue decimal.Decimal     `gorm:"type:decimal(20,4)" json:"hop2_retention_value"`
	EffectiveFrom      time.Time           `json:"effective_from"`
	EffectiveTo        *time.Time          `json:"effective_to,omitempty"`
	Status             types.RuleStatus    `json:"status"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// RouteHop is one intermediate entity with its retention policy.
type RouteHop struct {
	EntityID       string
	EntityName     string
	RetentionType  types.RetentionType
	RetentionValue decimal.Decimal
}

// Hops returns the rule's ordered hops. A rule always has at least one
// hop; the second is present when Hop2EntityID is set.
func (r *RoutingRule) Hops() []RouteHop {
	hops := []RouteHop{{
		EntityID:       r.Hop1EntityID,
		EntityName:     r.Hop1EntityName,
		RetentionType:  r.Hop1RetentionType,
		RetentionValue: r.Hop1RetentionValue,
	}}
	if r.Hop2EntityID != "" {
		hops = append(hops, RouteHop{
			EntityID:       r.Hop2EntityID,
			EntityName:     r.Hop2EntityName,
			RetentionType:  r.Hop2RetentionType,
			RetentionValue: r.Hop2RetentionValue,
		})
	}
	return hops
}

// effectiveAt reports whether the rule's effective-dating window
// contains the given instant.
func (r *RoutingRule) effectiveAt(asOf time.Time) bool {
	if asOf.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && asOf.After(*r.EffectiveTo) {
		return false
	}
	return true
}

// PassthroughInstruction is the routed form of one clearing
// instruction: per clearing detail, the multi-hop transactions and
// retentions produced by the matched routing rules.
type PassthroughInstruction struct {
	gorm.Model            `json:"-"`
	InstructionID         string                  `gorm:"uniqueIndex" json:"instruction_id"`
	ClearingInstructionID string                  `gorm:"index" json:"clearing_instruction_id"`
	TotalAmount           decimal.Decimal         `gorm:"type:decimal(20,2)" json:"total_amount"`
	Status                types.InstructionStatus `json:"status"`
	ReplacedBy            string                  `json:"replaced_by,omitempty"`
	Details               []PassthroughDetail     `gorm:"foreignKey:InstructionID;references:InstructionID" json:"details,omitempty"`
	CreatedAt             time.Time               `json:"created_at"`
	UpdatedAt             time.Time               `json:"updated_at"`
}

// PassthroughDetail is one generated transaction: a ROUTING hop, a
// RETENTION kept at a hop entity, or a direct PASSTHROUGH when no rule
// matched. RoutingLevel is the 1-based hop index; ExecutionOrder is the
// source detail's execution rank × 10 plus the hop offset, leaving room
// for retention sub-entries between hops. NettedBy links to the netting
// result that superseded this transaction, set only when netting runs
// with suppression enabled.
type PassthroughDetail struct {
	gorm.Model     `json:"-"`
	DetailID       string                `gorm:"uniqueIndex" json:"detail_id"`
	InstructionID  string                `gorm:"index" json:"instruction_id"`
	SourceDetailID string                `json:"source_detail_id"`
	DetailType     types.PassthroughType `json:"detail_type"`
	FromEntity     string                `json:"from_entity"`
	ToEntity       string                `json:"to_entity"`
	Amount         decimal.Decimal       `gorm:"type:decimal(20,2)" json:"amount"`
	Currency       string                `json:"currency"`
	RoutingPath    string                `json:"routing_path"`
	AppliedRuleID  string                `json:"applied_rule_id,omitempty"`
	RoutingLevel   int                   `json:"routing_level"`
	ExecutionOrder int                   `json:"execution_order"`
	Status         types.DetailStatus    `json:"status"`
	Message        string                `json:"message,omitempty"`
	NettedBy       string                `json:"netted_by,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// PassthroughResponse is the API view of a generated instruction.
type PassthroughResponse struct {
	InstructionID         string                  `json:"instruction_id"`
	ClearingInstructionID string                  `json:"clearing_instruction_id"`
	TotalAmount           decimal.Decimal         `json:"total_amount"`
	Status                types.InstructionStatus `json:"status"`
	DetailCount           int                     `json:"detail_count"`
	Details               []PassthroughDetail     `json:"details"`
	Timestamp             time.Time               `json:"timestamp"`
}

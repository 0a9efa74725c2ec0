package netting

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ksred/freight-clearing-api/internal/types"
)

// NettingRule decides whether offsetting flows between two entities
// collapse into one net payment. The pair is matched in either
// direction. MinNettingAmount leaves a pair un-netted when the
// resulting net payment would fall below it; NettingThreshold is the
// minimum gross bidirectional volume worth netting at all.
type NettingRule struct {
	gorm.Model          `json:"-"`
	RuleID              string            `gorm:"uniqueIndex" json:"rule_id"`
	PassthroughEntityID string            `gorm:"index:idx_netting_key" json:"passthrough_entity_id"`
	TargetEntityID      string            `gorm:"index:idx_netting_key" json:"target_entity_id"`
	Currency            string            `gorm:"index:idx_netting_key" json:"currency"`
	NettingMode         types.NettingMode `json:"netting_mode"`
	MinNettingAmount    decimal.Decimal   `gorm:"type:decimal(20,2)" json:"min_netting_amount"`
	NettingThreshold    decimal.Decimal   `gorm:"type:decimal(20,2)" json:"netting_threshold"`
	Status              types.RuleStatus  `json:"status"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// NettingResult is the derived settlement artifact for one fully
// netted entity pair: who pays whom, how much, and what the collapse
// saved. Original transactions stay recorded alongside it;
// OriginalDetails is a JSON array of their detail ids.
type NettingResult struct {
	gorm.Model             `json:"-"`
	ResultID               string          `gorm:"uniqueIndex" json:"result_id"`
	BatchID                string          `gorm:"index" json:"batch_id"`
	RuleID                 string          `json:"rule_id"`
	EntityA                string          `json:"entity_a"`
	EntityB                string          `json:"entity_b"`
	Currency               string          `json:"currency"`
	APayB                  decimal.Decimal `gorm:"type:decimal(20,2)" json:"a_pay_b"`
	BPayA                  decimal.Decimal `gorm:"type:decimal(20,2)" json:"b_pay_a"`
	NetAmount              decimal.Decimal `gorm:"type:decimal(20,2)" json:"net_amount"`
	NetPayer               string          `json:"net_payer"`
	NetPayee               string          `json:"net_payee"`
	SavedTransactionsCount int             `json:"saved_transactions_count"`
	SavedAmount            decimal.Decimal `gorm:"type:decimal(20,2)" json:"saved_amount"`
	OriginalDetails        string          `json:"original_details"`
	CreatedAt              time.Time       `json:"created_at"`
}

// NettingRunResponse summarizes one netting pass over a batch.
type NettingRunResponse struct {
	BatchID             string          `json:"batch_id"`
	TransactionsScanned int             `json:"transactions_scanned"`
	ResultsEmitted      int             `json:"results_emitted"`
	TotalSavedAmount    decimal.Decimal `json:"total_saved_amount"`
	TotalSavedCount     int             `json:"total_saved_count"`
	OriginalsSuppressed bool            `json:"originals_suppressed"`
	Results             []NettingResult `json:"results"`
	Timestamp           time.Time       `json:"timestamp"`
}

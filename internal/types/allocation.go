package types

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProfitAllocation is one department's share of an order's revenue,
// cost and internal payments for a single service, as produced by the
// upstream profit-sharing calculation. Immutable once read by the
// clearing engine.
//
// The amount fields are pointers because the upstream feed is allowed
// to omit or blank them; a missing figure contributes nothing to the
// clearing instruction rather than failing the batch.
type ProfitAllocation struct {
	gorm.Model      `json:"-"`
	OrderID         string           `gorm:"index:idx_alloc_order" json:"order_id"`
	CalculationID   string           `gorm:"index:idx_alloc_order" json:"calculation_id"`
	ServiceCode     string           `json:"service_code"`
	DepartmentID    string           `json:"department_id"`
	DepartmentName  string           `json:"department_name"`
	ExternalRevenue *decimal.Decimal `gorm:"type:decimal(20,2)" json:"external_revenue,omitempty"`
	ExternalCost    *decimal.Decimal `gorm:"type:decimal(20,2)" json:"external_cost,omitempty"`
	InternalPayment *decimal.Decimal `gorm:"type:decimal(20,2)" json:"internal_payment,omitempty"`
	Currency        string           `json:"currency"`
	CreatedAt       time.Time        `json:"created_at"`
}

// AmountOrZero dereferences an optional allocation figure, treating
// missing and negative values as zero per the lenient-parsing policy.
func AmountOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil || d.Sign() < 0 {
		return decimal.Zero
	}
	return *d
}

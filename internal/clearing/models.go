package clearing

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ksred/freight-clearing-api/internal/types"
)

// ClearingInstruction is one settlement run for an order's profit
// split: the ordered set of receivable/payable/internal-transfer
// details produced from a calculation batch. Corrections never mutate
// an existing instruction; a replacement instruction is layered on top.
type ClearingInstruction struct {
	gorm.Model     `json:"-"`
	InstructionID  string                  `gorm:"uniqueIndex" json:"instruction_id"`
	OrderID        string                  `gorm:"index" json:"order_id"`
	CalculationID  string                  `json:"calculation_id"`
	ClearingMode   types.ClearingMode      `json:"clearing_mode"`
	ClearingAmount decimal.Decimal         `gorm:"type:decimal(20,2)" json:"clearing_amount"`
	Status         types.InstructionStatus `json:"status"`
	Details        []ClearingDetail        `gorm:"foreignKey:InstructionID;references:InstructionID" json:"details,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// ClearingDetail is a single money movement within an instruction.
// ExecutionOrder is the mode-dependent ordering key; Sequence is the
// insertion index used to break ties deterministically.
type ClearingDetail struct {
	gorm.Model     `json:"-"`
	DetailID       string             `gorm:"uniqueIndex" json:"detail_id"`
	InstructionID  string             `gorm:"index" json:"instruction_id"`
	DetailType     types.DetailType   `json:"detail_type"`
	FromEntity     string             `json:"from_entity"`
	ToEntity       string             `json:"to_entity"`
	Amount         decimal.Decimal    `gorm:"type:decimal(20,2)" json:"amount"`
	Currency       string             `json:"currency"`
	ExecutionOrder int                `json:"execution_order"`
	Sequence       int                `json:"sequence"`
	Status         types.DetailStatus `json:"status"`
	Message        string             `json:"message,omitempty"`
	ServiceCode    string             `json:"service_code"`
	DepartmentID   string             `json:"department_id"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// InstructionResponse is the API view of a built instruction.
type InstructionResponse struct {
	InstructionID  string                  `json:"instruction_id"`
	OrderID        string                  `json:"order_id"`
	CalculationID  string                  `json:"calculation_id"`
	ClearingMode   types.ClearingMode      `json:"clearing_mode"`
	ClearingAmount decimal.Decimal         `json:"clearing_amount"`
	Status         types.InstructionStatus `json:"status"`
	DetailCount    int                     `json:"detail_count"`
	Details        []ClearingDetail        `json:"details"`
	Timestamp      time.Time               `json:"timestamp"`
}

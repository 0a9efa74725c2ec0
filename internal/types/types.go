package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ClearingMode selects the settlement topology for an instruction.
type ClearingMode string

const (
	// ModeStar settles every flow through one central entity: collect
	// receivables first, move internal transfers, then disburse payables.
	ModeStar ClearingMode = "STAR"
	// ModeChain settles sequentially along the service chain:
	// receivables, payables, then internal transfers.
	ModeChain ClearingMode = "CHAIN"
)

// Valid reports whether the mode is one of the known topologies.
func (m ClearingMode) Valid() bool {
	return m == ModeStar || m == ModeChain
}

// DetailType classifies a clearing detail.
type DetailType string

const (
	DetailReceivable       DetailType = "RECEIVABLE"
	DetailPayable          DetailType = "PAYABLE"
	DetailInternalTransfer DetailType = "INTERNAL_TRANSFER"
)

func (t DetailType) Valid() bool {
	switch t {
	case DetailReceivable, DetailPayable, DetailInternalTransfer:
		return true
	}
	return false
}

// InstructionStatus is the lifecycle state of a clearing or
// passthrough instruction.
type InstructionStatus string

const (
	InstructionPending            InstructionStatus = "PENDING"
	InstructionProcessing         InstructionStatus = "PROCESSING"
	InstructionCompleted          InstructionStatus = "COMPLETED"
	InstructionPartiallyCompleted InstructionStatus = "PARTIALLY_COMPLETED"
	InstructionFailed             InstructionStatus = "FAILED"
	// InstructionReplaced marks a passthrough instruction superseded by a
	// differential correction. Replaced instructions are never executed.
	InstructionReplaced InstructionStatus = "REPLACED"
)

// Terminal reports whether no further status transition is allowed.
func (s InstructionStatus) Terminal() bool {
	switch s {
	case InstructionCompleted, InstructionPartiallyCompleted, InstructionFailed, InstructionReplaced:
		return true
	}
	return false
}

// DetailStatus is the execution state of a single detail.
type DetailStatus string

const (
	DetailPending   DetailStatus = "PENDING"
	DetailCompleted DetailStatus = "COMPLETED"
	DetailFailed    DetailStatus = "FAILED"
)

// PassthroughType classifies a generated passthrough detail.
type PassthroughType string

const (
	// PassthroughRouting is one hop of a matched multi-hop route.
	PassthroughRouting PassthroughType = "ROUTING"
	// PassthroughRetention is the amount kept by an intermediate entity.
	PassthroughRetention PassthroughType = "RETENTION"
	// PassthroughDirect is a payer-to-payee transfer with no rule matched.
	PassthroughDirect PassthroughType = "PASSTHROUGH"
)

func (t PassthroughType) Valid() bool {
	switch t {
	case PassthroughRouting, PassthroughRetention, PassthroughDirect:
		return true
	}
	return false
}

// RetentionType selects how a routing hop computes its retention.
type RetentionType string

const (
	// RetentionPercentage applies a rate to the amount arriving at the hop.
	RetentionPercentage RetentionType = "PERCENTAGE"
	// RetentionFixed keeps a flat amount regardless of the passing amount.
	RetentionFixed RetentionType = "FIXED"
)

// NettingMode selects how offsetting flows between two entities settle.
type NettingMode string

const (
	NettingFull             NettingMode = "FULL_NETTING"
	NettingSeparatePayments NettingMode = "SEPARATE_PAYMENTS"
)

// RuleStatus gates routing and netting rules.
type RuleStatus string

const (
	RuleActive   RuleStatus = "ACTIVE"
	RuleInactive RuleStatus = "INACTIVE"
)

// DefaultCurrency is assumed when an allocation carries no currency.
const DefaultCurrency = "CNY"

// ValidateAmount rejects amounts the engine cannot settle. Details are
// always constructed with positive amounts; anything else is a caller bug.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive, got %s", amount.String())
	}
	return nil
}

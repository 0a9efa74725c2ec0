package clearing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ksred/freight-clearing-api/internal/types"
)

// Entity names for the fixed ends of a department's flows. Departments
// themselves are identified by their department id.
const (
	EntityCustomer       = "CUSTOMER"
	EntitySupplier       = "SUPPLIER"
	EntitySettlementSink = "INTERNAL_SETTLEMENT"
)

// Execution order buckets per clearing mode. STAR collects receivables
// into the central entity, moves internal transfers, then disburses
// payables; CHAIN settles along the service chain instead. Unknown
// detail types sink into the last bucket.
const orderSink = 5

func executionOrderFor(mode types.ClearingMode, detailType types.DetailType) int {
	switch mode {
	case types.ModeStar:
		switch detailType {
		case types.DetailReceivable:
			return 1
		case types.DetailInternalTransfer:
			return 2
		case types.DetailPayable:
			return 3
		}
	case types.ModeChain:
		switch detailType {
		case types.DetailReceivable:
			return 1
		case types.DetailPayable:
			return 2
		case types.DetailInternalTransfer:
			return 3
		}
	}
	return orderSink
}

// BuildInstruction converts a department profit split into an ordered
// clearing instruction. It is a pure computation: identifiers are
// assigned at persistence time, so the same allocations and mode always
// produce an identical result.
//
// Per allocation it emits a RECEIVABLE when external revenue is
// positive (customer pays the department), a PAYABLE when external cost
// is positive (department pays the supplier) and an INTERNAL_TRANSFER
// when an internal payment is due to the settlement sink. Missing or
// non-positive figures contribute nothing; partial allocation data
// stays usable.
func BuildInstruction(orderID, calculationID string, mode types.ClearingMode, allocations []types.ProfitAllocation) (*ClearingInstruction, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order id is required")
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("invalid clearing mode %q", mode)
	}

	instruction := &ClearingInstruction{
		OrderID:       orderID,
		CalculationID: calculationID,
		ClearingMode:  mode,
		Status:        types.InstructionPending,
	}

	total := decimal.Zero
	sequence := 0
	emit := func(alloc types.ProfitAllocation, detailType types.DetailType, from, to string, amount decimal.Decimal) {
		currency := alloc.Currency
		if currency == "" {
			currency = types.DefaultCurrency
		}
		instruction.Details = append(instruction.Details, ClearingDetail{
			DetailType:     detailType,
			FromEntity:     from,
			ToEntity:       to,
			Amount:         amount,
			Currency:       currency,
			ExecutionOrder: executionOrderFor(mode, detailType),
			Sequence:       sequence,
			Status:         types.DetailPending,
			ServiceCode:    alloc.ServiceCode,
			DepartmentID:   alloc.DepartmentID,
		})
		total = total.Add(amount)
		sequence++
	}

	for _, alloc := range allocations {
		if revenue := types.AmountOrZero(alloc.ExternalRevenue); revenue.Sign() > 0 {
			emit(alloc, types.DetailReceivable, EntityCustomer, alloc.DepartmentID, revenue)
		}
		if cost := types.AmountOrZero(alloc.ExternalCost); cost.Sign() > 0 {
			emit(alloc, types.DetailPayable, alloc.DepartmentID, EntitySupplier, cost)
		}
		if internal := types.AmountOrZero(alloc.InternalPayment); internal.Sign() > 0 {
			emit(alloc, types.DetailInternalTransfer, alloc.DepartmentID, EntitySettlementSink, internal)
		}
	}

	// Stable sort keeps emission order within an execution-order bucket.
	sort.SliceStable(instruction.Details, func(i, j int) bool {
		return instruction.Details[i].ExecutionOrder < instruction.Details[j].ExecutionOrder
	})

	instruction.ClearingAmount = total
	return instruction, nil
}

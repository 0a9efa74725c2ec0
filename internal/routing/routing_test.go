package routing

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ksred/freight-clearing-api/internal/clearing"
	"github.com/ksred/freight-clearing-api/internal/types"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&clearing.ClearingInstruction{},
		&clearing.ClearingDetail{},
		&RoutingRule{},
		&PassthroughInstruction{},
		&PassthroughDetail{},
	))
	return db
}

func seedClearingInstruction(t *testing.T, db *gorm.DB) *clearing.ClearingInstruction {
	t.Helper()
	instruction := &clearing.ClearingInstruction{
		InstructionID:  "CLI_test",
		OrderID:        "ORD-1",
		CalculationID:  "CALC-1",
		ClearingMode:   types.ModeStar,
		ClearingAmount: dec("1400"),
		Status:         types.InstructionPending,
		Details: []clearing.ClearingDetail{
			{
				DetailID:       "CLD_recv",
				InstructionID:  "CLI_test",
				DetailType:     types.DetailReceivable,
				FromEntity:     clearing.EntityCustomer,
				ToEntity:       "DEPT_OCEAN",
				Amount:         dec("1000"),
				Currency:       "CNY",
				ExecutionOrder: 1,
				Sequence:       0,
				Status:         types.DetailPending,
			},
			{
				DetailID:       "CLD_pay",
				InstructionID:  "CLI_test",
				DetailType:     types.DetailPayable,
				FromEntity:     "DEPT_OCEAN",
				ToEntity:       clearing.EntitySupplier,
				Amount:         dec("400"),
				Currency:       "CNY",
				ExecutionOrder: 3,
				Sequence:       1,
				Status:         types.DetailPending,
			},
		},
	}
	require.NoError(t, clearing.NewDatabase(db).CreateInstruction(instruction))
	return instruction
}

func TestServiceCreateRuleValidation(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	err := service.CreateRule(&RoutingRule{PayeeEntityID: "SUPPLIER", Hop1EntityID: "H1"})
	assert.Error(t, err, "missing payer must fail")

	err = service.CreateRule(&RoutingRule{PayerEntityID: "A", PayeeEntityID: "B"})
	assert.Error(t, err, "missing hop must fail")

	err = service.CreateRule(&RoutingRule{
		PayerEntityID: "A", PayeeEntityID: "B",
		Hop1EntityID: "H1", Hop2EntityID: "H1",
	})
	assert.Error(t, err, "duplicate hop entities must fail")

	rule := &RoutingRule{
		PayerEntityID: "A", PayeeEntityID: "B",
		Hop1EntityID: "H1", Priority: 100,
	}
	require.NoError(t, service.CreateRule(rule))
	assert.True(t, strings.HasPrefix(rule.RuleID, "RTR_"))
	assert.Equal(t, types.DefaultCurrency, rule.Currency)
	assert.Equal(t, types.RuleActive, rule.Status)
	assert.False(t, rule.EffectiveFrom.IsZero())
}

func TestServiceCreateRuleRejectsPriorityConflict(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	first := &RoutingRule{
		PayerEntityID: "A", PayeeEntityID: "B",
		Hop1EntityID: "H1", Priority: 100,
	}
	require.NoError(t, service.CreateRule(first))

	second := &RoutingRule{
		PayerEntityID: "A", PayeeEntityID: "B",
		Hop1EntityID: "H2", Priority: 100,
	}
	err := service.CreateRule(second)
	assert.ErrorIs(t, err, ErrAmbiguousPriority)
}

func TestServiceGeneratePassthrough(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	seedClearingInstruction(t, db)

	rule := &RoutingRule{
		PayerEntityID:      "DEPT_OCEAN",
		PayeeEntityID:      clearing.EntitySupplier,
		Hop1EntityID:       "SETTLE_SHA",
		Hop1RetentionType:  types.RetentionPercentage,
		Hop1RetentionValue: dec("1"),
		Priority:           100,
	}
	require.NoError(t, service.CreateRule(rule))

	result, err := service.GeneratePassthrough("CLI_test")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.InstructionID, "PTI_"))
	assert.True(t, result.TotalAmount.Equal(dec("1400")))
	assert.Equal(t, types.InstructionPending, result.Status)

	// The receivable has no rule and falls through directly; the payable
	// routes through the hop with a retention.
	require.Len(t, result.Details, 4)
	assert.Equal(t, types.PassthroughDirect, result.Details[0].DetailType)
	assert.Equal(t, "CLD_recv", result.Details[0].SourceDetailID)

	routed := result.Details[1:]
	assert.Equal(t, types.PassthroughRouting, routed[0].DetailType)
	assert.True(t, routed[0].Amount.Equal(dec("400")))
	assert.Equal(t, types.PassthroughRetention, routed[1].DetailType)
	assert.True(t, routed[1].Amount.Equal(dec("4")))
	assert.Equal(t, types.PassthroughRouting, routed[2].DetailType)
	assert.True(t, routed[2].Amount.Equal(dec("396")))

	for _, d := range result.Details {
		assert.True(t, strings.HasPrefix(d.DetailID, "PTD_"))
		assert.Equal(t, result.InstructionID, d.InstructionID)
	}

	// Persisted and readable back in the same order.
	loaded, err := service.GetInstruction(result.InstructionID)
	require.NoError(t, err)
	require.Len(t, loaded.Details, 4)
	assert.Equal(t, result.Details[0].DetailID, loaded.Details[0].DetailID)
}

func TestServiceGeneratePassthroughKeepsModeOrdering(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	// Star mode executes receivable, internal transfer, payable even
	// though the builder emits the payable before the internal transfer.
	instruction := &clearing.ClearingInstruction{
		InstructionID:  "CLI_star",
		OrderID:        "ORD-2",
		CalculationID:  "CALC-2",
		ClearingMode:   types.ModeStar,
		ClearingAmount: dec("1500"),
		Status:         types.InstructionPending,
		Details: []clearing.ClearingDetail{
			{
				DetailID:       "CLD_r",
				InstructionID:  "CLI_star",
				DetailType:     types.DetailReceivable,
				FromEntity:     clearing.EntityCustomer,
				ToEntity:       "DEPT_OCEAN",
				Amount:         dec("1000"),
				Currency:       "CNY",
				ExecutionOrder: 1,
				Sequence:       0,
				Status:         types.DetailPending,
			},
			{
				DetailID:       "CLD_p",
				InstructionID:  "CLI_star",
				DetailType:     types.DetailPayable,
				FromEntity:     "DEPT_OCEAN",
				ToEntity:       clearing.EntitySupplier,
				Amount:         dec("400"),
				Currency:       "CNY",
				ExecutionOrder: 3,
				Sequence:       1,
				Status:         types.DetailPending,
			},
			{
				DetailID:       "CLD_i",
				InstructionID:  "CLI_star",
				DetailType:     types.DetailInternalTransfer,
				FromEntity:     "DEPT_OCEAN",
				ToEntity:       clearing.EntitySettlementSink,
				Amount:         dec("100"),
				Currency:       "CNY",
				ExecutionOrder: 2,
				Sequence:       2,
				Status:         types.DetailPending,
			},
		},
	}
	require.NoError(t, clearing.NewDatabase(db).CreateInstruction(instruction))

	result, err := service.GeneratePassthrough("CLI_star")
	require.NoError(t, err)
	require.Len(t, result.Details, 3)

	details := append([]PassthroughDetail(nil), result.Details...)
	sort.Slice(details, func(i, j int) bool {
		return details[i].ExecutionOrder < details[j].ExecutionOrder
	})
	sources := make([]string, 0, len(details))
	for _, d := range details {
		sources = append(sources, d.SourceDetailID)
	}
	assert.Equal(t, []string{"CLD_r", "CLD_i", "CLD_p"}, sources)
}

func TestServiceGeneratePassthroughAmbiguousRulePoisonsRun(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	seedClearingInstruction(t, db)

	// Insert the conflicting pair directly; the create-time guard would
	// reject the second one.
	for i, id := range []string{"RTR_a", "RTR_b"} {
		rule := &RoutingRule{
			RuleID:        id,
			PayerEntityID: "DEPT_OCEAN",
			PayeeEntityID: clearing.EntitySupplier,
			Currency:      "CNY",
			Priority:      100,
			Hop1EntityID:  fmt.Sprintf("H%d", i),
			Status:        types.RuleActive,
		}
		require.NoError(t, db.Create(rule).Error)
	}

	_, err := service.GeneratePassthrough("CLI_test")
	assert.ErrorIs(t, err, ErrAmbiguousPriority)

	// Nothing was persisted for the poisoned run.
	var count int64
	require.NoError(t, db.Model(&PassthroughInstruction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestServiceReplaceInstruction(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)
	seedClearingInstruction(t, db)

	original, err := service.GeneratePassthrough("CLI_test")
	require.NoError(t, err)

	replacement, err := service.ReplaceInstruction(original.InstructionID)
	require.NoError(t, err)
	assert.NotEqual(t, original.InstructionID, replacement.InstructionID)

	old, err := service.GetInstruction(original.InstructionID)
	require.NoError(t, err)
	assert.Equal(t, types.InstructionReplaced, old.Status)

	// A replaced instruction cannot be replaced again.
	_, err = service.ReplaceInstruction(original.InstructionID)
	assert.Error(t, err)
}

func TestDatabaseReplaceRollsBackWhenOriginalMissing(t *testing.T) {
	db := setupTestDB(t)
	store := NewDatabase(db)

	replacement := &PassthroughInstruction{
		InstructionID:         "PTI_replacement",
		ClearingInstructionID: "CLI_test",
		TotalAmount:           dec("100"),
		Status:                types.InstructionPending,
		Details: []PassthroughDetail{{
			DetailID:      "PTD_replacement",
			InstructionID: "PTI_replacement",
			DetailType:    types.PassthroughDirect,
			FromEntity:    "A",
			ToEntity:      "B",
			Amount:        dec("100"),
			Currency:      "CNY",
			Status:        types.DetailPending,
		}},
	}

	err := store.ReplacePassthroughInstruction(replacement, "PTI_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// The correction must not survive the failed mark.
	var count int64
	require.NoError(t, db.Model(&PassthroughInstruction{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&PassthroughDetail{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRetentionAmountNegativeValueClampsToZero(t *testing.T) {
	kept := retentionAmount(dec("100"), RouteHop{
		RetentionType:  types.RetentionFixed,
		RetentionValue: dec("-10"),
	})
	assert.True(t, kept.Equal(decimal.Zero))
}

package netting

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ksred/freight-clearing-api/internal/routing"
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
		&routing.PassthroughInstruction{},
		&routing.PassthroughDetail{},
		&NettingRule{},
		&NettingResult{},
	))
	return db
}

func seedBatch(t *testing.T, db *gorm.DB, batchID string) {
	t.Helper()
	instruction := &routing.PassthroughInstruction{
		InstructionID:         batchID,
		ClearingInstructionID: "CLI_test",
		TotalAmount:           dec("800"),
		Status:                types.InstructionCompleted,
		Details: []routing.PassthroughDetail{
			{
				DetailID:       "PTD_1",
				InstructionID:  batchID,
				DetailType:     types.PassthroughRouting,
				FromEntity:     "ALPHA",
				ToEntity:       "BETA",
				Amount:         dec("500"),
				Currency:       "CNY",
				ExecutionOrder: 1,
				Status:         types.DetailCompleted,
			},
			{
				DetailID:       "PTD_2",
				InstructionID:  batchID,
				DetailType:     types.PassthroughRouting,
				FromEntity:     "BETA",
				ToEntity:       "ALPHA",
				Amount:         dec("300"),
				Currency:       "CNY",
				ExecutionOrder: 2,
				Status:         types.DetailCompleted,
			},
		},
	}
	require.NoError(t, routing.NewDatabase(db).CreatePassthroughInstruction(instruction))
}

func TestServiceCreateRuleValidation(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, false)

	err := service.CreateRule(&NettingRule{TargetEntityID: "B", NettingMode: types.NettingFull})
	assert.Error(t, err, "missing entity must fail")

	err = service.CreateRule(&NettingRule{
		PassthroughEntityID: "A", TargetEntityID: "A", NettingMode: types.NettingFull,
	})
	assert.Error(t, err, "identical entities must fail")

	err = service.CreateRule(&NettingRule{
		PassthroughEntityID: "A", TargetEntityID: "B", NettingMode: "HALF_NETTING",
	})
	assert.Error(t, err, "unknown mode must fail")

	rule := &NettingRule{
		PassthroughEntityID: "A", TargetEntityID: "B", NettingMode: types.NettingFull,
	}
	require.NoError(t, service.CreateRule(rule))
	assert.True(t, strings.HasPrefix(rule.RuleID, "NTR_"))
	assert.Equal(t, types.DefaultCurrency, rule.Currency)
	assert.Equal(t, types.RuleActive, rule.Status)
}

func TestServiceCreateRuleRejectsPairConflict(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, false)

	require.NoError(t, service.CreateRule(&NettingRule{
		PassthroughEntityID: "A", TargetEntityID: "B", NettingMode: types.NettingFull,
	}))

	// The same pair in reverse direction is still a conflict.
	err := service.CreateRule(&NettingRule{
		PassthroughEntityID: "B", TargetEntityID: "A", NettingMode: types.NettingSeparatePayments,
	})
	assert.Error(t, err)
}

func TestServiceRunBatch(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, false)
	seedBatch(t, db, "PTI_batch")

	require.NoError(t, service.CreateRule(&NettingRule{
		PassthroughEntityID: "ALPHA", TargetEntityID: "BETA",
		Currency: "CNY", NettingMode: types.NettingFull,
	}))

	run, err := service.RunBatch("PTI_batch")
	require.NoError(t, err)
	assert.Equal(t, "PTI_batch", run.BatchID)
	assert.Equal(t, 2, run.TransactionsScanned)
	assert.Equal(t, 1, run.ResultsEmitted)
	assert.Equal(t, 1, run.TotalSavedCount)
	assert.True(t, run.TotalSavedAmount.Equal(dec("600")))
	assert.False(t, run.OriginalsSuppressed)

	require.Len(t, run.Results, 1)
	assert.True(t, strings.HasPrefix(run.Results[0].ResultID, "NET_"))

	// Results are persisted under the batch.
	stored, err := service.GetResults("PTI_batch")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].NetAmount.Equal(dec("200")))

	// Without suppression the originals stay untouched.
	details, err := routing.NewDatabase(db).GetPassthroughDetails("PTI_batch")
	require.NoError(t, err)
	for _, d := range details {
		assert.Empty(t, d.NettedBy)
	}
}

func TestServiceRunBatchSuppressesOriginals(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, true)
	seedBatch(t, db, "PTI_batch")

	require.NoError(t, service.CreateRule(&NettingRule{
		PassthroughEntityID: "ALPHA", TargetEntityID: "BETA",
		Currency: "CNY", NettingMode: types.NettingFull,
	}))

	run, err := service.RunBatch("PTI_batch")
	require.NoError(t, err)
	assert.True(t, run.OriginalsSuppressed)

	details, err := routing.NewDatabase(db).GetPassthroughDetails("PTI_batch")
	require.NoError(t, err)
	require.Len(t, details, 2)
	for _, d := range details {
		assert.Equal(t, run.Results[0].ResultID, d.NettedBy)
	}
}

func TestServiceRunBatchEmptyBatch(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, false)

	_, err := service.RunBatch("PTI_missing")
	assert.Error(t, err)
}

func TestServiceRunBatchNoOffsettingFlows(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, false)

	instruction := &routing.PassthroughInstruction{
		InstructionID: "PTI_oneway",
		TotalAmount:   dec("500"),
		Status:        types.InstructionCompleted,
		Details: []routing.PassthroughDetail{{
			DetailID:      "PTD_1",
			InstructionID: "PTI_oneway",
			DetailType:    types.PassthroughRouting,
			FromEntity:    "ALPHA",
			ToEntity:      "BETA",
			Amount:        dec("500"),
			Currency:      "CNY",
			Status:        types.DetailCompleted,
		}},
	}
	require.NoError(t, routing.NewDatabase(db).CreatePassthroughInstruction(instruction))

	run, err := service.RunBatch("PTI_oneway")
	require.NoError(t, err)
	assert.Zero(t, run.ResultsEmitted)
	assert.True(t, run.TotalSavedAmount.IsZero())
}

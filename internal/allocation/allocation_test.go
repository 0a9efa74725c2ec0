package allocation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ksred/freight-clearing-api/internal/types"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.ProfitAllocation{}))
	return db
}

func TestIngestAllocations(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	allocations := []types.ProfitAllocation{
		{
			OrderID:         "ORD-1",
			CalculationID:   "CALC-1",
			DepartmentID:    "DEPT_OCEAN",
			ExternalRevenue: decPtr("1000"),
		},
		{
			OrderID:       "ORD-1",
			CalculationID: "CALC-1",
			DepartmentID:  "DEPT_AIR",
			ExternalCost:  decPtr("400"),
			Currency:      "USD",
		},
	}
	require.NoError(t, service.IngestAllocations(allocations))

	stored, err := service.GetAllocations("ORD-1", "CALC-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)

	// Missing currency defaults, explicit currency survives.
	assert.Equal(t, types.DefaultCurrency, stored[0].Currency)
	assert.Equal(t, "USD", stored[1].Currency)
}

func TestIngestAllocationsRequiresIdentifiers(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	err := service.IngestAllocations([]types.ProfitAllocation{{DepartmentID: "DEPT_OCEAN"}})
	assert.Error(t, err)
}

func TestGetAllocationsScopedToBatch(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	require.NoError(t, service.IngestAllocations([]types.ProfitAllocation{
		{OrderID: "ORD-1", CalculationID: "CALC-1", DepartmentID: "DEPT_OCEAN"},
		{OrderID: "ORD-1", CalculationID: "CALC-2", DepartmentID: "DEPT_OCEAN"},
		{OrderID: "ORD-2", CalculationID: "CALC-1", DepartmentID: "DEPT_AIR"},
	}))

	stored, err := service.GetAllocations("ORD-1", "CALC-1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestValidateReconciliation(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	require.NoError(t, service.IngestAllocations([]types.ProfitAllocation{{
		OrderID:         "ORD-1",
		CalculationID:   "CALC-1",
		DepartmentID:    "DEPT_OCEAN",
		ExternalRevenue: decPtr("1000"),
		ExternalCost:    decPtr("400"),
		InternalPayment: decPtr("100"),
	}}))

	// 1000 - 400 - 100 = 500 profit.
	discrepancies, err := service.ValidateReconciliation("ORD-1", "CALC-1", map[string]decimal.Decimal{
		"DEPT_OCEAN": dec("500"),
	})
	require.NoError(t, err)
	assert.Empty(t, discrepancies)

	discrepancies, err = service.ValidateReconciliation("ORD-1", "CALC-1", map[string]decimal.Decimal{
		"DEPT_OCEAN": dec("600"),
	})
	require.NoError(t, err)
	require.Len(t, discrepancies, 1)
	assert.Contains(t, discrepancies[0], "DEPT_OCEAN")
}

package allocation

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ksred/freight-clearing-api/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// CreateAllocations stores a calculation batch's allocation records.
func (d *Database) CreateAllocations(allocations []types.ProfitAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	if err := d.db.Create(&allocations).Error; err != nil {
		return fmt.Errorf("failed to save profit allocations: %w", err)
	}
	return nil
}

// GetAllocations returns the allocation snapshot for an order and
// calculation batch in insertion order.
func (d *Database) GetAllocations(orderID, calculationID string) ([]types.ProfitAllocation, error) {
	var allocations []types.ProfitAllocation
	if err := d.db.Where("order_id = ? AND calculation_id = ?", orderID, calculationID).
		Order("id ASC").
		Find(&allocations).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch profit allocations: %w", err)
	}
	return allocations, nil
}

package clearing

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ksred/freight-clearing-api/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// CreateInstruction persists an instruction together with its details
// in one transaction.
func (d *Database) CreateInstruction(instruction *ClearingInstruction) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Omit("Details").Create(instruction).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save clearing instruction: %w", err)
	}
	for i := range instruction.Details {
		if err := tx.Create(&instruction.Details[i]).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save clearing detail: %w", err)
		}
	}

	return tx.Commit().Error
}

func (d *Database) GetInstruction(instructionID string) (*ClearingInstruction, error) {
	var instruction ClearingInstruction
	if err := d.db.Where("instruction_id = ?", instructionID).First(&instruction).Error; err != nil {
		return nil, err
	}
	details, err := d.GetDetails(instructionID)
	if err != nil {
		return nil, err
	}
	instruction.Details = details
	return &instruction, nil
}

// GetDetails returns an instruction's details in execution order,
// insertion sequence breaking ties.
func (d *Database) GetDetails(instructionID string) ([]ClearingDetail, error) {
	var details []ClearingDetail
	if err := d.db.Where("instruction_id = ?", instructionID).
		Order("execution_order ASC, sequence ASC").
		Find(&details).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch clearing details: %w", err)
	}
	return details, nil
}

func (d *Database) GetInstructionsByOrder(orderID string) ([]ClearingInstruction, error) {
	var instructions []ClearingInstruction
	if err := d.db.Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&instructions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch instructions for order: %w", err)
	}
	return instructions, nil
}

func (d *Database) UpdateInstructionStatus(instructionID string, status types.InstructionStatus) error {
	result := d.db.Model(&ClearingInstruction{}).
		Where("instruction_id = ?", instructionID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateDetailStatus records a detail's execution outcome. Details are
// append-once: only status and message ever change after creation.
func (d *Database) UpdateDetailStatus(detailID string, status types.DetailStatus, message string) error {
	result := d.db.Model(&ClearingDetail{}).
		Where("detail_id = ?", detailID).
		Updates(map[string]interface{}{
			"status":     status,
			"message":    message,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

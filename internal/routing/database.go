package routing

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ksred/freight-clearing-api/internal/clearing"
	"github.com/ksred/freight-clearing-api/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// CreateRule stores a routing rule after checking that no active rule
// already claims the same payer/payee/currency/priority. Duplicates
// would make matching ambiguous, so they are rejected up front.
func (d *Database) CreateRule(rule *RoutingRule) error {
	var count int64
	if err := d.db.Model(&RoutingRule{}).
		Where("payer_entity_id = ? AND payee_entity_id = ? AND currency = ? AND priority = ? AND status = ?",
			rule.PayerEntityID, rule.PayeeEntityID, rule.Currency, rule.Priority, types.RuleActive).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check for conflicting routing rules: %w", err)
	}
	if count > 0 && rule.Status == types.RuleActive {
		return fmt.Errorf("%w: payer=%s payee=%s currency=%s priority=%d",
			ErrAmbiguousPriority, rule.PayerEntityID, rule.PayeeEntityID, rule.Currency, rule.Priority)
	}
	return d.db.Create(rule).Error
}

// GetRules returns the full rule snapshot. Matching filters by status
// and effective dates in memory; the rule set is small.
func (d *Database) GetRules() ([]RoutingRule, error) {
	var rules []RoutingRule
	if err := d.db.Order("priority ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch routing rules: %w", err)
	}
	return rules, nil
}

// GetClearingInstruction loads the clearing instruction the generator
// routes, with details in execution order.
func (d *Database) GetClearingInstruction(instructionID string) (*clearing.ClearingInstruction, error) {
	var instruction clearing.ClearingInstruction
	if err := d.db.Where("instruction_id = ?", instructionID).First(&instruction).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch clearing instruction: %w", err)
	}
	var details []clearing.ClearingDetail
	if err := d.db.Where("instruction_id = ?", instructionID).
		Order("execution_order ASC, sequence ASC").
		Find(&details).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch clearing details: %w", err)
	}
	instruction.Details = details
	return &instruction, nil
}

// CreatePassthroughInstruction persists an instruction with its details
// in one transaction.
func (d *Database) CreatePassthroughInstruction(instruction *PassthroughInstruction) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := createInstruction(tx, instruction); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// ReplacePassthroughInstruction persists a correction and marks the
// instruction it supersedes REPLACED in the same transaction. A failed
// mark rolls the correction back, so the two records never diverge.
func (d *Database) ReplacePassthroughInstruction(replacement *PassthroughInstruction, replacedID string) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := createInstruction(tx, replacement); err != nil {
		tx.Rollback()
		return err
	}

	result := tx.Model(&PassthroughInstruction{}).
		Where("instruction_id = ?", replacedID).
		Updates(map[string]interface{}{
			"status":      types.InstructionReplaced,
			"replaced_by": replacement.InstructionID,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		tx.Rollback()
		return result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return gorm.ErrRecordNotFound
	}

	return tx.Commit().Error
}

func createInstruction(tx *gorm.DB, instruction *PassthroughInstruction) error {
	if err := tx.Omit("Details").Create(instruction).Error; err != nil {
		return fmt.Errorf("failed to save passthrough instruction: %w", err)
	}
	for i := range instruction.Details {
		if err := tx.Create(&instruction.Details[i]).Error; err != nil {
			return fmt.Errorf("failed to save passthrough detail: %w", err)
		}
	}
	return nil
}

func (d *Database) GetPassthroughInstruction(instructionID string) (*PassthroughInstruction, error) {
	var instruction PassthroughInstruction
	if err := d.db.Where("instruction_id = ?", instructionID).First(&instruction).Error; err != nil {
		return nil, err
	}
	details, err := d.GetPassthroughDetails(instructionID)
	if err != nil {
		return nil, err
	}
	instruction.Details = details
	return &instruction, nil
}

// GetPassthroughDetails returns details in execution order.
func (d *Database) GetPassthroughDetails(instructionID string) ([]PassthroughDetail, error) {
	var details []PassthroughDetail
	if err := d.db.Where("instruction_id = ?", instructionID).
		Order("execution_order ASC, id ASC").
		Find(&details).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch passthrough details: %w", err)
	}
	return details, nil
}

func (d *Database) UpdatePassthroughStatus(instructionID string, status types.InstructionStatus) error {
	result := d.db.Model(&PassthroughInstruction{}).
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

func (d *Database) UpdatePassthroughDetailStatus(detailID string, status types.DetailStatus, message string) error {
	result := d.db.Model(&PassthroughDetail{}).
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

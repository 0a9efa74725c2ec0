package netting

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ksred/freight-clearing-api/internal/routing"
	"github.com/ksred/freight-clearing-api/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateRule(rule *NettingRule) error {
	return d.db.Create(rule).Error
}

func (d *Database) GetRules() ([]NettingRule, error) {
	var rules []NettingRule
	if err := d.db.Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch netting rules: %w", err)
	}
	return rules, nil
}

// GetBatchTransactions loads a passthrough instruction's details in
// execution order; the engine filters retention entries itself.
func (d *Database) GetBatchTransactions(batchID string) ([]routing.PassthroughDetail, error) {
	var details []routing.PassthroughDetail
	if err := d.db.Where("instruction_id = ?", batchID).
		Order("execution_order ASC, id ASC").
		Find(&details).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch batch transactions: %w", err)
	}
	return details, nil
}

// SaveResults persists a netting run's results in one transaction,
// optionally marking the netted originals as superseded.
func (d *Database) SaveResults(results []NettingResult, suppressed map[string]string) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for i := range results {
		if err := tx.Create(&results[i]).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save netting result: %w", err)
		}
	}

	for detailID, resultID := range suppressed {
		if err := tx.Model(&routing.PassthroughDetail{}).
			Where("detail_id = ?", detailID).
			Updates(map[string]interface{}{
				"netted_by":  resultID,
				"updated_at": time.Now(),
			}).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to mark detail %s netted: %w", detailID, err)
		}
	}

	return tx.Commit().Error
}

func (d *Database) GetResultsByBatch(batchID string) ([]NettingResult, error) {
	var results []NettingResult
	if err := d.db.Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch netting results: %w", err)
	}
	return results, nil
}

// checkRuleConflict rejects a second active rule for the same pair and
// currency in either direction.
func (d *Database) checkRuleConflict(rule *NettingRule) error {
	var count int64
	if err := d.db.Model(&NettingRule{}).
		Where("currency = ? AND status = ?", rule.Currency, types.RuleActive).
		Where("(passthrough_entity_id = ? AND target_entity_id = ?) OR (passthrough_entity_id = ? AND target_entity_id = ?)",
			rule.PassthroughEntityID, rule.TargetEntityID, rule.TargetEntityID, rule.PassthroughEntityID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check for conflicting netting rules: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("an active netting rule already covers %s/%s in %s",
			rule.PassthroughEntityID, rule.TargetEntityID, rule.Currency)
	}
	return nil
}

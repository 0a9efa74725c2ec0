package migrations

import (
	"gorm.io/gorm"

	"github.com/ksred/freight-clearing-api/internal/netting"
)

// AddNettingTables creates the netting rule and result tables with
// lookup indexes.
func AddNettingTables(db *gorm.DB) error {
	if err := db.AutoMigrate(&netting.NettingRule{}, &netting.NettingResult{}); err != nil {
		return err
	}

	indexes := []string{
		// Composite index for pair lookups in either direction
		`CREATE INDEX IF NOT EXISTS idx_netting_rules_pair
		 ON netting_rules(passthrough_entity_id, target_entity_id, currency, status)`,

		// Index for batch result queries
		`CREATE INDEX IF NOT EXISTS idx_netting_results_batch
		 ON netting_results(batch_id)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}

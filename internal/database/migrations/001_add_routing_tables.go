package migrations

import (
	"gorm.io/gorm"

	"github.com/ksred/freight-clearing-api/internal/routing"
)

// AddRoutingTables creates the routing rule and passthrough tables with
// the indexes the matcher and executor query on.
func AddRoutingTables(db *gorm.DB) error {
	if err := db.AutoMigrate(&routing.RoutingRule{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&routing.PassthroughInstruction{}, &routing.PassthroughDetail{}); err != nil {
		return err
	}

	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// Composite index for rule matching lookups
		`CREATE INDEX IF NOT EXISTS idx_routing_rules_match
		 ON routing_rules(payer_entity_id, payee_entity_id, currency, status)`,

		// Index for execution-ordered detail scans
		`CREATE INDEX IF NOT EXISTS idx_passthrough_details_exec
		 ON passthrough_details(instruction_id, execution_order)`,

		// Index for instruction status filtering
		`CREATE INDEX IF NOT EXISTS idx_passthrough_instructions_status
		 ON passthrough_instructions(status)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}

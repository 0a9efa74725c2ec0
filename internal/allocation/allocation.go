package allocation

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ksred/freight-clearing-api/internal/types"
	"github.com/ksred/freight-clearing-api/pkg/response"
)

// Service is the read side of the upstream profit-sharing calculation.
// The clearing engine treats allocation records as an immutable
// snapshot once read.
type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{db: NewDatabase(gormDB)}
}

// IngestAllocations stores a batch of allocation records from the
// profit-sharing system.
func (s *Service) IngestAllocations(allocations []types.ProfitAllocation) error {
	logger := log.With().Str("service", "allocation").Logger()

	for i := range allocations {
		if allocations[i].OrderID == "" || allocations[i].CalculationID == "" {
			return fmt.Errorf("allocation %d missing order or calculation id", i)
		}
		if allocations[i].Currency == "" {
			allocations[i].Currency = types.DefaultCurrency
		}
	}

	if err := s.db.CreateAllocations(allocations); err != nil {
		logger.Error().Err(err).Msg("failed to ingest allocations")
		return err
	}

	logger.Info().Int("count", len(allocations)).Msg("profit allocations ingested")
	return nil
}

// GetAllocations satisfies clearing.AllocationSource.
func (s *Service) GetAllocations(orderID, calculationID string) ([]types.ProfitAllocation, error) {
	return s.db.GetAllocations(orderID, calculationID)
}

// ValidateReconciliation checks that a department's revenue, cost and
// internal payment entries reconcile to the declared profit:
// revenue - cost - internal payment == declaredProfit. This is a
// validation report, not a construction guard; clearing still builds
// from whatever figures are present.
func (s *Service) ValidateReconciliation(orderID, calculationID string, declaredProfits map[string]decimal.Decimal) ([]string, error) {
	allocations, err := s.db.GetAllocations(orderID, calculationID)
	if err != nil {
		return nil, err
	}

	byDepartment := make(map[string]decimal.Decimal)
	for _, alloc := range allocations {
		profit := types.AmountOrZero(alloc.ExternalRevenue).
			Sub(types.AmountOrZero(alloc.ExternalCost)).
			Sub(types.AmountOrZero(alloc.InternalPayment))
		byDepartment[alloc.DepartmentID] = byDepartment[alloc.DepartmentID].Add(profit)
	}

	var discrepancies []string
	for departmentID, declared := range declaredProfits {
		computed := byDepartment[departmentID]
		if !computed.Equal(declared) {
			discrepancies = append(discrepancies, fmt.Sprintf(
				"department %s: computed profit %s does not match declared %s",
				departmentID, computed.String(), declared.String()))
		}
	}
	return discrepancies, nil
}

// GinHandlers contains HTTP handlers for allocation endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// IngestHandler handles POST requests that feed allocation batches into
// the engine. Request body: a JSON array of allocation records.
func (h *GinHandlers) IngestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var allocations []types.ProfitAllocation
		if err := c.ShouldBindJSON(&allocations); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if len(allocations) == 0 {
			response.BadRequest(c, "at least one allocation is required")
			return
		}

		if err := h.service.IngestAllocations(allocations); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{"ingested": len(allocations)})
	}
}

// GetAllocationsHandler returns the stored snapshot for an order and
// calculation batch.
func (h *GinHandlers) GetAllocationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		allocations, err := h.service.GetAllocations(c.Param("order_id"), c.Param("calculation_id"))
		response.Handle(c, allocations, err)
	}
}

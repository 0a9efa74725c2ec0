package clearing

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/freight-clearing-api/internal/types"
	"github.com/ksred/freight-clearing-api/pkg/response"
)

// AllocationSource supplies the per-department profit figures the
// builder consumes. Satisfied by the allocation store.
type AllocationSource interface {
	GetAllocations(orderID, calculationID string) ([]types.ProfitAllocation, error)
}

// Service builds and stores clearing instructions.
type Service struct {
	db          *Database
	allocations AllocationSource
}

// NewService creates a new clearing service with the given database
// connection and allocation source.
func NewService(gormDB *gorm.DB, allocations AllocationSource) *Service {
	return &Service{
		db:          NewDatabase(gormDB),
		allocations: allocations,
	}
}

// CreateInstruction fetches the order's profit allocations, builds an
// instruction in the requested mode and persists it. Re-running the
// same order and calculation creates a fresh instruction; earlier ones
// are never edited in place.
func (s *Service) CreateInstruction(orderID, calculationID string, mode types.ClearingMode) (*InstructionResponse, error) {
	logger := log.With().
		Str("order_id", orderID).
		Str("calculation_id", calculationID).
		Str("clearing_mode", string(mode)).
		Str("service", "clearing").
		Logger()

	logger.Info().Msg("building clearing instruction")

	allocations, err := s.allocations.GetAllocations(orderID, calculationID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch profit allocations")
		return nil, fmt.Errorf("failed to fetch profit allocations: %w", err)
	}
	if len(allocations) == 0 {
		return nil, fmt.Errorf("no profit allocations found for order %s calculation %s", orderID, calculationID)
	}

	instruction, err := BuildInstruction(orderID, calculationID, mode, allocations)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build clearing instruction")
		return nil, err
	}

	instruction.InstructionID = "CLI_" + uuid.New().String()
	for i := range instruction.Details {
		instruction.Details[i].DetailID = "CLD_" + uuid.New().String()
		instruction.Details[i].InstructionID = instruction.InstructionID
	}

	if err := s.db.CreateInstruction(instruction); err != nil {
		logger.Error().Err(err).Msg("failed to save clearing instruction")
		return nil, err
	}

	logger.Info().
		Str("instruction_id", instruction.InstructionID).
		Int("detail_count", len(instruction.Details)).
		Str("clearing_amount", instruction.ClearingAmount.String()).
		Msg("clearing instruction created")

	return s.toResponse(instruction), nil
}

// GetInstruction retrieves an instruction with its ordered details.
func (s *Service) GetInstruction(instructionID string) (*InstructionResponse, error) {
	instruction, err := s.db.GetInstruction(instructionID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(instruction), nil
}

// GetInstructionsByOrder lists all instructions layered on an order,
// newest first.
func (s *Service) GetInstructionsByOrder(orderID string) ([]ClearingInstruction, error) {
	return s.db.GetInstructionsByOrder(orderID)
}

// GetDB exposes the store for the execution engine.
func (s *Service) GetDB() *Database {
	return s.db
}

func (s *Service) toResponse(instruction *ClearingInstruction) *InstructionResponse {
	return &InstructionResponse{
		InstructionID:  instruction.InstructionID,
		OrderID:        instruction.OrderID,
		CalculationID:  instruction.CalculationID,
		ClearingMode:   instruction.ClearingMode,
		ClearingAmount: instruction.ClearingAmount,
		Status:         instruction.Status,
		DetailCount:    len(instruction.Details),
		Details:        instruction.Details,
		Timestamp:      time.Now(),
	}
}

// GinHandlers contains HTTP handlers for clearing endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// BuildInstructionHandler handles POST requests to build a clearing
// instruction from an order's profit allocations.
// URL parameters: order_id, calculation_id
// Request body: {"clearing_mode": "STAR" | "CHAIN"}
func (h *GinHandlers) BuildInstructionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			ClearingMode types.ClearingMode `json:"clearing_mode" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if !request.ClearingMode.Valid() {
			response.BadRequest(c, "clearing_mode must be STAR or CHAIN")
			return
		}

		instruction, err := h.service.CreateInstruction(
			c.Param("order_id"),
			c.Param("calculation_id"),
			request.ClearingMode,
		)
		response.Handle(c, instruction, err)
	}
}

func (h *GinHandlers) GetInstructionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		instruction, err := h.service.GetInstruction(c.Param("instruction_id"))
		response.Handle(c, instruction, err)
	}
}

func (h *GinHandlers) GetOrderInstructionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		instructions, err := h.service.GetInstructionsByOrder(c.Param("order_id"))
		response.Handle(c, instructions, err)
	}
}

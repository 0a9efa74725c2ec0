package routing

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

// Service matches routing rules and generates passthrough instructions
// from built clearing instructions.
type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{db: NewDatabase(gormDB)}
}

// CreateRule validates and stores a routing rule.
func (s *Service) CreateRule(rule *RoutingRule) error {
	logger := log.With().
		Str("payer", rule.PayerEntityID).
		Str("payee", rule.PayeeEntityID).
		Str("currency", rule.Currency).
		Str("service", "routing").
		Logger()

	if rule.PayerEntityID == "" || rule.PayeeEntityID == "" {
		return fmt.Errorf("payer and payee entity ids are required")
	}
	if rule.Hop1EntityID == "" {
		return fmt.Errorf("a routing rule needs at least one hop")
	}
	if rule.Hop2EntityID != "" && rule.Hop2EntityID == rule.Hop1EntityID {
		return fmt.Errorf("hop entities must differ")
	}
	if rule.Currency == "" {
		rule.Currency = types.DefaultCurrency
	}
	if rule.Status == "" {
		rule.Status = types.RuleActive
	}
	if rule.EffectiveFrom.IsZero() {
		rule.EffectiveFrom = time.Now()
	}
	rule.RuleID = "RTR_" + uuid.New().String()

	if err := s.db.CreateRule(rule); err != nil {
		logger.Error().Err(err).Msg("failed to create routing rule")
		return err
	}

	logger.Info().
		Str("rule_id", rule.RuleID).
		Int("priority", rule.Priority).
		Int("hops", len(rule.Hops())).
		Msg("routing rule created")
	return nil
}

func (s *Service) GetRules() ([]RoutingRule, error) {
	return s.db.GetRules()
}

// GeneratePassthrough routes every detail of a built clearing
// instruction: details with a matching rule walk the rule's hops with
// per-hop retentions, the rest fall through as direct transfers. The
// result is a new passthrough instruction layered on the clearing
// instruction; generation never mutates the clearing records.
func (s *Service) GeneratePassthrough(clearingInstructionID string) (*PassthroughResponse, error) {
	logger := log.With().
		Str("clearing_instruction_id", clearingInstructionID).
		Str("service", "routing").
		Logger()

	logger.Info().Msg("generating passthrough instruction")

	instruction, err := s.buildPassthrough(clearingInstructionID)
	if err != nil {
		return nil, err
	}

	if err := s.db.CreatePassthroughInstruction(instruction); err != nil {
		logger.Error().Err(err).Msg("failed to save passthrough instruction")
		return nil, err
	}

	logger.Info().
		Str("instruction_id", instruction.InstructionID).
		Int("detail_count", len(instruction.Details)).
		Str("total_amount", instruction.TotalAmount.String()).
		Msg("passthrough instruction generated")

	return s.toResponse(instruction), nil
}

// buildPassthrough assembles the passthrough instruction without
// persisting it. Clearing details arrive in execution order; the rank
// in that order seeds each detail's execution-order range so the mode's
// settlement sequence survives routing.
func (s *Service) buildPassthrough(clearingInstructionID string) (*PassthroughInstruction, error) {
	logger := log.With().
		Str("clearing_instruction_id", clearingInstructionID).
		Str("service", "routing").
		Logger()

	source, err := s.db.GetClearingInstruction(clearingInstructionID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load clearing instruction")
		return nil, err
	}

	rules, err := s.db.GetRules()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load routing rules")
		return nil, err
	}

	instruction := &PassthroughInstruction{
		InstructionID:         "PTI_" + uuid.New().String(),
		ClearingInstructionID: clearingInstructionID,
		TotalAmount:           source.ClearingAmount,
		Status:                types.InstructionPending,
	}

	now := time.Now()
	for rank, detail := range source.Details {
		rule, err := Match(rules, detail.FromEntity, detail.ToEntity, detail.Currency, now)
		if err != nil {
			// Ambiguous rule configuration poisons the whole generation:
			// routing half an instruction would break conservation auditing.
			logger.Error().Err(err).Str("detail_id", detail.DetailID).Msg("routing rule match failed")
			return nil, err
		}

		generated, err := GeneratePassthrough(SourceTransaction{
			DetailID:      detail.DetailID,
			FromEntity:    detail.FromEntity,
			ToEntity:      detail.ToEntity,
			Amount:        detail.Amount,
			Currency:      detail.Currency,
			ExecutionRank: rank,
		}, rule)
		if err != nil {
			logger.Error().Err(err).Str("detail_id", detail.DetailID).Msg("passthrough generation failed")
			return nil, err
		}

		for i := range generated {
			generated[i].DetailID = "PTD_" + uuid.New().String()
			generated[i].InstructionID = instruction.InstructionID
		}
		instruction.Details = append(instruction.Details, generated...)
	}

	return instruction, nil
}

// ReplaceInstruction regenerates the passthrough for an instruction's
// clearing source, marking the old instruction REPLACED and linking the
// correction. Used when rules changed after generation; the original
// records stay for audit.
func (s *Service) ReplaceInstruction(instructionID string) (*PassthroughResponse, error) {
	logger := log.With().
		Str("instruction_id", instructionID).
		Str("service", "routing").
		Logger()

	old, err := s.db.GetPassthroughInstruction(instructionID)
	if err != nil {
		return nil, err
	}
	if old.Status == types.InstructionReplaced {
		return nil, fmt.Errorf("instruction %s is already replaced by %s", instructionID, old.ReplacedBy)
	}

	replacement, err := s.buildPassthrough(old.ClearingInstructionID)
	if err != nil {
		return nil, err
	}

	// The correction and the REPLACED mark commit together; a failure
	// leaves the original live and nothing half-replaced.
	if err := s.db.ReplacePassthroughInstruction(replacement, instructionID); err != nil {
		logger.Error().Err(err).Msg("failed to replace instruction")
		return nil, err
	}

	logger.Info().
		Str("replaced_by", replacement.InstructionID).
		Msg("passthrough instruction replaced")
	return s.toResponse(replacement), nil
}

// GetInstruction retrieves a passthrough instruction with details.
func (s *Service) GetInstruction(instructionID string) (*PassthroughResponse, error) {
	instruction, err := s.db.GetPassthroughInstruction(instructionID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(instruction), nil
}

// GetDB exposes the store for the execution engine.
func (s *Service) GetDB() *Database {
	return s.db
}

func (s *Service) toResponse(instruction *PassthroughInstruction) *PassthroughResponse {
	return &PassthroughResponse{
		InstructionID:         instruction.InstructionID,
		ClearingInstructionID: instruction.ClearingInstructionID,
		TotalAmount:           instruction.TotalAmount,
		Status:                instruction.Status,
		DetailCount:           len(instruction.Details),
		Details:               instruction.Details,
		Timestamp:             time.Now(),
	}
}

// GinHandlers contains HTTP handlers for routing endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// CreateRuleHandler handles POST requests to register routing rules.
func (h *GinHandlers) CreateRuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var rule RoutingRule
		if err := c.ShouldBindJSON(&rule); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		if err := h.service.CreateRule(&rule); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, rule)
	}
}

func (h *GinHandlers) ListRulesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rules, err := h.service.GetRules()
		response.Handle(c, rules, err)
	}
}

// GeneratePassthroughHandler handles POST requests to route a built
// clearing instruction.
// URL parameter: instruction_id (the clearing instruction)
func (h *GinHandlers) GeneratePassthroughHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.service.GeneratePassthrough(c.Param("instruction_id"))
		response.Handle(c, result, err)
	}
}

func (h *GinHandlers) GetPassthroughHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.service.GetInstruction(c.Param("instruction_id"))
		response.Handle(c, result, err)
	}
}

// ReplaceInstructionHandler handles POST requests that supersede a
// passthrough instruction with a freshly generated correction.
func (h *GinHandlers) ReplaceInstructionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.service.ReplaceInstruction(c.Param("instruction_id"))
		response.Handle(c, result, err)
	}
}

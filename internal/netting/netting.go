package netting

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ksred/freight-clearing-api/internal/types"
	"github.com/ksred/freight-clearing-api/pkg/response"
)

func marshalDetailIDs(ids []string) string {
	data, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// Service runs the netting engine over executed passthrough batches.
type Service struct {
	db *Database
	// suppressOriginals marks netted transactions as superseded by their
	// netting result instead of leaving both live. Open product decision,
	// carried as configuration.
	suppressOriginals bool
}

func NewService(gormDB *gorm.DB, suppressOriginals bool) *Service {
	return &Service{
		db:                NewDatabase(gormDB),
		suppressOriginals: suppressOriginals,
	}
}

// CreateRule validates and stores a netting rule.
func (s *Service) CreateRule(rule *NettingRule) error {
	logger := log.With().
		Str("passthrough_entity", rule.PassthroughEntityID).
		Str("target_entity", rule.TargetEntityID).
		Str("service", "netting").
		Logger()

	if rule.PassthroughEntityID == "" || rule.TargetEntityID == "" {
		return fmt.Errorf("both entity ids are required")
	}
	if rule.PassthroughEntityID == rule.TargetEntityID {
		return fmt.Errorf("netting rule entities must differ")
	}
	if rule.NettingMode != types.NettingFull && rule.NettingMode != types.NettingSeparatePayments {
		return fmt.Errorf("invalid netting mode %q", rule.NettingMode)
	}
	if rule.Currency == "" {
		rule.Currency = types.DefaultCurrency
	}
	if rule.Status == "" {
		rule.Status = types.RuleActive
	}
	if rule.Status == types.RuleActive {
		if err := s.db.checkRuleConflict(rule); err != nil {
			return err
		}
	}
	rule.RuleID = "NTR_" + uuid.New().String()

	if err := s.db.CreateRule(rule); err != nil {
		logger.Error().Err(err).Msg("failed to create netting rule")
		return err
	}

	logger.Info().
		Str("rule_id", rule.RuleID).
		Str("netting_mode", string(rule.NettingMode)).
		Msg("netting rule created")
	return nil
}

func (s *Service) GetRules() ([]NettingRule, error) {
	return s.db.GetRules()
}

// RunBatch nets one executed passthrough batch: offsetting pairwise
// flows covered by FULL_NETTING rules collapse into netting results.
// The transaction history itself is never altered; suppression (when
// configured) only links originals to the result that superseded them.
func (s *Service) RunBatch(batchID string) (*NettingRunResponse, error) {
	logger := log.With().
		Str("batch_id", batchID).
		Str("service", "netting").
		Logger()

	logger.Info().Msg("starting netting run")

	transactions, err := s.db.GetBatchTransactions(batchID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch batch transactions")
		return nil, err
	}
	if len(transactions) == 0 {
		return nil, fmt.Errorf("no transactions found for batch %s", batchID)
	}

	rules, err := s.db.GetRules()
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch netting rules")
		return nil, err
	}

	results := NetBatch(transactions, rules)

	suppressed := make(map[string]string)
	totalSaved := decimal.Zero
	totalCount := 0
	for i := range results {
		results[i].ResultID = "NET_" + uuid.New().String()
		results[i].BatchID = batchID
		totalSaved = totalSaved.Add(results[i].SavedAmount)
		totalCount += results[i].SavedTransactionsCount

		if s.suppressOriginals {
			var ids []string
			if err := json.Unmarshal([]byte(results[i].OriginalDetails), &ids); err == nil {
				for _, id := range ids {
					suppressed[id] = results[i].ResultID
				}
			}
		}
	}

	if err := s.db.SaveResults(results, suppressed); err != nil {
		logger.Error().Err(err).Msg("failed to save netting results")
		return nil, err
	}

	logger.Info().
		Int("results_emitted", len(results)).
		Int("transactions_saved", totalCount).
		Str("amount_saved", totalSaved.String()).
		Bool("originals_suppressed", s.suppressOriginals).
		Msg("netting run completed")

	return &NettingRunResponse{
		BatchID:             batchID,
		TransactionsScanned: len(transactions),
		ResultsEmitted:      len(results),
		TotalSavedAmount:    totalSaved,
		TotalSavedCount:     totalCount,
		OriginalsSuppressed: s.suppressOriginals,
		Results:             results,
		Timestamp:           time.Now(),
	}, nil
}

// GetResults lists the netting results recorded for a batch.
func (s *Service) GetResults(batchID string) ([]NettingResult, error) {
	return s.db.GetResultsByBatch(batchID)
}

// GinHandlers contains HTTP handlers for netting endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

func (h *GinHandlers) CreateRuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var rule NettingRule
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

// RunBatchHandler handles POST requests that net an executed batch.
// URL parameter: batch_id (the passthrough instruction id)
func (h *GinHandlers) RunBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.service.RunBatch(c.Param("batch_id"))
		response.Handle(c, result, err)
	}
}

func (h *GinHandlers) GetResultsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := h.service.GetResults(c.Param("batch_id"))
		response.Handle(c, results, err)
	}
}

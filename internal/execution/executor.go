package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/freight-clearing-api/internal/clearing"
	"github.com/ksred/freight-clearing-api/internal/routing"
	"github.com/ksred/freight-clearing-api/internal/types"
)

// CancelledMessage marks details left pending by a cancelled run.
const CancelledMessage = "execution cancelled before this detail"

// Executor drives clearing and passthrough instructions through the
// settlement adapter. Execution is serialized within an instruction
// (details settle strictly in execution order) and guarded so each
// instruction has at most one run in flight; batches parallelize across
// instructions only.
type Executor struct {
	clearingStore    *clearingStore
	passthroughStore *passthroughStore
	adapter          SettlementAdapter
	locks            *instructionLocks
	workers          int
}

// NewExecutor creates an executor over both instruction stores. workers
// bounds batch parallelism.
func NewExecutor(gormDB *gorm.DB, adapter SettlementAdapter, workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		clearingStore:    &clearingStore{db: clearing.NewDatabase(gormDB)},
		passthroughStore: &passthroughStore{db: routing.NewDatabase(gormDB)},
		adapter:          adapter,
		locks:            newInstructionLocks(),
		workers:          workers,
	}
}

func (e *Executor) storeFor(kind InstructionKind) (instructionStore, error) {
	switch kind {
	case KindClearing:
		return e.clearingStore, nil
	case KindPassthrough:
		return e.passthroughStore, nil
	}
	return nil, fmt.Errorf("invalid instruction kind %q", kind)
}

// ExecuteInstruction runs one instruction through the adapter. With
// dryRun set it computes identical per-detail outcomes and statistics
// but persists no state transition at all.
func (e *Executor) ExecuteInstruction(ctx context.Context, kind InstructionKind, instructionID string, dryRun bool) (*ExecutionResult, error) {
	store, err := e.storeFor(kind)
	if err != nil {
		return nil, err
	}

	logger := log.With().
		Str("instruction_id", instructionID).
		Str("kind", string(kind)).
		Bool("dry_run", dryRun).
		Str("service", "execution").
		Logger()

	if !e.locks.acquire(instructionID) {
		logger.Warn().Msg("rejected concurrent execution attempt")
		return nil, fmt.Errorf("%w: %s", ErrExecutionInProgress, instructionID)
	}
	defer e.locks.release(instructionID)

	view, err := store.loadInstruction(instructionID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load instruction")
		return nil, err
	}

	// Idempotency guard: a completed instruction is never re-processed.
	if view.status == types.InstructionCompleted {
		logger.Info().Msg("instruction already completed, skipping execution")
		return &ExecutionResult{
			InstructionID:    instructionID,
			Kind:             kind,
			DryRun:           dryRun,
			AlreadyCompleted: true,
			Status:           view.status,
			Timestamp:        time.Now(),
		}, nil
	}
	if view.status == types.InstructionReplaced {
		return nil, fmt.Errorf("%w: %s", ErrInstructionReplaced, instructionID)
	}

	logger.Info().Int("detail_count", len(view.details)).Msg("starting instruction execution")

	if !dryRun {
		if err := store.setInstructionStatus(instructionID, types.InstructionProcessing); err != nil {
			logger.Error().Err(err).Msg("failed to mark instruction processing")
			return nil, err
		}
	}

	result := &ExecutionResult{
		InstructionID: instructionID,
		Kind:          kind,
		DryRun:        dryRun,
	}

	for _, detail := range view.details {
		// Cooperative cancellation between details: remaining work is left
		// pending and accounted for, never silently dropped.
		if ctx.Err() != nil {
			result.Cancelled = true
			result.Skipped++
			result.Details = append(result.Details, DetailOutcome{
				DetailID:   detail.detailID,
				DetailType: detail.detailType,
				FromEntity: detail.fromEntity,
				ToEntity:   detail.toEntity,
				Amount:     detail.amount,
				Status:     types.DetailPending,
				Skipped:    true,
				Message:    CancelledMessage,
			})
			continue
		}

		outcome := e.executeDetail(ctx, detail)

		switch {
		case outcome.Skipped:
			result.Skipped++
		case outcome.Status == types.DetailCompleted:
			result.Succeeded++
		default:
			result.Failed++
		}

		if !dryRun && !outcome.Skipped {
			if err := store.setDetailStatus(detail.detailID, outcome.Status, outcome.Message); err != nil {
				logger.Error().Err(err).Str("detail_id", detail.detailID).Msg("failed to record detail status")
				return nil, err
			}
		}

		logger.Debug().
			Str("detail_id", detail.detailID).
			Str("detail_type", detail.detailType).
			Str("status", string(outcome.Status)).
			Bool("skipped", outcome.Skipped).
			Str("message", outcome.Message).
			Msg("detail executed")

		result.Details = append(result.Details, outcome)
	}

	result.Status = terminalStatus(result)
	if !dryRun {
		if err := store.setInstructionStatus(instructionID, result.Status); err != nil {
			logger.Error().Err(err).Msg("failed to record terminal status")
			return nil, err
		}
	}
	result.Timestamp = time.Now()

	logger.Info().
		Str("status", string(result.Status)).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Bool("cancelled", result.Cancelled).
		Msg("instruction execution finished")

	return result, nil
}

// executeDetail runs one detail, never letting a per-detail problem
// escape as an error: failures are recorded on the outcome so the batch
// keeps going.
func (e *Executor) executeDetail(ctx context.Context, detail detailView) DetailOutcome {
	outcome := DetailOutcome{
		DetailID:   detail.detailID,
		DetailType: detail.detailType,
		FromEntity: detail.fromEntity,
		ToEntity:   detail.toEntity,
		Amount:     detail.amount,
	}

	// Already-executed details are immutable; re-runs of a partially
	// completed instruction pick up only the remainder.
	if detail.status == types.DetailCompleted {
		outcome.Status = types.DetailCompleted
		outcome.Skipped = true
		outcome.Message = "already completed"
		return outcome
	}
	if detail.nettedBy != "" {
		outcome.Status = detail.status
		outcome.Skipped = true
		outcome.Message = "superseded by netting result " + detail.nettedBy
		return outcome
	}
	if !detail.typeValid {
		outcome.Status = types.DetailFailed
		outcome.Message = fmt.Sprintf("unknown detail type %q", detail.detailType)
		return outcome
	}

	err := e.adapter.Execute(ctx, Detail{
		DetailID:   detail.detailID,
		DetailType: detail.detailType,
		FromEntity: detail.fromEntity,
		ToEntity:   detail.toEntity,
		Amount:     detail.amount,
		Currency:   detail.currency,
	})
	if err != nil {
		outcome.Status = types.DetailFailed
		outcome.Message = err.Error()
		return outcome
	}

	outcome.Status = types.DetailCompleted
	return outcome
}

// terminalStatus picks the instruction's landing state: every detail
// settled means COMPLETED, a mixed outcome or a cancelled run means
// PARTIALLY_COMPLETED, and nothing settled means FAILED.
func terminalStatus(result *ExecutionResult) types.InstructionStatus {
	if result.Cancelled {
		return types.InstructionPartiallyCompleted
	}
	if result.Failed == 0 {
		return types.InstructionCompleted
	}
	if result.Succeeded > 0 {
		return types.InstructionPartiallyCompleted
	}
	return types.InstructionFailed
}

// ExecuteBatch runs many instructions, parallel across instructions and
// serial within each. Per-instruction errors are collected, not fatal;
// the batch keeps going.
func (e *Executor) ExecuteBatch(ctx context.Context, kind InstructionKind, instructionIDs []string, dryRun bool) (*BatchResult, error) {
	if _, err := e.storeFor(kind); err != nil {
		return nil, err
	}

	logger := log.With().
		Str("kind", string(kind)).
		Bool("dry_run", dryRun).
		Int("instructions", len(instructionIDs)).
		Str("service", "execution").
		Logger()

	logger.Info().Msg("starting batch execution")

	type indexed struct {
		index  int
		result *ExecutionResult
		err    error
	}

	jobs := make(chan int)
	outcomes := make(chan indexed, len(instructionIDs))
	var wg sync.WaitGroup

	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				result, err := e.ExecuteInstruction(ctx, kind, instructionIDs[i], dryRun)
				outcomes <- indexed{index: i, result: result, err: err}
			}
		}()
	}

	for i := range instructionIDs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	ordered := make([]indexed, len(instructionIDs))
	for o := range outcomes {
		ordered[o.index] = o
	}

	batch := &BatchResult{
		Kind:         kind,
		DryRun:       dryRun,
		Instructions: len(instructionIDs),
	}
	for i, o := range ordered {
		if o.err != nil {
			batch.Failed++
			batch.Errors = append(batch.Errors, fmt.Sprintf("%s: %v", instructionIDs[i], o.err))
			continue
		}
		batch.Succeeded++
		batch.Results = append(batch.Results, *o.result)
	}
	batch.Timestamp = time.Now()

	logger.Info().
		Int("succeeded", batch.Succeeded).
		Int("failed", batch.Failed).
		Msg("batch execution finished")

	return batch, nil
}

package execution

import (
	"github.com/shopspring/decimal"

	"github.com/ksred/freight-clearing-api/internal/clearing"
	"github.com/ksred/freight-clearing-api/internal/routing"
	"github.com/ksred/freight-clearing-api/internal/types"
)

// detailView is the executor's uniform view over clearing and
// passthrough details. typeValid is resolved at load time so the
// executor can fail unknown types per detail instead of aborting.
type detailView struct {
	detailID   string
	detailType string
	typeValid  bool
	fromEntity string
	toEntity   string
	amount     decimal.Decimal
	currency   string
	status     types.DetailStatus
	nettedBy   string
}

type instructionView struct {
	instructionID string
	status        types.InstructionStatus
	details       []detailView
}

// instructionStore adapts one instruction family to the executor. Both
// implementations return details already sorted by execution order with
// insertion sequence breaking ties.
type instructionStore interface {
	loadInstruction(instructionID string) (*instructionView, error)
	setInstructionStatus(instructionID string, status types.InstructionStatus) error
	setDetailStatus(detailID string, status types.DetailStatus, message string) error
}

type clearingStore struct {
	db *clearing.Database
}

func (s *clearingStore) loadInstruction(instructionID string) (*instructionView, error) {
	instruction, err := s.db.GetInstruction(instructionID)
	if err != nil {
		return nil, err
	}
	view := &instructionView{
		instructionID: instruction.InstructionID,
		status:        instruction.Status,
	}
	for _, d := range instruction.Details {
		view.details = append(view.details, detailView{
			detailID:   d.DetailID,
			detailType: string(d.DetailType),
			typeValid:  d.DetailType.Valid(),
			fromEntity: d.FromEntity,
			toEntity:   d.ToEntity,
			amount:     d.Amount,
			currency:   d.Currency,
			status:     d.Status,
		})
	}
	return view, nil
}

func (s *clearingStore) setInstructionStatus(instructionID string, status types.InstructionStatus) error {
	return s.db.UpdateInstructionStatus(instructionID, status)
}

func (s *clearingStore) setDetailStatus(detailID string, status types.DetailStatus, message string) error {
	return s.db.UpdateDetailStatus(detailID, status, message)
}

type passthroughStore struct {
	db *routing.Database
}

func (s *passthroughStore) loadInstruction(instructionID string) (*instructionView, error) {
	instruction, err := s.db.GetPassthroughInstruction(instructionID)
	if err != nil {
		return nil, err
	}
	view := &instructionView{
		instructionID: instruction.InstructionID,
		status:        instruction.Status,
	}
	for _, d := range instruction.Details {
		view.details = append(view.details, detailView{
			detailID:   d.DetailID,
			detailType: string(d.DetailType),
			typeValid:  d.DetailType.Valid(),
			fromEntity: d.FromEntity,
			toEntity:   d.ToEntity,
			amount:     d.Amount,
			currency:   d.Currency,
			status:     d.Status,
			nettedBy:   d.NettedBy,
		})
	}
	return view, nil
}

func (s *passthroughStore) setInstructionStatus(instructionID string, status types.InstructionStatus) error {
	return s.db.UpdatePassthroughStatus(instructionID, status)
}

func (s *passthroughStore) setDetailStatus(detailID string, status types.DetailStatus, message string) error {
	return s.db.UpdatePassthroughDetailStatus(detailID, status, message)
}

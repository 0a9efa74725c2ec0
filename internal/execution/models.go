package execution

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ksred/freight-clearing-api/internal/types"
)

var (
	// ErrExecutionInProgress rejects a second concurrent execution of the
	// same instruction.
	ErrExecutionInProgress = errors.New("execution already in progress for instruction")
	// ErrInstructionReplaced rejects execution of a superseded instruction.
	ErrInstructionReplaced = errors.New("instruction has been replaced and cannot be executed")
)

// InstructionKind selects which instruction store an execution targets.
type InstructionKind string

const (
	KindClearing    InstructionKind = "CLEARING"
	KindPassthrough InstructionKind = "PASSTHROUGH"
)

func (k InstructionKind) Valid() bool {
	return k == KindClearing || k == KindPassthrough
}

// DetailOutcome is one detail's execution result within a run.
type DetailOutcome struct {
	DetailID   string             `json:"detail_id"`
	DetailType string             `json:"detail_type"`
	FromEntity string             `json:"from_entity"`
	ToEntity   string             `json:"to_entity"`
	Amount     decimal.Decimal    `json:"amount"`
	Status     types.DetailStatus `json:"status"`
	Skipped    bool               `json:"skipped,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// ExecutionResult reports one instruction run: per-detail outcomes and
// the aggregate the caller renders. Dry runs produce the same shape
// without persisting anything.
type ExecutionResult struct {
	InstructionID    string                  `json:"instruction_id"`
	Kind             InstructionKind         `json:"kind"`
	DryRun           bool                    `json:"dry_run"`
	AlreadyCompleted bool                    `json:"already_completed,omitempty"`
	Cancelled        bool                    `json:"cancelled,omitempty"`
	Status           types.InstructionStatus `json:"status"`
	Succeeded        int                     `json:"succeeded"`
	Failed           int                     `json:"failed"`
	Skipped          int                     `json:"skipped"`
	Details          []DetailOutcome         `json:"details"`
	Timestamp        time.Time               `json:"timestamp"`
}

// BatchResult aggregates one batch execution across instructions.
type BatchResult struct {
	Kind         InstructionKind   `json:"kind"`
	DryRun       bool              `json:"dry_run"`
	Instructions int               `json:"instructions"`
	Succeeded    int               `json:"succeeded"`
	Failed       int               `json:"failed"`
	Results      []ExecutionResult `json:"results"`
	Errors       []string          `json:"errors,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

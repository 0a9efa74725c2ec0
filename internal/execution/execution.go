package execution

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ksred/freight-clearing-api/pkg/response"
)

// GinHandlers contains HTTP handlers for execution endpoints
type GinHandlers struct {
	executor *Executor
}

func NewGinHandlers(executor *Executor) *GinHandlers {
	return &GinHandlers{executor: executor}
}

func dryRunRequested(c *gin.Context) bool {
	return c.Query("dry_run") == "true"
}

func handleExecutionError(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrExecutionInProgress):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrInstructionReplaced):
		response.BadRequest(c, err.Error())
	default:
		response.Handle(c, nil, err)
	}
	return true
}

// ExecuteClearingHandler handles POST requests to execute a clearing
// instruction. Query parameter dry_run=true simulates without
// persisting any state change.
func (h *GinHandlers) ExecuteClearingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.executor.ExecuteInstruction(
			c.Request.Context(), KindClearing, c.Param("instruction_id"), dryRunRequested(c))
		if handleExecutionError(c, err) {
			return
		}
		response.Success(c, result)
	}
}

// ExecutePassthroughHandler handles POST requests to execute a
// passthrough instruction.
func (h *GinHandlers) ExecutePassthroughHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.executor.ExecuteInstruction(
			c.Request.Context(), KindPassthrough, c.Param("instruction_id"), dryRunRequested(c))
		if handleExecutionError(c, err) {
			return
		}
		response.Success(c, result)
	}
}

// ExecuteBatchHandler handles POST requests to execute many
// instructions in one run.
// Request body: {"kind": "CLEARING"|"PASSTHROUGH", "instruction_ids": [...], "dry_run": bool}
func (h *GinHandlers) ExecuteBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Kind           InstructionKind `json:"kind" binding:"required"`
			InstructionIDs []string        `json:"instruction_ids" binding:"required"`
			DryRun         bool            `json:"dry_run"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if !request.Kind.Valid() {
			response.BadRequest(c, "kind must be CLEARING or PASSTHROUGH")
			return
		}
		if len(request.InstructionIDs) == 0 {
			response.BadRequest(c, "at least one instruction id is required")
			return
		}

		result, err := h.executor.ExecuteBatch(
			c.Request.Context(), request.Kind, request.InstructionIDs, request.DryRun)
		if handleExecutionError(c, err) {
			return
		}
		response.Success(c, result)
	}
}

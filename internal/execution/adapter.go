package execution

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"
)

// Detail is the settlement-facing view of one transaction to execute.
type Detail struct {
	DetailID   string
	DetailType string
	FromEntity string
	ToEntity   string
	Amount     decimal.Decimal
	Currency   string
}

// SettlementAdapter executes a single settlement movement. Production
// deployments plug in a real payment backend with its own timeout and
// retry policy; tests inject deterministic outcomes.
type SettlementAdapter interface {
	Execute(ctx context.Context, detail Detail) error
}

// SimulatedAdapter stands in for a real settlement backend, failing a
// configurable fraction of details to exercise the partial-failure
// paths.
type SimulatedAdapter struct {
	failureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedAdapter creates a simulated backend. The seed makes runs
// reproducible; pass a varying seed for demo traffic.
func NewSimulatedAdapter(failureRate float64, seed int64) *SimulatedAdapter {
	return &SimulatedAdapter{
		failureRate: failureRate,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

var simulatedFailures = []string{
	"settlement account has insufficient funds",
	"counterparty rejected the instruction",
	"settlement gateway timeout",
}

func (a *SimulatedAdapter) Execute(ctx context.Context, detail Detail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	roll := a.rng.Float64()
	pick := a.rng.Intn(len(simulatedFailures))
	a.mu.Unlock()

	if roll < a.failureRate {
		return fmt.Errorf("%s (detail %s)", simulatedFailures[pick], detail.DetailID)
	}
	return nil
}

// StaticAdapter returns a fixed outcome per detail id, defaulting to
// success. Used by tests that need deterministic failures.
type StaticAdapter struct {
	Failures map[string]error
}

func (a *StaticAdapter) Execute(ctx context.Context, detail Detail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.Failures != nil {
		if err, ok := a.Failures[detail.DetailID]; ok {
			return err
		}
	}
	return nil
}

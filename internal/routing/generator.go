package routing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ksred/freight-clearing-api/internal/types"
)

var oneHundred = decimal.NewFromInt(100)

// SourceTransaction is the routed input: one clearing detail (or an
// equivalent internal transaction) reduced to the fields the generator
// needs. ExecutionRank is the detail's position in the execution-ordered
// detail list, so generated transactions settle in the same order the
// clearing mode prescribed.
type SourceTransaction struct {
	DetailID      string
	FromEntity    string
	ToEntity      string
	Amount        decimal.Decimal
	Currency      string
	ExecutionRank int
}

// retentionAmount computes what a hop keeps from the amount arriving at
// it. Percentage retentions are rounded half-up to 2 decimals; both
// kinds are capped at the arriving amount so a hop can never retain
// more than it received.
func retentionAmount(arriving decimal.Decimal, hop RouteHop) decimal.Decimal {
	var kept decimal.Decimal
	switch hop.RetentionType {
	case types.RetentionFixed:
		kept = hop.RetentionValue.Round(2)
	default:
		kept = arriving.Mul(hop.RetentionValue).Div(oneHundred).Round(2)
	}
	if kept.Sign() < 0 {
		return decimal.Zero
	}
	if kept.GreaterThan(arriving) {
		return arriving
	}
	return kept
}

// routingPath renders the human-readable chain, e.g. "A → R1 → B".
func routingPath(from string, hops []RouteHop, to string) string {
	parts := make([]string, 0, len(hops)+2)
	parts = append(parts, from)
	for _, hop := range hops {
		parts = append(parts, hop.EntityID)
	}
	parts = append(parts, to)
	return strings.Join(parts, " → ")
}

// GeneratePassthrough walks the matched route for one source
// transaction and emits the resulting details: one ROUTING transaction
// per hop leg, one RETENTION per hop with a positive retention, or a
// single direct PASSTHROUGH when rule is nil.
//
// Conservation holds exactly after per-hop rounding: the final routing
// amount plus all retentions along the route equals the source amount.
// Pure computation; identifiers and statuses are filled in by the
// caller at persistence time.
func GeneratePassthrough(src SourceTransaction, rule *RoutingRule) ([]PassthroughDetail, error) {
	if err := types.ValidateAmount(src.Amount); err != nil {
		return nil, fmt.Errorf("source transaction %s: %w", src.DetailID, err)
	}

	base := src.ExecutionRank * 10
	if rule == nil {
		return []PassthroughDetail{{
			SourceDetailID: src.DetailID,
			DetailType:     types.PassthroughDirect,
			FromEntity:     src.FromEntity,
			ToEntity:       src.ToEntity,
			Amount:         src.Amount,
			Currency:       src.Currency,
			RoutingPath:    src.FromEntity + " → " + src.ToEntity,
			RoutingLevel:   1,
			ExecutionOrder: base + 1,
			Status:         types.DetailPending,
		}}, nil
	}

	hops := rule.Hops()
	path := routingPath(src.FromEntity, hops, src.ToEntity)

	var details []PassthroughDetail
	offset := 1
	emit := func(detailType types.PassthroughType, from, to string, amount decimal.Decimal, level int) {
		details = append(details, PassthroughDetail{
			SourceDetailID: src.DetailID,
			DetailType:     detailType,
			FromEntity:     from,
			ToEntity:       to,
			Amount:         amount,
			Currency:       src.Currency,
			RoutingPath:    path,
			AppliedRuleID:  rule.RuleID,
			RoutingLevel:   level,
			ExecutionOrder: base + offset,
			Status:         types.DetailPending,
		})
		offset++
	}

	// Walk the chain carrying the running balance: each hop receives the
	// previous leg's amount, keeps its retention, and forwards the rest.
	balance := src.Amount
	from := src.FromEntity
	for i, hop := range hops {
		emit(types.PassthroughRouting, from, hop.EntityID, balance, i+1)

		if kept := retentionAmount(balance, hop); kept.Sign() > 0 {
			emit(types.PassthroughRetention, hop.EntityID, hop.EntityID, kept, i+1)
			balance = balance.Sub(kept)
		}
		from = hop.EntityID
	}
	emit(types.PassthroughRouting, from, src.ToEntity, balance, len(hops)+1)

	return details, nil
}

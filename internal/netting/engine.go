package netting

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ksred/freight-clearing-api/internal/routing"
	"github.com/ksred/freight-clearing-api/internal/types"
)

// pairKey identifies an unordered entity pair in one currency. EntityA
// is always the lexicographically smaller id so both flow directions
// land in the same group.
type pairKey struct {
	EntityA  string
	EntityB  string
	Currency string
}

func keyFor(from, to, currency string) pairKey {
	if from < to {
		return pairKey{EntityA: from, EntityB: to, Currency: currency}
	}
	return pairKey{EntityA: to, EntityB: from, Currency: currency}
}

// pairGroup accumulates one group's directional sums. Direction is
// read from each transaction's own payer and payee fields.
type pairGroup struct {
	key       pairKey
	aPayB     decimal.Decimal
	bPayA     decimal.Decimal
	detailIDs []string
	count     int
}

// findRule returns the active rule covering the pair, matched in either
// direction.
func findRule(rules []NettingRule, key pairKey) *NettingRule {
	for i := range rules {
		rule := &rules[i]
		if rule.Status != types.RuleActive || rule.Currency != key.Currency {
			continue
		}
		forward := rule.PassthroughEntityID == key.EntityA && rule.TargetEntityID == key.EntityB
		reverse := rule.PassthroughEntityID == key.EntityB && rule.TargetEntityID == key.EntityA
		if forward || reverse {
			return rule
		}
	}
	return nil
}

// NetBatch groups a batch's ROUTING and direct PASSTHROUGH transactions
// by unordered entity pair and currency and collapses each pair covered
// by a FULL_NETTING rule into one net payment, provided both directions
// carry a non-zero sum. RETENTION entries never net: the retained funds
// already left the flow. SEPARATE_PAYMENTS rules and uncovered pairs
// leave the originals untouched.
//
// Pure computation over its inputs; result ids and persistence are the
// caller's concern. Emitted results are ordered by pair for
// deterministic output.
func NetBatch(transactions []routing.PassthroughDetail, rules []NettingRule) []NettingResult {
	groups := make(map[pairKey]*pairGroup)
	var order []pairKey

	for _, tx := range transactions {
		if tx.DetailType == types.PassthroughRetention {
			continue
		}
		if tx.FromEntity == tx.ToEntity {
			continue
		}
		key := keyFor(tx.FromEntity, tx.ToEntity, tx.Currency)
		group, ok := groups[key]
		if !ok {
			group = &pairGroup{key: key}
			groups[key] = group
			order = append(order, key)
		}
		if tx.FromEntity == key.EntityA {
			group.aPayB = group.aPayB.Add(tx.Amount)
		} else {
			group.bPayA = group.bPayA.Add(tx.Amount)
		}
		group.detailIDs = append(group.detailIDs, tx.DetailID)
		group.count++
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.EntityA != b.EntityA {
			return a.EntityA < b.EntityA
		}
		if a.EntityB != b.EntityB {
			return a.EntityB < b.EntityB
		}
		return a.Currency < b.Currency
	})

	var results []NettingResult
	for _, key := range order {
		group := groups[key]
		if group.count < 2 {
			continue
		}
		rule := findRule(rules, key)
		if rule == nil || rule.NettingMode != types.NettingFull {
			continue
		}
		// Netting needs genuine offsetting: both directions non-zero.
		if group.aPayB.Sign() == 0 || group.bPayA.Sign() == 0 {
			continue
		}

		gross := group.aPayB.Add(group.bPayA)
		if rule.NettingThreshold.Sign() > 0 && gross.LessThan(rule.NettingThreshold) {
			continue
		}

		netAmount := group.aPayB.Sub(group.bPayA).Abs()
		if rule.MinNettingAmount.Sign() > 0 && netAmount.LessThan(rule.MinNettingAmount) {
			continue
		}

		netPayer, netPayee := key.EntityA, key.EntityB
		if group.bPayA.GreaterThan(group.aPayB) {
			netPayer, netPayee = key.EntityB, key.EntityA
		}

		results = append(results, NettingResult{
			RuleID:                 rule.RuleID,
			EntityA:                key.EntityA,
			EntityB:                key.EntityB,
			Currency:               key.Currency,
			APayB:                  group.aPayB,
			BPayA:                  group.bPayA,
			NetAmount:              netAmount,
			NetPayer:               netPayer,
			NetPayee:               netPayee,
			SavedTransactionsCount: group.count - 1,
			SavedAmount:            gross.Sub(netAmount),
			OriginalDetails:        marshalDetailIDs(group.detailIDs),
		})
	}

	return results
}

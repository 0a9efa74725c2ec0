package routing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/freight-clearing-api/internal/types"
)

func activeRule(ruleID string, priority int) RoutingRule {
	return RoutingRule{
		RuleID:        ruleID,
		PayerEntityID: "DEPT_OCEAN",
		PayeeEntityID: "SUPPLIER",
		Currency:      "CNY",
		Priority:      priority,
		Hop1EntityID:  "SETTLE_SHA",
		EffectiveFrom: time.Now().Add(-time.Hour),
		Status:        types.RuleActive,
	}
}

func TestMatchLowestPriorityWins(t *testing.T) {
	rules := []RoutingRule{
		activeRule("RTR_b", 200),
		activeRule("RTR_a", 100),
	}

	matched, err := Match(rules, "DEPT_OCEAN", "SUPPLIER", "CNY", time.Now())
	require.NoError(t, err)
	require.NotNil(t, matched)
	assert.Equal(t, "RTR_a", matched.RuleID)
}

func TestMatchNoRuleReturnsNil(t *testing.T) {
	rules := []RoutingRule{activeRule("RTR_a", 100)}

	matched, err := Match(rules, "DEPT_AIR", "SUPPLIER", "CNY", time.Now())
	require.NoError(t, err)
	assert.Nil(t, matched)
}

func TestMatchSkipsInactiveRules(t *testing.T) {
	inactive := activeRule("RTR_a", 100)
	inactive.Status = types.RuleInactive
	rules := []RoutingRule{inactive, activeRule("RTR_b", 200)}

	matched, err := Match(rules, "DEPT_OCEAN", "SUPPLIER", "CNY", time.Now())
	require.NoError(t, err)
	require.NotNil(t, matched)
	assert.Equal(t, "RTR_b", matched.RuleID)
}

func TestMatchHonorsEffectiveWindow(t *testing.T) {
	now := time.Now()

	future := activeRule("RTR_future", 50)
	future.EffectiveFrom = now.Add(time.Hour)

	expiredTo := now.Add(-time.Minute)
	expired := activeRule("RTR_expired", 60)
	expired.EffectiveTo = &expiredTo

	rules := []RoutingRule{future, expired, activeRule("RTR_live", 100)}

	matched, err := Match(rules, "DEPT_OCEAN", "SUPPLIER", "CNY", now)
	require.NoError(t, err)
	require.NotNil(t, matched)
	assert.Equal(t, "RTR_live", matched.RuleID)
}

func TestMatchAmbiguousPriorityFails(t *testing.T) {
	rules := []RoutingRule{
		activeRule("RTR_a", 100),
		activeRule("RTR_b", 100),
	}

	_, err := Match(rules, "DEPT_OCEAN", "SUPPLIER", "CNY", time.Now())
	assert.ErrorIs(t, err, ErrAmbiguousPriority)
}

func TestMatchTieBelowWinnerIsFine(t *testing.T) {
	// Two rules share priority 200, but the unique priority 100 wins.
	rules := []RoutingRule{
		activeRule("RTR_a", 200),
		activeRule("RTR_b", 200),
		activeRule("RTR_c", 100),
	}

	matched, err := Match(rules, "DEPT_OCEAN", "SUPPLIER", "CNY", time.Now())
	require.NoError(t, err)
	require.NotNil(t, matched)
	assert.Equal(t, "RTR_c", matched.RuleID)
}

func TestMatchCurrencyIsPartOfTheKey(t *testing.T) {
	usd := activeRule("RTR_usd", 100)
	usd.Currency = "USD"
	rules := []RoutingRule{usd}

	matched, err := Match(rules, "DEPT_OCEAN", "SUPPLIER", "CNY", time.Now())
	require.NoError(t, err)
	assert.Nil(t, matched)
}

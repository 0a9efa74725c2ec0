package routing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/freight-clearing-api/internal/types"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sourceTx(amount string) SourceTransaction {
	return SourceTransaction{
		DetailID:      "CLD_src",
		FromEntity:    "DEPT_OCEAN",
		ToEntity:      "SUPPLIER",
		Amount:        dec(amount),
		Currency:      "CNY",
		ExecutionRank: 2,
	}
}

// conservationCheck asserts that the final routed amount plus all
// retentions equals the source amount.
func conservationCheck(t *testing.T, source decimal.Decimal, details []PassthroughDetail) {
	t.Helper()
	retained := decimal.Zero
	var final decimal.Decimal
	for _, d := range details {
		switch d.DetailType {
		case types.PassthroughRetention:
			retained = retained.Add(d.Amount)
		case types.PassthroughRouting, types.PassthroughDirect:
			final = d.Amount
		}
	}
	assert.True(t, final.Add(retained).Equal(source),
		"conservation broken: final %s + retained %s != source %s", final, retained, source)
}

func TestGeneratePassthroughDirectWithoutRule(t *testing.T) {
	src := sourceTx("100")
	details, err := GeneratePassthrough(src, nil)
	require.NoError(t, err)
	require.Len(t, details, 1)

	direct := details[0]
	assert.Equal(t, types.PassthroughDirect, direct.DetailType)
	assert.Equal(t, "DEPT_OCEAN", direct.FromEntity)
	assert.Equal(t, "SUPPLIER", direct.ToEntity)
	assert.True(t, direct.Amount.Equal(dec("100")))
	assert.Equal(t, "DEPT_OCEAN → SUPPLIER", direct.RoutingPath)
	assert.Equal(t, 1, direct.RoutingLevel)
	assert.Equal(t, 21, direct.ExecutionOrder)
	conservationCheck(t, src.Amount, details)
}

func TestGeneratePassthroughSingleHopPercentage(t *testing.T) {
	rule := &RoutingRule{
		RuleID:             "RTR_1",
		Hop1EntityID:       "SETTLE_SHA",
		Hop1RetentionType:  types.RetentionPercentage,
		Hop1RetentionValue: dec("1"),
	}

	src := sourceTx("1000")
	details, err := GeneratePassthrough(src, rule)
	require.NoError(t, err)
	require.Len(t, details, 3)

	// DEPT_OCEAN → SETTLE_SHA carries the full amount.
	assert.Equal(t, types.PassthroughRouting, details[0].DetailType)
	assert.Equal(t, "DEPT_OCEAN", details[0].FromEntity)
	assert.Equal(t, "SETTLE_SHA", details[0].ToEntity)
	assert.True(t, details[0].Amount.Equal(dec("1000")))

	// SETTLE_SHA keeps 1% of what arrived.
	assert.Equal(t, types.PassthroughRetention, details[1].DetailType)
	assert.Equal(t, "SETTLE_SHA", details[1].FromEntity)
	assert.Equal(t, "SETTLE_SHA", details[1].ToEntity)
	assert.True(t, details[1].Amount.Equal(dec("10")))

	// The remainder reaches the supplier.
	assert.Equal(t, types.PassthroughRouting, details[2].DetailType)
	assert.Equal(t, "SETTLE_SHA", details[2].FromEntity)
	assert.Equal(t, "SUPPLIER", details[2].ToEntity)
	assert.True(t, details[2].Amount.Equal(dec("990")))

	for i, d := range details {
		assert.Equal(t, "DEPT_OCEAN → SETTLE_SHA → SUPPLIER", d.RoutingPath)
		assert.Equal(t, "RTR_1", d.AppliedRuleID)
		assert.Equal(t, 20+i+1, d.ExecutionOrder)
	}
	conservationCheck(t, src.Amount, details)
}

func TestGeneratePassthroughTwoHops(t *testing.T) {
	rule := &RoutingRule{
		RuleID:             "RTR_2",
		Hop1EntityID:       "SETTLE_SHA",
		Hop1RetentionType:  types.RetentionPercentage,
		Hop1RetentionValue: dec("1"),
		Hop2EntityID:       "SETTLE_HKG",
		Hop2RetentionType:  types.RetentionFixed,
		Hop2RetentionValue: dec("5"),
	}

	src := sourceTx("1000")
	details, err := GeneratePassthrough(src, rule)
	require.NoError(t, err)
	require.Len(t, details, 5)

	// 1000 in, 10 kept at hop 1, 990 forwarded, 5 kept at hop 2, 985 out.
	assert.True(t, details[0].Amount.Equal(dec("1000")))
	assert.True(t, details[1].Amount.Equal(dec("10")))
	assert.True(t, details[2].Amount.Equal(dec("990")))
	assert.True(t, details[3].Amount.Equal(dec("5")))
	assert.True(t, details[4].Amount.Equal(dec("985")))

	assert.Equal(t, 1, details[1].RoutingLevel)
	assert.Equal(t, 2, details[3].RoutingLevel)
	assert.Equal(t, 3, details[4].RoutingLevel)
	conservationCheck(t, src.Amount, details)
}

func TestGeneratePassthroughRoundsRetentionHalfUp(t *testing.T) {
	rule := &RoutingRule{
		RuleID:             "RTR_3",
		Hop1EntityID:       "SETTLE_SHA",
		Hop1RetentionType:  types.RetentionPercentage,
		Hop1RetentionValue: dec("0.5"),
	}

	// 0.5% of 333.33 is 1.66665, rounding half-up to 1.67.
	src := sourceTx("333.33")
	details, err := GeneratePassthrough(src, rule)
	require.NoError(t, err)
	require.Len(t, details, 3)
	assert.True(t, details[1].Amount.Equal(dec("1.67")))
	assert.True(t, details[2].Amount.Equal(dec("331.66")))
	conservationCheck(t, src.Amount, details)
}

func TestGeneratePassthroughRetentionCappedAtArriving(t *testing.T) {
	rule := &RoutingRule{
		RuleID:             "RTR_4",
		Hop1EntityID:       "SETTLE_SHA",
		Hop1RetentionType:  types.RetentionFixed,
		Hop1RetentionValue: dec("500"),
	}

	src := sourceTx("100")
	details, err := GeneratePassthrough(src, rule)
	require.NoError(t, err)
	require.Len(t, details, 3)

	// The hop keeps everything that arrived, never more.
	assert.True(t, details[1].Amount.Equal(dec("100")))
	assert.True(t, details[2].Amount.IsZero())
	conservationCheck(t, src.Amount, details)
}

func TestGeneratePassthroughZeroRetentionEmitsNoEntry(t *testing.T) {
	rule := &RoutingRule{
		RuleID:             "RTR_5",
		Hop1EntityID:       "SETTLE_SHA",
		Hop1RetentionType:  types.RetentionPercentage,
		Hop1RetentionValue: decimal.Zero,
	}

	details, err := GeneratePassthrough(sourceTx("100"), rule)
	require.NoError(t, err)
	require.Len(t, details, 2)
	for _, d := range details {
		assert.NotEqual(t, types.PassthroughRetention, d.DetailType)
	}
}

func TestGeneratePassthroughRejectsNonPositiveAmount(t *testing.T) {
	src := sourceTx("100")
	src.Amount = decimal.Zero
	_, err := GeneratePassthrough(src, nil)
	assert.Error(t, err)

	src.Amount = dec("-5")
	_, err = GeneratePassthrough(src, nil)
	assert.Error(t, err)
}

func TestGeneratePassthroughExecutionOrderSpacing(t *testing.T) {
	// Ranks 0 and 1 must land in disjoint execution-order ranges so
	// interleaved sources keep their relative ordering.
	first := sourceTx("100")
	first.ExecutionRank = 0
	second := sourceTx("100")
	second.ExecutionRank = 1

	firstDetails, err := GeneratePassthrough(first, nil)
	require.NoError(t, err)
	secondDetails, err := GeneratePassthrough(second, nil)
	require.NoError(t, err)

	assert.Less(t, firstDetails[0].ExecutionOrder, secondDetails[0].ExecutionOrder)
}

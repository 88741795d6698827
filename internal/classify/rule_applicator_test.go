package classify

import (
	"context"
	"testing"

	"github.com/aarondl/opt/omit"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/ledger-rules/internal/storage/rule"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

func TestApplyAll_HighestPriorityWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addRule(t, rule.RuleCreate{Field: rule.FieldDescription, Operator: rule.OperatorContains, Value: "coffee", Category: "Meals", Priority: 1})
	f.addRule(t, rule.RuleCreate{Field: rule.FieldDescription, Operator: rule.OperatorContains, Value: "starbucks", Category: "Coffee Shops", Priority: 10})

	starbucks := f.seed("2024-06-01", "Starbucks Coffee", "4.50")
	beans := f.seed("2024-06-01", "Coffee beans", "12.00")
	bus := f.seed("2024-06-02", "Bus Ticket", "2.75")

	updated, err := f.applicator.ApplyAll(ctx, transaction.AllTransactions())
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	assert.Equal(t, "Coffee Shops", f.get(t, starbucks).Category)
	assert.Equal(t, "Meals", f.get(t, beans).Category)
	assert.Equal(t, "", f.get(t, bus).Category)
	assert.False(t, f.get(t, starbucks).CategoryManualOverride)

	again, err := f.applicator.ApplyAll(ctx, transaction.AllTransactions())
	require.NoError(t, err)
	assert.Zero(t, again, "already categorized rows are not written twice")
}

func TestApplyAll_LeavesSetOverriddenAndReviewedRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addRule(t, rule.RuleCreate{Field: rule.FieldDescription, Operator: rule.OperatorContains, Value: "uber", Category: "Transportation"})

	existing := f.seed("2024-06-01", "Uber trip", "18.00", withCategory("Travel", false))
	pinned := f.seed("2024-06-01", "Uber trip home", "21.00", withCategory("", true))
	reviewed := f.seed("2024-06-02", "Uber eats", "30.00", withFlag("reviewed", false))
	open := f.seed("2024-06-03", "UBER *TRIP", "9.00")

	updated, err := f.applicator.ApplyAll(ctx, transaction.AllTransactions())
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	assert.Equal(t, "Travel", f.get(t, existing).Category)
	assert.Equal(t, "", f.get(t, pinned).Category)
	assert.Equal(t, "", f.get(t, reviewed).Category)
	assert.Equal(t, "reviewed", f.get(t, reviewed).Flag)
	assert.Equal(t, "Transportation", f.get(t, open).Category)
}

func TestApplyAll_TargetsUsePreferredField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addRule(t, rule.RuleCreate{Field: rule.FieldAmount, Operator: rule.OperatorGreaterThan, Value: "1000", Flag: "Large", Category: "Big Ticket", Priority: 1})
	f.addRule(t, rule.RuleCreate{Field: rule.FieldDescription, Operator: rule.OperatorContains, Value: "rent", Flag: "Housing", Priority: 5})

	rent := f.seed("2024-06-01", "Rent June", "1500.00")

	updated, err := f.applicator.ApplyAll(ctx, transaction.AllTransactions())
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	got := f.get(t, rent)
	assert.Equal(t, "Large", got.Flag, "flags come from amount rules in batch mode")
	assert.Equal(t, "", got.Category, "categories come from description rules in batch mode")
}

func TestApplyAll_SkipsMalformedThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addRule(t, rule.RuleCreate{Field: rule.FieldAmount, Operator: rule.OperatorGreaterThan, Value: "a lot", Flag: "Broken", Priority: 100})
	f.addRule(t, rule.RuleCreate{Field: rule.FieldAmount, Operator: rule.OperatorGreaterThan, Value: "500", Flag: "Large", Priority: 1})

	id := f.seed("2024-06-01", "Laptop", "1200.00")

	updated, err := f.applicator.ApplyAll(ctx, transaction.AllTransactions())
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
	assert.Equal(t, "Large", f.get(t, id).Flag)
}

func TestApplyAll_ScopeRestrictsRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addRule(t, rule.RuleCreate{Field: rule.FieldDescription, Operator: rule.OperatorEquals, Value: "netflix, spotify", Category: "Entertainment"})

	inScope := f.seed("2024-06-01", "Netflix", "15.49")
	outOfScope := f.seed("2024-06-01", "Spotify", "9.99")

	updated, err := f.applicator.ApplyAll(ctx, transaction.ForIDs(inScope))
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
	assert.Equal(t, "Entertainment", f.get(t, inScope).Category)
	assert.Equal(t, "", f.get(t, outOfScope).Category)

	none, err := f.applicator.ApplyAll(ctx, transaction.ForIDs())
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestApplyAll_NoActiveRules(t *testing.T) {
	f := newFixture(t)
	f.seed("2024-06-01", "Anything", "1.00")

	updated, err := f.applicator.ApplyAll(context.Background(), transaction.AllTransactions())
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestApplyAll_StorageError(t *testing.T) {
	f := newFixture(t)
	f.addRule(t, rule.RuleCreate{Field: rule.FieldDescription, Operator: rule.OperatorContains, Value: "x", Category: "X"})
	f.mem.FailOn("AssignWhereUnset", assert.AnError)

	_, err := f.applicator.ApplyAll(context.Background(), transaction.AllTransactions())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestResetAndReapply_ManualOverrideGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addRule(t, rule.RuleCreate{Field: rule.FieldDescription, Operator: rule.OperatorContains, Value: "market", Category: "Groceries"})

	pinned := f.seed("2024-06-01", "Farmers market", "40.00", withCategory("Gifts", true))
	stale := f.seed("2024-06-02", "Super market", "62.10", withCategory("Shopping", false))
	reviewed := f.seed("2024-06-03", "Market stall", "5.00", withCategory("Snacks", false), withFlag("Reviewed", false))
	anomaly := f.seed("2024-06-04", "Night market", "12.00", withFlag(transaction.FlagDuplicate, true))

	updated, err := f.applicator.ResetAndReapply(ctx, transaction.AllTransactions())
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	assert.Equal(t, "Gifts", f.get(t, pinned).Category)
	assert.Equal(t, "Groceries", f.get(t, stale).Category)
	assert.Equal(t, "Snacks", f.get(t, reviewed).Category)
	assert.Equal(t, "Reviewed", f.get(t, reviewed).Flag)
	assert.Equal(t, "Groceries", f.get(t, anomaly).Category)
	assert.Equal(t, transaction.FlagDuplicate, f.get(t, anomaly).Flag)
}

func TestApplyToTransaction_TieBreaks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addRule(t, rule.RuleCreate{Field: rule.FieldDescription, Operator: rule.OperatorContains, Value: "dinner", Category: "Meals", Priority: 10})
	f.addRule(t, rule.RuleCreate{Field: rule.FieldAmount, Operator: rule.OperatorGreaterThan, Value: "100", Category: "Travel", Flag: "Big Trip", Priority: 5})
	f.addRule(t, rule.RuleCreate{Field: rule.FieldAmount, Operator: rule.OperatorGreaterThan, Value: "100", Category: "Meals", Flag: "Big Meal", Priority: 1})

	tx := &transaction.Transaction{Description: "Team dinner", Amount: decimal.RequireFromString("150.00")}
	require.NoError(t, f.applicator.ApplyToTransaction(ctx, tx))

	assert.Equal(t, "Meals", tx.Category)
	assert.Equal(t, "Big Meal", tx.Flag, "flag prefers the rule agreeing with the resolved category")
	assert.False(t, tx.CategoryManualOverride)
	assert.False(t, tx.FlagManualOverride)
}

func TestApplyToTransaction_FallsBackToAnyField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addRule(t, rule.RuleCreate{Field: rule.FieldDescription, Operator: rule.OperatorContains, Value: "casino", Flag: "Review Me", Priority: 1})
	f.addRule(t, rule.RuleCreate{Field: rule.FieldAmount, Operator: rule.OperatorLessThan, Value: "0", Category: "Refunds", Priority: 1})

	tx := &transaction.Transaction{Description: "Casino refund", Amount: decimal.RequireFromString("-20.00")}
	require.NoError(t, f.applicator.ApplyToTransaction(ctx, tx))

	assert.Equal(t, "Refunds", tx.Category)
	assert.Equal(t, "Review Me", tx.Flag)
}

func TestApplyToTransaction_SkipsSetAndOverridden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addRule(t, rule.RuleCreate{Field: rule.FieldDescription, Operator: rule.OperatorContains, Value: "gym", Category: "Healthcare", Flag: "Monthly"})

	tx := &transaction.Transaction{
		Description:        "Gym membership",
		Amount:             decimal.RequireFromString("45.00"),
		Category:           "Fitness",
		FlagManualOverride: true,
	}
	require.NoError(t, f.applicator.ApplyToTransaction(ctx, tx))

	assert.Equal(t, "Fitness", tx.Category)
	assert.Equal(t, "", tx.Flag)
}

func TestApplyToTransaction_InactiveRulesIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.addRule(t, rule.RuleCreate{Field: rule.FieldDescription, Operator: rule.OperatorContains, Value: "gym", Category: "Healthcare"})
	require.NoError(t, f.store.Rules.Update(ctx, id, &rule.RuleUpdate{Active: omit.From(false)}))

	tx := &transaction.Transaction{Description: "Gym", Amount: decimal.RequireFromString("45.00")}
	require.NoError(t, f.applicator.ApplyToTransaction(ctx, tx))
	assert.Equal(t, "", tx.Category)
}

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/aarondl/opt/omit"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/ledger-rules/internal/matcher"
	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/rule"
	"github.com/carson-networks/ledger-rules/internal/storage/storagetest"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

func newMockRuleService(t *testing.T) (*RuleService, *rule.MockIRuleTable, *storagetest.Memory) {
	t.Helper()
	mem := storagetest.New()
	mockRules := rule.NewMockIRuleTable(t)
	store := &storage.Storage{Tables: storage.Tables{
		Rules:        mockRules,
		Transactions: mem.Storage().Transactions,
	}}
	logger, _ := test.NewNullLogger()
	return NewRuleService(store, &inlineProcessor{store: store}, logger), mockRules, mem
}

func TestCategories_MergesSortsAndDeduplicates(t *testing.T) {
	svc, mockRules, mem := newMockRuleService(t)
	mockRules.On("Categories", mock.Anything).Return([]string{"Coffee", "Meals", " "}, nil)
	mem.Seed(transaction.Transaction{Date: time.Now(), Description: "x", Amount: decimal.NewFromInt(1), Category: "Books"})
	mem.Seed(transaction.Transaction{Date: time.Now(), Description: "y", Amount: decimal.NewFromInt(1), Category: "Travel"})

	categories, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Books", "Coffee", "Entertainment", "Groceries", "Healthcare", "Meals",
		"Shopping", "Transportation", "Travel", "Utilities",
	}, categories)
}

func TestCategories_StorageError(t *testing.T) {
	svc, mockRules, _ := newMockRuleService(t)
	mockRules.On("Categories", mock.Anything).Return(nil, assert.AnError)

	_, err := svc.Categories(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestListRules_PassesThrough(t *testing.T) {
	svc, mockRules, _ := newMockRuleService(t)
	rules := []*rule.Rule{{ID: uuid.Must(uuid.NewV4()), Name: "a", Priority: 3}}
	mockRules.On("List", mock.Anything).Return(rules, nil).Once()

	got, err := svc.ListRules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rules, got)
}

func TestRuleCRUD(t *testing.T) {
	svc, _, _ := newMemoryService(t)
	ctx := context.Background()

	_, err := svc.Rule.CreateRule(ctx, rule.RuleCreate{Name: "", Field: rule.FieldDescription, Operator: rule.OperatorContains, Value: "x", Category: "X"})
	assert.ErrorIs(t, err, matcher.ErrInvalidRule)

	created, err := svc.Rule.CreateRule(ctx, rule.RuleCreate{
		Name: "rent", Field: rule.FieldAmount, Operator: rule.OperatorGreaterThan, Value: "1000", Flag: "Large", Active: true,
	})
	require.NoError(t, err)

	updated, err := svc.Rule.UpdateRule(ctx, created.ID, rule.RuleUpdate{Active: omit.From(false)})
	require.NoError(t, err)
	assert.False(t, updated.Active)

	require.NoError(t, svc.Rule.DeleteRule(ctx, created.ID))
	_, err = svc.Rule.UpdateRule(ctx, created.ID, rule.RuleUpdate{Priority: omit.From(1)})
	assert.ErrorIs(t, err, sql.ErrNoRows)

	rules, err := svc.Rule.ListRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestApplyRulesBatchAndReset(t *testing.T) {
	svc, mem, _ := newMemoryService(t)
	ctx := context.Background()

	_, err := svc.Rule.CreateRule(ctx, rule.RuleCreate{
		Name: "power", Field: rule.FieldDescription, Operator: rule.OperatorEquals,
		Value: "city power", Category: "Utilities", Active: true,
	})
	require.NoError(t, err)

	open := mem.Seed(transaction.Transaction{Date: time.Now(), Description: "City Power", Amount: decimal.NewFromInt(80)})
	pinned := mem.Seed(transaction.Transaction{Date: time.Now(), Description: "City Power", Amount: decimal.NewFromInt(81), Category: "Bills", CategoryManualOverride: true})
	automated := mem.Seed(transaction.Transaction{Date: time.Now(), Description: "City Power", Amount: decimal.NewFromInt(82), Category: "Misc"})

	n, err := svc.Rule.ApplyRulesBatch(ctx, transaction.ForIDs(open, pinned))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = svc.Rule.ResetAndReapply(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	p, _ := mem.Transaction(pinned)
	a, _ := mem.Transaction(automated)
	assert.Equal(t, "Bills", p.Category)
	assert.Equal(t, "Utilities", a.Category)
}

func TestDetectAnomalies(t *testing.T) {
	svc, mem, _ := newMemoryService(t)
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mem.Seed(transaction.Transaction{Date: day, Description: "Gym", Amount: decimal.NewFromInt(45)})
	mem.Seed(transaction.Transaction{Date: day, Description: "Gym", Amount: decimal.NewFromInt(45)})
	mem.Seed(transaction.Transaction{Date: day.AddDate(0, 1, 0), Description: "Gym", Amount: decimal.NewFromInt(45)})

	result, err := svc.Anomaly.DetectAnomalies(context.Background(), transaction.AllTransactions())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Duplicates)
	assert.Equal(t, int64(2), result.Recurring)

	again, err := svc.Anomaly.DetectAnomalies(context.Background(), transaction.AllTransactions())
	require.NoError(t, err)
	assert.Zero(t, again.Duplicates+again.Recurring)
}

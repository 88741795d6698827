package classify

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/rule"
	"github.com/carson-networks/ledger-rules/internal/storage/storagetest"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

type fixture struct {
	mem        *storagetest.Memory
	store      *storage.Storage
	applicator *RuleApplicator
	detector   *AnomalyDetector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := storagetest.New()
	store := mem.Storage()
	logger, _ := test.NewNullLogger()
	return &fixture{
		mem:        mem,
		store:      store,
		applicator: NewRuleApplicator(store.Tables, logger),
		detector:   NewAnomalyDetector(store.Tables, logger),
	}
}

func (f *fixture) addRule(t *testing.T, create rule.RuleCreate) uuid.UUID {
	t.Helper()
	if create.Name == "" {
		create.Name = "rule"
	}
	create.Active = true
	id, err := f.store.Rules.Insert(context.Background(), &create)
	require.NoError(t, err)
	return id
}

func (f *fixture) seed(date, description, amount string, opts ...func(*transaction.Transaction)) int64 {
	tx := transaction.Transaction{
		Date:        day(date),
		Description: description,
		Amount:      decimal.RequireFromString(amount),
	}
	for _, opt := range opts {
		opt(&tx)
	}
	return f.mem.Seed(tx)
}

func (f *fixture) get(t *testing.T, id int64) transaction.Transaction {
	t.Helper()
	tx, ok := f.mem.Transaction(id)
	require.True(t, ok)
	return tx
}

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func withCategory(category string, override bool) func(*transaction.Transaction) {
	return func(tx *transaction.Transaction) {
		tx.Category = category
		tx.CategoryManualOverride = override
	}
}

func withFlag(flag string, override bool) func(*transaction.Transaction) {
	return func(tx *transaction.Transaction) {
		tx.Flag = flag
		tx.FlagManualOverride = override
	}
}

func withUpload(id uuid.UUID, batch int) func(*transaction.Transaction) {
	return func(tx *transaction.Transaction) {
		tx.UploadID = &id
		tx.UploadBatch = &batch
	}
}

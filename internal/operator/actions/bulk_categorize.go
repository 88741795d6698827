package actions

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

// BulkCategorize assigns one category to many rows as a manual choice, then
// lets the rules fill any flags still open on those rows.
type BulkCategorize struct {
	IDs      []int64
	Category string
	Logger   logrus.FieldLogger

	Updated int64
	IAction
}

func (b *BulkCategorize) Perform(ctx context.Context, writer *storage.Writer) error {
	applicator, _ := classifiers(writer, b.Logger)

	updated, err := writer.Transactions.SetCategory(ctx, b.IDs, b.Category)
	if err != nil {
		return err
	}
	if _, err := applicator.ApplyAll(ctx, transaction.ForIDs(b.IDs...)); err != nil {
		return err
	}

	b.Updated = updated
	return nil
}

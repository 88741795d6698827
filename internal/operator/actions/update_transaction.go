package actions

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

// UpdateTransaction applies a manual edit. Edited category or flag values
// are pinned; fields left blank are re-derived from the rules and the row
// is checked for anomalies again.
type UpdateTransaction struct {
	ID     int64
	Update transaction.TransactionUpdate
	Logger logrus.FieldLogger

	Result *transaction.Transaction
	IAction
}

func (u *UpdateTransaction) Perform(ctx context.Context, writer *storage.Writer) error {
	applicator, detector := classifiers(writer, u.Logger)

	if err := writer.Transactions.Update(ctx, u.ID, &u.Update); err != nil {
		return err
	}
	if _, err := applicator.ApplyAll(ctx, transaction.ForIDs(u.ID)); err != nil {
		return err
	}

	stored, err := writer.Transactions.FindByID(ctx, u.ID)
	if err != nil {
		return err
	}
	if _, err := detector.DetectForTransaction(ctx, stored); err != nil {
		return err
	}

	u.Result = stored
	return nil
}

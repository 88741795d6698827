package actions

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

// CreateTransaction stores a manually entered transaction, classifying it
// against the active rules and checking it for anomalies.
type CreateTransaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Category    string
	Flag        string
	Logger      logrus.FieldLogger

	// Result holds the stored row once Perform succeeds.
	Result *transaction.Transaction
	IAction
}

func (c *CreateTransaction) Perform(ctx context.Context, writer *storage.Writer) error {
	applicator, detector := classifiers(writer, c.Logger)

	tx := &transaction.Transaction{
		Date:        c.Date,
		Description: c.Description,
		Amount:      c.Amount,
		Category:    c.Category,
		Flag:        c.Flag,
	}
	if err := applicator.ApplyToTransaction(ctx, tx); err != nil {
		return err
	}

	id, err := writer.Transactions.Insert(ctx, &transaction.TransactionCreate{
		Date:        tx.Date,
		Description: tx.Description,
		Amount:      tx.Amount,
		Category:    tx.Category,
		Flag:        tx.Flag,
	})
	if err != nil {
		return err
	}

	stored, err := writer.Transactions.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := detector.DetectForTransaction(ctx, stored); err != nil {
		return err
	}

	c.Result = stored
	return nil
}

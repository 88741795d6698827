package classify

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

// AnomalyResult counts rows flagged by one detection run.
type AnomalyResult struct {
	Duplicates int64
	Recurring  int64
}

// AnomalyDetector flags exact duplicates and recurring charges.
// Rows flagged as reviewed are never relabeled.
type AnomalyDetector struct {
	transactions transaction.ITransactionTable
	logger       logrus.FieldLogger
}

func NewAnomalyDetector(tables storage.Tables, logger logrus.FieldLogger) *AnomalyDetector {
	return &AnomalyDetector{
		transactions: tables.Transactions,
		logger:       logger,
	}
}

// DetectAll runs duplicate detection before recurring detection so the
// duplicate label wins.
func (d *AnomalyDetector) DetectAll(ctx context.Context, scope transaction.Scope) (AnomalyResult, error) {
	duplicates, err := d.DetectDuplicates(ctx, scope)
	if err != nil {
		return AnomalyResult{}, err
	}
	recurring, err := d.DetectRecurring(ctx, scope)
	if err != nil {
		return AnomalyResult{Duplicates: duplicates}, err
	}
	return AnomalyResult{Duplicates: duplicates, Recurring: recurring}, nil
}

// DetectDuplicates flags every row sharing date, description and amount with
// a lower-id row in scope.
func (d *AnomalyDetector) DetectDuplicates(ctx context.Context, scope transaction.Scope) (int64, error) {
	if scope.IsEmpty() {
		return 0, nil
	}
	groups, err := d.transactions.DuplicateGroups(ctx, scope)
	if err != nil {
		return 0, errors.Wrap(err, "find duplicate groups")
	}

	var flagged int64
	for _, group := range groups {
		n, err := d.transactions.FlagDuplicates(ctx, scope, group)
		if err != nil {
			return flagged, errors.Wrap(err, "flag duplicates")
		}
		flagged += n
	}
	return flagged, nil
}

// DetectRecurring flags rows whose description and amount repeat on more
// than one date in scope.
func (d *AnomalyDetector) DetectRecurring(ctx context.Context, scope transaction.Scope) (int64, error) {
	if scope.IsEmpty() {
		return 0, nil
	}
	groups, err := d.transactions.RecurringGroups(ctx, scope)
	if err != nil {
		return 0, errors.Wrap(err, "find recurring groups")
	}

	var flagged int64
	for _, group := range groups {
		n, err := d.transactions.FlagRecurring(ctx, scope, group)
		if err != nil {
			return flagged, errors.Wrap(err, "flag recurring")
		}
		flagged += n
	}
	return flagged, nil
}

// DetectForTransaction checks a single stored row against the whole ledger.
// It returns the label applied, or an empty string.
func (d *AnomalyDetector) DetectForTransaction(ctx context.Context, tx *transaction.Transaction) (string, error) {
	if transaction.IsProtectedFlag(tx.Flag) {
		return "", nil
	}

	duplicate, err := d.transactions.HasDuplicateOf(ctx, tx)
	if err != nil {
		return "", errors.Wrap(err, "check duplicate")
	}
	if duplicate {
		if _, err := d.transactions.SetAnomalyFlag(ctx, []int64{tx.ID}, transaction.FlagDuplicate); err != nil {
			return "", errors.Wrap(err, "flag duplicate")
		}
		tx.Flag = transaction.FlagDuplicate
		tx.FlagManualOverride = true
		return transaction.FlagDuplicate, nil
	}

	recurring, err := d.transactions.HasRecurringOf(ctx, tx)
	if err != nil {
		return "", errors.Wrap(err, "check recurring")
	}
	if !recurring {
		return "", nil
	}

	cohort := transaction.RecurringGroup{Description: tx.Description, Amount: tx.Amount}
	n, err := d.transactions.FlagRecurring(ctx, transaction.AllTransactions(), cohort)
	if err != nil {
		return "", errors.Wrap(err, "flag recurring cohort")
	}
	if tx.Flag != transaction.FlagDuplicate {
		tx.Flag = transaction.FlagRecurring
		tx.FlagManualOverride = true
	}
	d.logger.WithFields(logrus.Fields{
		"transactionID": tx.ID,
		"cohortFlagged": n,
	}).Debug("AnomalyDetector.DetectForTransaction.Recurring")
	return transaction.FlagRecurring, nil
}

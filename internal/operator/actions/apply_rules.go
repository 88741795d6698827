package actions

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/internal/classify"
	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

// ApplyRules fills blank categories and flags in Scope.
type ApplyRules struct {
	Scope  transaction.Scope
	Logger logrus.FieldLogger

	Updated int64
	IAction
}

func (a *ApplyRules) Perform(ctx context.Context, writer *storage.Writer) error {
	applicator, _ := classifiers(writer, a.Logger)
	updated, err := applicator.ApplyAll(ctx, a.Scope)
	if err != nil {
		return err
	}
	a.Updated = updated
	return nil
}

// ResetAndReapply clears automated values in Scope and applies the rules
// again.
type ResetAndReapply struct {
	Scope  transaction.Scope
	Logger logrus.FieldLogger

	Updated int64
	IAction
}

func (r *ResetAndReapply) Perform(ctx context.Context, writer *storage.Writer) error {
	applicator, _ := classifiers(writer, r.Logger)
	updated, err := applicator.ResetAndReapply(ctx, r.Scope)
	if err != nil {
		return err
	}
	r.Updated = updated
	return nil
}

// DetectAnomalies flags duplicates and recurring charges in Scope.
type DetectAnomalies struct {
	Scope  transaction.Scope
	Logger logrus.FieldLogger

	Result classify.AnomalyResult
	IAction
}

func (d *DetectAnomalies) Perform(ctx context.Context, writer *storage.Writer) error {
	_, detector := classifiers(writer, d.Logger)
	result, err := detector.DetectAll(ctx, d.Scope)
	if err != nil {
		return err
	}
	d.Result = result
	return nil
}

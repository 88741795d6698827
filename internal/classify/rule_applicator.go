package classify

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/internal/matcher"
	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/rule"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

// targets lists assignable fields in resolution order. Category resolves
// first because flag selection looks at the resolved category.
var targets = []transaction.Target{transaction.TargetCategory, transaction.TargetFlag}

// preferredField is the rule field that primarily drives each target.
func preferredField(target transaction.Target) rule.Field {
	if target == transaction.TargetFlag {
		return rule.FieldAmount
	}
	return rule.FieldDescription
}

// RuleApplicator assigns categories and flags from the active rule set.
type RuleApplicator struct {
	rules        rule.IRuleTable
	transactions transaction.ITransactionTable
	logger       logrus.FieldLogger
}

func NewRuleApplicator(tables storage.Tables, logger logrus.FieldLogger) *RuleApplicator {
	return &RuleApplicator{
		rules:        tables.Rules,
		transactions: tables.Transactions,
		logger:       logger,
	}
}

func (a *RuleApplicator) activeRules(ctx context.Context) ([]*rule.Rule, error) {
	rules, err := a.rules.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load active rules")
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return rules, nil
}

// ApplyToTransaction fills blank, non-overridden category and flag on tx in
// memory. The caller persists tx.
func (a *RuleApplicator) ApplyToTransaction(ctx context.Context, tx *transaction.Transaction) error {
	rules, err := a.activeRules(ctx)
	if err != nil {
		return err
	}
	ApplyRules(rules, tx)
	return nil
}

// ApplyRules resolves each target of tx against rules, which must be sorted
// by descending priority. Override flags are left untouched.
func ApplyRules(rules []*rule.Rule, tx *transaction.Transaction) {
	var matching []*rule.Rule
	for _, r := range rules {
		if matcher.Matches(r, tx) {
			matching = append(matching, r)
		}
	}

	for _, target := range targets {
		if strings.TrimSpace(tx.Value(target)) != "" || tx.Overridden(target) {
			continue
		}
		if winner := pickRule(matching, target, tx); winner != nil {
			tx.Set(target, strings.TrimSpace(winner.TargetValue(target)))
		}
	}
}

func pickRule(matching []*rule.Rule, target transaction.Target, tx *transaction.Transaction) *rule.Rule {
	var preferred []*rule.Rule
	for _, r := range matching {
		if r.Field == preferredField(target) && strings.TrimSpace(r.TargetValue(target)) != "" {
			preferred = append(preferred, r)
		}
	}

	if target == transaction.TargetFlag && strings.TrimSpace(tx.Category) != "" {
		for _, r := range preferred {
			if strings.EqualFold(strings.TrimSpace(r.Category), strings.TrimSpace(tx.Category)) {
				return r
			}
		}
	}
	if len(preferred) > 0 {
		return preferred[0]
	}

	for _, r := range matching {
		if strings.TrimSpace(r.TargetValue(target)) != "" {
			return r
		}
	}
	return nil
}

// ApplyAll runs every eligible rule over scope as set-wide updates, highest
// priority first, writing only into fields still blank. Returns rows updated
// across both targets.
func (a *RuleApplicator) ApplyAll(ctx context.Context, scope transaction.Scope) (int64, error) {
	if scope.IsEmpty() {
		return 0, nil
	}
	rules, err := a.activeRules(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, target := range targets {
		for _, r := range rules {
			value := strings.TrimSpace(r.TargetValue(target))
			if r.Field != preferredField(target) || value == "" {
				continue
			}

			predicate, err := matcher.Compile(r)
			if err != nil {
				a.logger.WithError(err).WithFields(logrus.Fields{
					"ruleID": r.ID.String(),
					"target": target.String(),
				}).Warn("RuleApplicator.ApplyAll.SkipRule")
				continue
			}

			updated, err := a.transactions.AssignWhereUnset(ctx, scope, target, predicate.Condition(), value)
			if err != nil {
				return total, errors.Wrapf(err, "apply rule %s", r.ID)
			}
			total += updated
		}
	}
	return total, nil
}

// ResetAndReapply clears automated category and flag values in scope and
// runs ApplyAll again. Overridden and reviewed rows are untouched.
func (a *RuleApplicator) ResetAndReapply(ctx context.Context, scope transaction.Scope) (int64, error) {
	cleared, err := a.transactions.ClearUnprotected(ctx, scope)
	if err != nil {
		return 0, errors.Wrap(err, "clear unprotected")
	}

	applied, err := a.ApplyAll(ctx, scope)
	if err != nil {
		return 0, err
	}

	a.logger.WithFields(logrus.Fields{
		"cleared": cleared,
		"applied": applied,
	}).Info("RuleApplicator.ResetAndReapply.Complete")
	return applied, nil
}

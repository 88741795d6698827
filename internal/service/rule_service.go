package service

import (
	"context"
	"slices"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/internal/operator/actions"
	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/rule"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

// DefaultCategories are always offered, even before any rule or row uses
// them.
var DefaultCategories = []string{
	"Shopping", "Meals", "Transportation", "Entertainment",
	"Utilities", "Healthcare", "Travel", "Groceries",
}

type RuleService struct {
	storage   *storage.Storage
	processor Processor
	logger    logrus.FieldLogger
}

func NewRuleService(store *storage.Storage, processor Processor, logger logrus.FieldLogger) *RuleService {
	return &RuleService{storage: store, processor: processor, logger: logger}
}

func (s *RuleService) ListRules(ctx context.Context) ([]*rule.Rule, error) {
	return s.storage.Rules.List(ctx)
}

func (s *RuleService) CreateRule(ctx context.Context, create rule.RuleCreate) (*rule.Rule, error) {
	action := &actions.CreateRule{Create: create}
	if err := s.processor.Process(ctx, action); err != nil {
		return nil, err
	}
	return action.Result, nil
}

func (s *RuleService) UpdateRule(ctx context.Context, id uuid.UUID, update rule.RuleUpdate) (*rule.Rule, error) {
	action := &actions.UpdateRule{ID: id, Update: update}
	if err := s.processor.Process(ctx, action); err != nil {
		return nil, err
	}
	return action.Result, nil
}

func (s *RuleService) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return s.processor.Process(ctx, &actions.DeleteRule{ID: id})
}

// Categories merges the default categories with those used by rules and
// transactions, de-duplicated and sorted.
func (s *RuleService) Categories(ctx context.Context) ([]string, error) {
	ruleCategories, err := s.storage.Rules.Categories(ctx)
	if err != nil {
		return nil, err
	}
	transactionCategories, err := s.storage.Transactions.Categories(ctx)
	if err != nil {
		return nil, err
	}

	all := slices.Concat(DefaultCategories, ruleCategories, transactionCategories)
	categories := make([]string, 0, len(all))
	for _, category := range all {
		if category = strings.TrimSpace(category); category != "" {
			categories = append(categories, category)
		}
	}
	slices.Sort(categories)
	return slices.Compact(categories), nil
}

// ApplyRulesBatch fills blank categories and flags in scope.
func (s *RuleService) ApplyRulesBatch(ctx context.Context, scope transaction.Scope) (int64, error) {
	action := &actions.ApplyRules{Scope: scope, Logger: s.logger}
	if err := s.processor.Process(ctx, action); err != nil {
		return 0, err
	}
	return action.Updated, nil
}

// ResetAndReapply recomputes every automated category and flag in the
// ledger.
func (s *RuleService) ResetAndReapply(ctx context.Context) (int64, error) {
	action := &actions.ResetAndReapply{Scope: transaction.AllTransactions(), Logger: s.logger}
	if err := s.processor.Process(ctx, action); err != nil {
		return 0, err
	}
	return action.Updated, nil
}

package storagetest

import (
	"context"
	"sort"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/ledger-rules/internal/storage/rule"
)

var _ rule.IRuleTable = (*RuleTable)(nil)

// RuleTable mirrors rule.Table over Memory.
type RuleTable struct {
	m *Memory
}

func (t *RuleTable) FindByID(ctx context.Context, id uuid.UUID) (*rule.Rule, error) {
	if err := t.m.fail("FindRule"); err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, r := range t.m.state.rules {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, notFound("rule", id)
}

func (t *RuleTable) Insert(ctx context.Context, create *rule.RuleCreate) (uuid.UUID, error) {
	if err := t.m.fail("InsertRule"); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	now := t.m.now()
	t.m.state.rules = append(t.m.state.rules, &rule.Rule{
		ID:        id,
		Name:      strings.TrimSpace(create.Name),
		Field:     create.Field,
		Operator:  create.Operator,
		Value:     create.Value,
		Category:  strings.TrimSpace(create.Category),
		Flag:      strings.TrimSpace(create.Flag),
		Priority:  create.Priority,
		Active:    create.Active,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return id, nil
}

func (t *RuleTable) Update(ctx context.Context, id uuid.UUID, update *rule.RuleUpdate) error {
	if err := t.m.fail("UpdateRule"); err != nil {
		return err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for i, r := range t.m.state.rules {
		if r.ID == id {
			updated := update.Apply(*r)
			updated.Name = strings.TrimSpace(updated.Name)
			updated.Category = strings.TrimSpace(updated.Category)
			updated.Flag = strings.TrimSpace(updated.Flag)
			updated.UpdatedAt = t.m.now()
			t.m.state.rules[i] = &updated
			return nil
		}
	}
	return notFound("rule", id)
}

func (t *RuleTable) Delete(ctx context.Context, id uuid.UUID) error {
	if err := t.m.fail("DeleteRule"); err != nil {
		return err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for i, r := range t.m.state.rules {
		if r.ID == id {
			t.m.state.rules = append(t.m.state.rules[:i], t.m.state.rules[i+1:]...)
			return nil
		}
	}
	return notFound("rule", id)
}

func (t *RuleTable) list(activeOnly bool) []*rule.Rule {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	var rules []*rule.Rule
	for _, r := range t.m.state.rules {
		if activeOnly && !r.Active {
			continue
		}
		cp := *r
		rules = append(rules, &cp)
	}
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
	return rules
}

func (t *RuleTable) List(ctx context.Context) ([]*rule.Rule, error) {
	if err := t.m.fail("ListRules"); err != nil {
		return nil, err
	}
	return t.list(false), nil
}

func (t *RuleTable) ListActive(ctx context.Context) ([]*rule.Rule, error) {
	if err := t.m.fail("ListActive"); err != nil {
		return nil, err
	}
	return t.list(true), nil
}

func (t *RuleTable) Categories(ctx context.Context) ([]string, error) {
	if err := t.m.fail("RuleCategories"); err != nil {
		return nil, err
	}
	var categories []string
	for _, r := range t.list(false) {
		if r.Category != "" {
			categories = append(categories, r.Category)
		}
	}
	return sortedDistinct(categories), nil
}

package storagetest

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carson-networks/ledger-rules/internal/matcher"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

var _ transaction.ITransactionTable = (*TransactionTable)(nil)

// TransactionTable mirrors transaction.Table over Memory.
type TransactionTable struct {
	m *Memory
}

func dateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

func sameDuplicateKey(tx *transaction.Transaction, date time.Time, description string, amount decimal.Decimal) bool {
	return dateKey(tx.Date) == dateKey(date) && tx.Description == description && tx.Amount.Equal(amount)
}

func (t *TransactionTable) FindByID(ctx context.Context, id int64) (*transaction.Transaction, error) {
	if err := t.m.fail("FindByID"); err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, tx := range t.m.state.transactions {
		if tx.ID == id {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, notFound("transaction", id)
}

func (t *TransactionTable) insertLocked(create *transaction.TransactionCreate) int64 {
	t.m.state.nextID++
	now := t.m.now()
	tx := &transaction.Transaction{
		ID:          t.m.state.nextID,
		Date:        create.Date,
		Description: create.Description,
		Amount:      create.Amount,
		Category:    strings.TrimSpace(create.Category),
		Flag:        strings.TrimSpace(create.Flag),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if create.UploadID != nil {
		id := *create.UploadID
		tx.UploadID = &id
	}
	if create.UploadBatch != nil {
		batch := *create.UploadBatch
		tx.UploadBatch = &batch
	}
	t.m.state.transactions = append(t.m.state.transactions, tx)
	return tx.ID
}

func (t *TransactionTable) Insert(ctx context.Context, create *transaction.TransactionCreate) (int64, error) {
	if err := t.m.fail("Insert"); err != nil {
		return 0, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return t.insertLocked(create), nil
}

func (t *TransactionTable) InsertBatch(ctx context.Context, creates []*transaction.TransactionCreate) (int64, error) {
	if err := t.m.fail("InsertBatch"); err != nil {
		return 0, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, create := range creates {
		t.insertLocked(create)
	}
	return int64(len(creates)), nil
}

func (t *TransactionTable) List(ctx context.Context, filter *transaction.TransactionFilter) ([]*transaction.Transaction, error) {
	if err := t.m.fail("List"); err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	var rows []*transaction.Transaction
	for _, tx := range t.m.state.transactions {
		if filter != nil {
			if filter.FlaggedOnly && tx.Flag == "" {
				continue
			}
			if filter.UncategorizedOnly && tx.Category != "" {
				continue
			}
			if filter.MaxCreationTime != nil && tx.CreatedAt.After(*filter.MaxCreationTime) {
				continue
			}
		}
		cp := *tx
		rows = append(rows, &cp)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})

	if filter != nil {
		if filter.Offset > 0 {
			if filter.Offset >= len(rows) {
				return nil, nil
			}
			rows = rows[filter.Offset:]
		}
		if filter.Limit > 0 && len(rows) > filter.Limit+1 {
			rows = rows[:filter.Limit+1]
		}
	}
	return rows, nil
}

func (t *TransactionTable) Update(ctx context.Context, id int64, update *transaction.TransactionUpdate) error {
	if err := t.m.fail("Update"); err != nil {
		return err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, tx := range t.m.state.transactions {
		if tx.ID != id {
			continue
		}
		if v, ok := update.Date.Get(); ok {
			tx.Date = v
		}
		if v, ok := update.Description.Get(); ok {
			tx.Description = v
		}
		if v, ok := update.Amount.Get(); ok {
			tx.Amount = v
		}
		if v, ok := update.Category.Get(); ok {
			tx.Category = strings.TrimSpace(v)
			tx.CategoryManualOverride = true
		}
		if v, ok := update.Flag.Get(); ok {
			tx.Flag = strings.TrimSpace(v)
			tx.FlagManualOverride = true
		}
		tx.UpdatedAt = t.m.now()
		return nil
	}
	return notFound("transaction", id)
}

func (t *TransactionTable) SetCategory(ctx context.Context, ids []int64, category string) (int64, error) {
	if err := t.m.fail("SetCategory"); err != nil {
		return 0, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	var n int64
	for _, tx := range t.m.state.transactions {
		if slices.Contains(ids, tx.ID) {
			tx.Category = strings.TrimSpace(category)
			tx.CategoryManualOverride = true
			n++
		}
	}
	return n, nil
}

func (t *TransactionTable) Categories(ctx context.Context) ([]string, error) {
	if err := t.m.fail("Categories"); err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	var categories []string
	for _, tx := range t.m.state.transactions {
		if tx.Category != "" {
			categories = append(categories, tx.Category)
		}
	}
	return sortedDistinct(categories), nil
}

func (t *TransactionTable) AssignWhereUnset(ctx context.Context, scope transaction.Scope, target transaction.Target, cond transaction.Condition, value string) (int64, error) {
	if err := t.m.fail("AssignWhereUnset"); err != nil {
		return 0, err
	}
	predicate := matcher.FromCondition(cond)

	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	var n int64
	for _, tx := range t.m.state.transactions {
		if !scope.Contains(tx) || strings.TrimSpace(tx.Value(target)) != "" || tx.Overridden(target) {
			continue
		}
		if transaction.IsProtectedFlag(tx.Flag) || !predicate.Matches(tx) {
			continue
		}
		tx.Set(target, value)
		n++
	}
	return n, nil
}

func (t *TransactionTable) ClearUnprotected(ctx context.Context, scope transaction.Scope) (int64, error) {
	if err := t.m.fail("ClearUnprotected"); err != nil {
		return 0, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	var n int64
	for _, target := range []transaction.Target{transaction.TargetCategory, transaction.TargetFlag} {
		for _, tx := range t.m.state.transactions {
			if !scope.Contains(tx) || tx.Value(target) == "" || tx.Overridden(target) || transaction.IsProtectedFlag(tx.Flag) {
				continue
			}
			tx.Set(target, "")
			n++
		}
	}
	return n, nil
}

func (t *TransactionTable) DuplicateGroups(ctx context.Context, scope transaction.Scope) ([]transaction.DuplicateGroup, error) {
	if err := t.m.fail("DuplicateGroups"); err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	var groups []transaction.DuplicateGroup
	counts := make(map[int]int)
	for _, tx := range t.m.state.transactions {
		if !scope.Contains(tx) {
			continue
		}
		idx := slices.IndexFunc(groups, func(g transaction.DuplicateGroup) bool {
			return sameDuplicateKey(tx, g.Date, g.Description, g.Amount)
		})
		if idx < 0 {
			groups = append(groups, transaction.DuplicateGroup{
				Date: tx.Date, Description: tx.Description, Amount: tx.Amount, FirstID: tx.ID,
			})
			idx = len(groups) - 1
		}
		groups[idx].FirstID = min(groups[idx].FirstID, tx.ID)
		counts[idx]++
	}

	var result []transaction.DuplicateGroup
	for i, g := range groups {
		if counts[i] > 1 {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FirstID < result[j].FirstID })
	return result, nil
}

func (t *TransactionTable) FlagDuplicates(ctx context.Context, scope transaction.Scope, group transaction.DuplicateGroup) (int64, error) {
	if err := t.m.fail("FlagDuplicates"); err != nil {
		return 0, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	var n int64
	for _, tx := range t.m.state.transactions {
		if !scope.Contains(tx) || !sameDuplicateKey(tx, group.Date, group.Description, group.Amount) {
			continue
		}
		if tx.ID == group.FirstID || tx.Flag == transaction.FlagDuplicate || transaction.IsProtectedFlag(tx.Flag) {
			continue
		}
		tx.Flag = transaction.FlagDuplicate
		tx.FlagManualOverride = true
		n++
	}
	return n, nil
}

func (t *TransactionTable) RecurringGroups(ctx context.Context, scope transaction.Scope) ([]transaction.RecurringGroup, error) {
	if err := t.m.fail("RecurringGroups"); err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	var groups []transaction.RecurringGroup
	dates := make(map[int]map[string]struct{})
	for _, tx := range t.m.state.transactions {
		if !scope.Contains(tx) {
			continue
		}
		idx := slices.IndexFunc(groups, func(g transaction.RecurringGroup) bool {
			return g.Description == tx.Description && g.Amount.Equal(tx.Amount)
		})
		if idx < 0 {
			groups = append(groups, transaction.RecurringGroup{Description: tx.Description, Amount: tx.Amount})
			idx = len(groups) - 1
			dates[idx] = make(map[string]struct{})
		}
		dates[idx][dateKey(tx.Date)] = struct{}{}
	}

	var result []transaction.RecurringGroup
	for i, g := range groups {
		if len(dates[i]) > 1 {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Description != result[j].Description {
			return result[i].Description < result[j].Description
		}
		return result[i].Amount.LessThan(result[j].Amount)
	})
	return result, nil
}

func (t *TransactionTable) FlagRecurring(ctx context.Context, scope transaction.Scope, group transaction.RecurringGroup) (int64, error) {
	if err := t.m.fail("FlagRecurring"); err != nil {
		return 0, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	var n int64
	for _, tx := range t.m.state.transactions {
		if !scope.Contains(tx) || tx.Description != group.Description || !tx.Amount.Equal(group.Amount) {
			continue
		}
		if tx.Flag == transaction.FlagDuplicate || tx.Flag == transaction.FlagRecurring || transaction.IsProtectedFlag(tx.Flag) {
			continue
		}
		tx.Flag = transaction.FlagRecurring
		tx.FlagManualOverride = true
		n++
	}
	return n, nil
}

func (t *TransactionTable) HasDuplicateOf(ctx context.Context, target *transaction.Transaction) (bool, error) {
	if err := t.m.fail("HasDuplicateOf"); err != nil {
		return false, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, tx := range t.m.state.transactions {
		if tx.ID != target.ID && sameDuplicateKey(tx, target.Date, target.Description, target.Amount) {
			return true, nil
		}
	}
	return false, nil
}

func (t *TransactionTable) HasRecurringOf(ctx context.Context, target *transaction.Transaction) (bool, error) {
	if err := t.m.fail("HasRecurringOf"); err != nil {
		return false, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, tx := range t.m.state.transactions {
		if tx.Description == target.Description && tx.Amount.Equal(target.Amount) && dateKey(tx.Date) != dateKey(target.Date) {
			return true, nil
		}
	}
	return false, nil
}

func (t *TransactionTable) SetAnomalyFlag(ctx context.Context, ids []int64, flag string) (int64, error) {
	if err := t.m.fail("SetAnomalyFlag"); err != nil {
		return 0, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	var n int64
	for _, tx := range t.m.state.transactions {
		if !slices.Contains(ids, tx.ID) || transaction.IsProtectedFlag(tx.Flag) {
			continue
		}
		tx.Flag = flag
		tx.FlagManualOverride = true
		n++
	}
	return n, nil
}

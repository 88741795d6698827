package transaction

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/scan"
)

const (
	tableName = "transactions"

	// Postgres caps bind parameters per statement, so large batches are
	// written in chunks.
	insertChunkSize = 1000
)

var selectColumns = []any{
	"id", "date", "description", "amount", "category", "flag",
	"category_manual_override", "flag_manual_override",
	"upload_id", "upload_batch", "created_at", "updated_at",
}

var insertColumns = []string{
	"date", "description", "amount", "category", "flag", "upload_id", "upload_batch",
}

type transactionRow struct {
	ID                     int64               `db:"id"`
	Date                   time.Time           `db:"date"`
	Description            string              `db:"description"`
	Amount                 decimal.Decimal     `db:"amount"`
	Category               string              `db:"category"`
	Flag                   string              `db:"flag"`
	CategoryManualOverride bool                `db:"category_manual_override"`
	FlagManualOverride     bool                `db:"flag_manual_override"`
	UploadID               null.Val[uuid.UUID] `db:"upload_id"`
	UploadBatch            null.Val[int64]     `db:"upload_batch"`
	CreatedAt              time.Time           `db:"created_at"`
	UpdatedAt              time.Time           `db:"updated_at"`
}

func rowToTransaction(row transactionRow) *Transaction {
	tx := &Transaction{
		ID:                     row.ID,
		Date:                   row.Date,
		Description:            row.Description,
		Amount:                 row.Amount,
		Category:               row.Category,
		Flag:                   row.Flag,
		CategoryManualOverride: row.CategoryManualOverride,
		FlagManualOverride:     row.FlagManualOverride,
		CreatedAt:              row.CreatedAt,
		UpdatedAt:              row.UpdatedAt,
	}
	if id, ok := row.UploadID.Get(); ok {
		tx.UploadID = &id
	}
	if batch, ok := row.UploadBatch.Get(); ok {
		b := int(batch)
		tx.UploadBatch = &b
	}
	return tx
}

var _ ITransactionTable = (*Table)(nil)

// Table provides access to the transactions table through any bob executor,
// so the same code serves pooled reads and writes inside a transaction.
type Table struct {
	exec bob.Executor
}

func NewTable(exec bob.Executor) *Table {
	return &Table{exec: exec}
}

func notProtected() bob.Expression {
	return psql.Raw("lower(btrim(flag)) <> ?", strings.ToLower(FlagReviewed))
}

func selectWhere(exprs ...bob.Expression) []bob.Mod[*dialect.SelectQuery] {
	mods := make([]bob.Mod[*dialect.SelectQuery], len(exprs))
	for i, e := range exprs {
		mods[i] = sm.Where(e)
	}
	return mods
}

func updateWhere(exprs ...bob.Expression) []bob.Mod[*dialect.UpdateQuery] {
	mods := make([]bob.Mod[*dialect.UpdateQuery], len(exprs))
	for i, e := range exprs {
		mods[i] = um.Where(e)
	}
	return mods
}

func (t *Table) execUpdate(ctx context.Context, mods []bob.Mod[*dialect.UpdateQuery]) (int64, error) {
	result, err := bob.Exec(ctx, t.exec, psql.Update(mods...))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func createValues(create *TransactionCreate) []bob.Expression {
	var uploadID, uploadBatch any
	if create.UploadID != nil {
		uploadID = create.UploadID.String()
	}
	if create.UploadBatch != nil {
		uploadBatch = *create.UploadBatch
	}
	return []bob.Expression{
		psql.Arg(create.Date.Format(time.DateOnly)),
		psql.Arg(create.Description),
		psql.Arg(create.Amount.String()),
		psql.Arg(strings.TrimSpace(create.Category)),
		psql.Arg(strings.TrimSpace(create.Flag)),
		psql.Arg(uploadID),
		psql.Arg(uploadBatch),
	}
}

// FindByID retrieves a transaction by primary key.
func (t *Table) FindByID(ctx context.Context, id int64) (*Transaction, error) {
	q := psql.Select(
		sm.Columns(selectColumns...),
		sm.From(tableName),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	row, err := bob.One(ctx, t.exec, q, scan.StructMapper[transactionRow]())
	if err != nil {
		return nil, errors.Wrapf(err, "transaction.FindByID %d", id)
	}
	return rowToTransaction(row), nil
}

// Insert creates a new transaction and returns its generated ID.
func (t *Table) Insert(ctx context.Context, create *TransactionCreate) (int64, error) {
	q := psql.Insert(
		im.Into(tableName, insertColumns...),
		im.Values(createValues(create)...),
		im.Returning("id"),
	)
	id, err := bob.One(ctx, t.exec, q, scan.SingleColumnMapper[int64])
	if err != nil {
		return 0, errors.Wrap(err, "transaction.Insert")
	}
	return id, nil
}

// InsertBatch bulk-inserts rows without reading them back.
func (t *Table) InsertBatch(ctx context.Context, creates []*TransactionCreate) (int64, error) {
	var inserted int64
	for start := 0; start < len(creates); start += insertChunkSize {
		end := min(start+insertChunkSize, len(creates))

		mods := []bob.Mod[*dialect.InsertQuery]{im.Into(tableName, insertColumns...)}
		for _, create := range creates[start:end] {
			mods = append(mods, im.Values(createValues(create)...))
		}

		result, err := bob.Exec(ctx, t.exec, psql.Insert(mods...))
		if err != nil {
			return inserted, errors.Wrap(err, "transaction.InsertBatch")
		}
		n, err := result.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += n
	}
	return inserted, nil
}

// List returns transactions matching the filter, newest first. A positive
// limit fetches one extra row so callers can detect a further page.
func (t *Table) List(ctx context.Context, filter *TransactionFilter) ([]*Transaction, error) {
	queryMods := []bob.Mod[*dialect.SelectQuery]{
		sm.Columns(selectColumns...),
		sm.From(tableName),
	}
	if filter != nil {
		if filter.FlaggedOnly {
			queryMods = append(queryMods, sm.Where(psql.Raw("flag <> ''")))
		}
		if filter.UncategorizedOnly {
			queryMods = append(queryMods, sm.Where(psql.Raw("category = ''")))
		}
		if filter.MaxCreationTime != nil {
			queryMods = append(queryMods, sm.Where(psql.Raw("created_at <= ?", *filter.MaxCreationTime)))
		}
		if filter.Limit > 0 {
			queryMods = append(queryMods, sm.Limit(filter.Limit+1))
		}
		if filter.Offset > 0 {
			queryMods = append(queryMods, sm.Offset(filter.Offset))
		}
	}
	queryMods = append(queryMods,
		sm.OrderBy("created_at").Desc(),
		sm.OrderBy("id").Desc(),
	)

	rows, err := bob.All(ctx, t.exec, psql.Select(queryMods...), scan.StructMapper[transactionRow]())
	if err != nil {
		return nil, errors.Wrap(err, "transaction.List")
	}
	result := make([]*Transaction, len(rows))
	for i, row := range rows {
		result[i] = rowToTransaction(row)
	}
	return result, nil
}

// Update applies a manual edit. Category and flag edits set their override.
func (t *Table) Update(ctx context.Context, id int64, update *TransactionUpdate) error {
	mods := []bob.Mod[*dialect.UpdateQuery]{um.Table(tableName)}
	if date, ok := update.Date.Get(); ok {
		mods = append(mods, um.SetCol("date").ToArg(date.Format(time.DateOnly)))
	}
	if description, ok := update.Description.Get(); ok {
		mods = append(mods, um.SetCol("description").ToArg(description))
	}
	if amount, ok := update.Amount.Get(); ok {
		mods = append(mods, um.SetCol("amount").ToArg(amount.String()))
	}
	if category, ok := update.Category.Get(); ok {
		mods = append(mods,
			um.SetCol("category").ToArg(strings.TrimSpace(category)),
			um.SetCol("category_manual_override").ToArg(true),
		)
	}
	if flag, ok := update.Flag.Get(); ok {
		mods = append(mods,
			um.SetCol("flag").ToArg(strings.TrimSpace(flag)),
			um.SetCol("flag_manual_override").ToArg(true),
		)
	}
	mods = append(mods,
		um.SetCol("updated_at").To(psql.Raw("NOW()")),
		um.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)

	n, err := t.execUpdate(ctx, mods)
	if err != nil {
		return errors.Wrapf(err, "transaction.Update %d", id)
	}
	if n == 0 {
		return errors.Wrapf(sql.ErrNoRows, "transaction.Update %d", id)
	}
	return nil
}

// SetCategory assigns a category to the given rows as a manual choice.
func (t *Table) SetCategory(ctx context.Context, ids []int64, category string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	mods := []bob.Mod[*dialect.UpdateQuery]{
		um.Table(tableName),
		um.SetCol("category").ToArg(strings.TrimSpace(category)),
		um.SetCol("category_manual_override").ToArg(true),
		um.SetCol("updated_at").To(psql.Raw("NOW()")),
		um.Where(psql.Raw("id = ANY(?)", pq.Array(ids))),
	}
	n, err := t.execUpdate(ctx, mods)
	return n, errors.Wrap(err, "transaction.SetCategory")
}

// Categories lists the distinct non-blank categories in use.
func (t *Table) Categories(ctx context.Context) ([]string, error) {
	q := psql.Select(
		sm.Distinct(),
		sm.Columns("category"),
		sm.From(tableName),
		sm.Where(psql.Raw("category <> ''")),
	)
	categories, err := bob.All(ctx, t.exec, q, scan.SingleColumnMapper[string])
	if err != nil {
		return nil, errors.Wrap(err, "transaction.Categories")
	}
	return categories, nil
}

func (t *Table) AssignWhereUnset(ctx context.Context, scope Scope, target Target, cond Condition, value string) (int64, error) {
	mods := []bob.Mod[*dialect.UpdateQuery]{
		um.Table(tableName),
		um.SetCol(target.column()).ToArg(value),
		um.SetCol("updated_at").To(psql.Raw("NOW()")),
	}
	mods = append(mods, updateWhere(scope.expressions()...)...)
	mods = append(mods, updateWhere(
		psql.Raw("btrim("+target.column()+") = ''"),
		psql.Raw(target.overrideColumn()+" = FALSE"),
		notProtected(),
		cond.expression(),
	)...)

	n, err := t.execUpdate(ctx, mods)
	return n, errors.Wrapf(err, "transaction.AssignWhereUnset %s", target)
}

func (t *Table) ClearUnprotected(ctx context.Context, scope Scope) (int64, error) {
	var cleared int64
	for _, target := range []Target{TargetCategory, TargetFlag} {
		mods := []bob.Mod[*dialect.UpdateQuery]{
			um.Table(tableName),
			um.SetCol(target.column()).ToArg(""),
			um.SetCol("updated_at").To(psql.Raw("NOW()")),
		}
		mods = append(mods, updateWhere(scope.expressions()...)...)
		mods = append(mods, updateWhere(
			psql.Raw(target.column()+" <> ''"),
			psql.Raw(target.overrideColumn()+" = FALSE"),
			notProtected(),
		)...)

		n, err := t.execUpdate(ctx, mods)
		if err != nil {
			return cleared, errors.Wrapf(err, "transaction.ClearUnprotected %s", target)
		}
		cleared += n
	}
	return cleared, nil
}

type duplicateGroupRow struct {
	Date        time.Time       `db:"date"`
	Description string          `db:"description"`
	Amount      decimal.Decimal `db:"amount"`
	FirstID     int64           `db:"first_id"`
}

func (t *Table) DuplicateGroups(ctx context.Context, scope Scope) ([]DuplicateGroup, error) {
	queryMods := []bob.Mod[*dialect.SelectQuery]{
		sm.Columns("date", "description", "amount", psql.Raw("MIN(id) AS first_id")),
		sm.From(tableName),
	}
	queryMods = append(queryMods, selectWhere(scope.expressions()...)...)
	queryMods = append(queryMods,
		sm.GroupBy("date"),
		sm.GroupBy("description"),
		sm.GroupBy("amount"),
		sm.Having(psql.Raw("COUNT(*) > 1")),
		sm.OrderBy("first_id"),
	)

	rows, err := bob.All(ctx, t.exec, psql.Select(queryMods...), scan.StructMapper[duplicateGroupRow]())
	if err != nil {
		return nil, errors.Wrap(err, "transaction.DuplicateGroups")
	}
	groups := make([]DuplicateGroup, len(rows))
	for i, row := range rows {
		groups[i] = DuplicateGroup(row)
	}
	return groups, nil
}

func (t *Table) FlagDuplicates(ctx context.Context, scope Scope, group DuplicateGroup) (int64, error) {
	mods := []bob.Mod[*dialect.UpdateQuery]{
		um.Table(tableName),
		um.SetCol("flag").ToArg(FlagDuplicate),
		um.SetCol("flag_manual_override").ToArg(true),
		um.SetCol("updated_at").To(psql.Raw("NOW()")),
	}
	mods = append(mods, updateWhere(scope.expressions()...)...)
	mods = append(mods, updateWhere(
		psql.Raw("date = ? AND description = ? AND amount = ?",
			group.Date.Format(time.DateOnly), group.Description, group.Amount.String()),
		psql.Raw("id <> ?", group.FirstID),
		psql.Raw("flag <> ?", FlagDuplicate),
		notProtected(),
	)...)

	n, err := t.execUpdate(ctx, mods)
	return n, errors.Wrap(err, "transaction.FlagDuplicates")
}

type recurringGroupRow struct {
	Description string          `db:"description"`
	Amount      decimal.Decimal `db:"amount"`
}

func (t *Table) RecurringGroups(ctx context.Context, scope Scope) ([]RecurringGroup, error) {
	queryMods := []bob.Mod[*dialect.SelectQuery]{
		sm.Columns("description", "amount"),
		sm.From(tableName),
	}
	queryMods = append(queryMods, selectWhere(scope.expressions()...)...)
	queryMods = append(queryMods,
		sm.GroupBy("description"),
		sm.GroupBy("amount"),
		sm.Having(psql.Raw("COUNT(DISTINCT date) > 1")),
		sm.OrderBy("description"),
		sm.OrderBy("amount"),
	)

	rows, err := bob.All(ctx, t.exec, psql.Select(queryMods...), scan.StructMapper[recurringGroupRow]())
	if err != nil {
		return nil, errors.Wrap(err, "transaction.RecurringGroups")
	}
	groups := make([]RecurringGroup, len(rows))
	for i, row := range rows {
		groups[i] = RecurringGroup(row)
	}
	return groups, nil
}

func (t *Table) FlagRecurring(ctx context.Context, scope Scope, group RecurringGroup) (int64, error) {
	mods := []bob.Mod[*dialect.UpdateQuery]{
		um.Table(tableName),
		um.SetCol("flag").ToArg(FlagRecurring),
		um.SetCol("flag_manual_override").ToArg(true),
		um.SetCol("updated_at").To(psql.Raw("NOW()")),
	}
	mods = append(mods, updateWhere(scope.expressions()...)...)
	mods = append(mods, updateWhere(
		psql.Raw("description = ? AND amount = ?", group.Description, group.Amount.String()),
		psql.Raw("flag NOT IN (?, ?)", FlagDuplicate, FlagRecurring),
		notProtected(),
	)...)

	n, err := t.execUpdate(ctx, mods)
	return n, errors.Wrap(err, "transaction.FlagRecurring")
}

func (t *Table) exists(ctx context.Context, exprs ...bob.Expression) (bool, error) {
	queryMods := []bob.Mod[*dialect.SelectQuery]{
		sm.Columns(psql.Raw("1")),
		sm.From(tableName),
	}
	queryMods = append(queryMods, selectWhere(exprs...)...)
	queryMods = append(queryMods, sm.Limit(1))

	found, err := bob.All(ctx, t.exec, psql.Select(queryMods...), scan.SingleColumnMapper[int])
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// HasDuplicateOf reports whether another row shares date, description and amount with tx.
func (t *Table) HasDuplicateOf(ctx context.Context, tx *Transaction) (bool, error) {
	found, err := t.exists(ctx,
		psql.Raw("date = ? AND description = ? AND amount = ?",
			tx.Date.Format(time.DateOnly), tx.Description, tx.Amount.String()),
		psql.Raw("id <> ?", tx.ID),
	)
	return found, errors.Wrap(err, "transaction.HasDuplicateOf")
}

// HasRecurringOf reports whether a row on another date shares description and amount with tx.
func (t *Table) HasRecurringOf(ctx context.Context, tx *Transaction) (bool, error) {
	found, err := t.exists(ctx,
		psql.Raw("description = ? AND amount = ?", tx.Description, tx.Amount.String()),
		psql.Raw("date <> ?", tx.Date.Format(time.DateOnly)),
	)
	return found, errors.Wrap(err, "transaction.HasRecurringOf")
}

func (t *Table) SetAnomalyFlag(ctx context.Context, ids []int64, flag string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	mods := []bob.Mod[*dialect.UpdateQuery]{
		um.Table(tableName),
		um.SetCol("flag").ToArg(flag),
		um.SetCol("flag_manual_override").ToArg(true),
		um.SetCol("updated_at").To(psql.Raw("NOW()")),
		um.Where(psql.Raw("id = ANY(?)", pq.Array(ids))),
		um.Where(notProtected()),
	}
	n, err := t.execUpdate(ctx, mods)
	return n, errors.Wrap(err, "transaction.SetAnomalyFlag")
}

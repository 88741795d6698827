package rule

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/scan"
)

const tableName = "category_rules"

var selectColumns = []any{
	"id", "name", "field", "operator", "value", "category", "flag",
	"priority", "active", "created_at", "updated_at",
}

type ruleRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Field     string    `db:"field"`
	Operator  string    `db:"operator"`
	Value     string    `db:"value"`
	Category  string    `db:"category"`
	Flag      string    `db:"flag"`
	Priority  int       `db:"priority"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func rowToRule(row ruleRow) *Rule {
	return &Rule{
		ID:        row.ID,
		Name:      row.Name,
		Field:     Field(row.Field),
		Operator:  Operator(row.Operator),
		Value:     row.Value,
		Category:  row.Category,
		Flag:      row.Flag,
		Priority:  row.Priority,
		Active:    row.Active,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

var _ IRuleTable = (*Table)(nil)

// Table provides access to the category_rules table.
type Table struct {
	exec bob.Executor
}

func NewTable(exec bob.Executor) *Table {
	return &Table{exec: exec}
}

func (t *Table) FindByID(ctx context.Context, id uuid.UUID) (*Rule, error) {
	q := psql.Select(
		sm.Columns(selectColumns...),
		sm.From(tableName),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id.String()))),
	)
	row, err := bob.One(ctx, t.exec, q, scan.StructMapper[ruleRow]())
	if err != nil {
		return nil, errors.Wrapf(err, "rule.FindByID %s", id)
	}
	return rowToRule(row), nil
}

func (t *Table) Insert(ctx context.Context, create *RuleCreate) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	q := psql.Insert(
		im.Into(tableName, "id", "name", "field", "operator", "value", "category", "flag", "priority", "active"),
		im.Values(
			psql.Arg(id.String()),
			psql.Arg(strings.TrimSpace(create.Name)),
			psql.Arg(string(create.Field)),
			psql.Arg(string(create.Operator)),
			psql.Arg(create.Value),
			psql.Arg(strings.TrimSpace(create.Category)),
			psql.Arg(strings.TrimSpace(create.Flag)),
			psql.Arg(create.Priority),
			psql.Arg(create.Active),
		),
	)
	if _, err := bob.Exec(ctx, t.exec, q); err != nil {
		return uuid.Nil, errors.Wrap(err, "rule.Insert")
	}
	return id, nil
}

func (t *Table) Update(ctx context.Context, id uuid.UUID, update *RuleUpdate) error {
	mods := []bob.Mod[*dialect.UpdateQuery]{um.Table(tableName)}
	if v, ok := update.Name.Get(); ok {
		mods = append(mods, um.SetCol("name").ToArg(strings.TrimSpace(v)))
	}
	if v, ok := update.Field.Get(); ok {
		mods = append(mods, um.SetCol("field").ToArg(string(v)))
	}
	if v, ok := update.Operator.Get(); ok {
		mods = append(mods, um.SetCol("operator").ToArg(string(v)))
	}
	if v, ok := update.Value.Get(); ok {
		mods = append(mods, um.SetCol("value").ToArg(v))
	}
	if v, ok := update.Category.Get(); ok {
		mods = append(mods, um.SetCol("category").ToArg(strings.TrimSpace(v)))
	}
	if v, ok := update.Flag.Get(); ok {
		mods = append(mods, um.SetCol("flag").ToArg(strings.TrimSpace(v)))
	}
	if v, ok := update.Priority.Get(); ok {
		mods = append(mods, um.SetCol("priority").ToArg(v))
	}
	if v, ok := update.Active.Get(); ok {
		mods = append(mods, um.SetCol("active").ToArg(v))
	}
	mods = append(mods,
		um.SetCol("updated_at").To(psql.Raw("NOW()")),
		um.Where(psql.Quote("id").EQ(psql.Arg(id.String()))),
	)

	result, err := bob.Exec(ctx, t.exec, psql.Update(mods...))
	if err != nil {
		return errors.Wrapf(err, "rule.Update %s", id)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.Wrapf(sql.ErrNoRows, "rule.Update %s", id)
	}
	return nil
}

func (t *Table) Delete(ctx context.Context, id uuid.UUID) error {
	q := psql.Delete(
		dm.From(tableName),
		dm.Where(psql.Quote("id").EQ(psql.Arg(id.String()))),
	)
	result, err := bob.Exec(ctx, t.exec, q)
	if err != nil {
		return errors.Wrapf(err, "rule.Delete %s", id)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.Wrapf(sql.ErrNoRows, "rule.Delete %s", id)
	}
	return nil
}

func (t *Table) list(ctx context.Context, activeOnly bool) ([]*Rule, error) {
	queryMods := []bob.Mod[*dialect.SelectQuery]{
		sm.Columns(selectColumns...),
		sm.From(tableName),
	}
	if activeOnly {
		queryMods = append(queryMods, sm.Where(psql.Raw("active = TRUE")))
	}
	queryMods = append(queryMods,
		sm.OrderBy("priority").Desc(),
		sm.OrderBy("created_at").Asc(),
		sm.OrderBy("id").Asc(),
	)

	rows, err := bob.All(ctx, t.exec, psql.Select(queryMods...), scan.StructMapper[ruleRow]())
	if err != nil {
		return nil, err
	}
	rules := make([]*Rule, len(rows))
	for i, row := range rows {
		rules[i] = rowToRule(row)
	}
	return rules, nil
}

func (t *Table) List(ctx context.Context) ([]*Rule, error) {
	rules, err := t.list(ctx, false)
	return rules, errors.Wrap(err, "rule.List")
}

func (t *Table) ListActive(ctx context.Context) ([]*Rule, error) {
	rules, err := t.list(ctx, true)
	return rules, errors.Wrap(err, "rule.ListActive")
}

func (t *Table) Categories(ctx context.Context) ([]string, error) {
	q := psql.Select(
		sm.Distinct(),
		sm.Columns("category"),
		sm.From(tableName),
		sm.Where(psql.Raw("category <> ''")),
	)
	categories, err := bob.All(ctx, t.exec, q, scan.SingleColumnMapper[string])
	if err != nil {
		return nil, errors.Wrap(err, "rule.Categories")
	}
	return categories, nil
}

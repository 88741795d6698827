package upload

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/scan"
)

const tableName = "csv_uploads"

var selectColumns = []any{
	"id", "filename", "status", "total_rows", "processed_rows", "successful_rows",
	"failed_rows", "error_message", "error_details", "created_at", "updated_at",
}

type uploadRow struct {
	ID             uuid.UUID        `db:"id"`
	Filename       string           `db:"filename"`
	Status         string           `db:"status"`
	TotalRows      int              `db:"total_rows"`
	ProcessedRows  int              `db:"processed_rows"`
	SuccessfulRows int              `db:"successful_rows"`
	FailedRows     int              `db:"failed_rows"`
	ErrorMessage   null.Val[string] `db:"error_message"`
	ErrorDetails   []byte           `db:"error_details"`
	CreatedAt      time.Time        `db:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at"`
}

func rowToUpload(row uploadRow) (*Upload, error) {
	u := &Upload{
		ID:             row.ID,
		Filename:       row.Filename,
		Status:         Status(row.Status),
		TotalRows:      row.TotalRows,
		ProcessedRows:  row.ProcessedRows,
		SuccessfulRows: row.SuccessfulRows,
		FailedRows:     row.FailedRows,
		ErrorMessage:   row.ErrorMessage.GetOrZero(),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if len(row.ErrorDetails) > 0 {
		if err := json.Unmarshal(row.ErrorDetails, &u.ErrorDetails); err != nil {
			return nil, errors.Wrap(err, "decode error_details")
		}
	}
	return u, nil
}

var _ IUploadTable = (*Table)(nil)

// Table provides access to the csv_uploads table.
type Table struct {
	exec bob.Executor
}

func NewTable(exec bob.Executor) *Table {
	return &Table{exec: exec}
}

// Create inserts a pending upload.
func (t *Table) Create(ctx context.Context, filename string) (*Upload, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	q := psql.Insert(
		im.Into(tableName, "id", "filename", "status"),
		im.Values(psql.Arg(id.String()), psql.Arg(filename), psql.Arg(string(StatusPending))),
	)
	if _, err := bob.Exec(ctx, t.exec, q); err != nil {
		return nil, errors.Wrap(err, "upload.Create")
	}
	return t.FindByID(ctx, id)
}

func (t *Table) FindByID(ctx context.Context, id uuid.UUID) (*Upload, error) {
	q := psql.Select(
		sm.Columns(selectColumns...),
		sm.From(tableName),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id.String()))),
	)
	row, err := bob.One(ctx, t.exec, q, scan.StructMapper[uploadRow]())
	if err != nil {
		return nil, errors.Wrapf(err, "upload.FindByID %s", id)
	}
	return rowToUpload(row)
}

func (t *Table) Save(ctx context.Context, u *Upload) error {
	details := u.ErrorDetails
	if details == nil {
		details = []RowError{}
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		return errors.Wrap(err, "encode error_details")
	}

	var errorMessage any
	if u.ErrorMessage != "" {
		errorMessage = u.ErrorMessage
	}

	q := psql.Update(
		um.Table(tableName),
		um.SetCol("status").ToArg(string(u.Status)),
		um.SetCol("total_rows").ToArg(u.TotalRows),
		um.SetCol("processed_rows").ToArg(u.ProcessedRows),
		um.SetCol("successful_rows").ToArg(u.SuccessfulRows),
		um.SetCol("failed_rows").ToArg(u.FailedRows),
		um.SetCol("error_message").ToArg(errorMessage),
		um.SetCol("error_details").ToArg(string(encoded)),
		um.SetCol("updated_at").To(psql.Raw("NOW()")),
		um.Where(psql.Quote("id").EQ(psql.Arg(u.ID.String()))),
	)
	result, err := bob.Exec(ctx, t.exec, q)
	if err != nil {
		return errors.Wrapf(err, "upload.Save %s", u.ID)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.Wrapf(sql.ErrNoRows, "upload.Save %s", u.ID)
	}
	return nil
}

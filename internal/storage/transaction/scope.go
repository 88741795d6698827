package transaction

import (
	"slices"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/lib/pq"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
)

// Scope restricts a set-wide operation to a subset of the ledger. The zero
// value selects nothing; use AllTransactions for the whole ledger.
type Scope struct {
	all          bool
	ids          []int64
	uploadID     uuid.UUID
	uploadBatch  int
	byBatch      bool
	createdSince time.Time
}

// AllTransactions selects every row in the ledger.
func AllTransactions() Scope {
	return Scope{all: true}
}

// ForIDs selects the given rows.
func ForIDs(ids ...int64) Scope {
	return Scope{ids: slices.Clone(ids)}
}

// ForUploadBatch selects the rows one import flush inserted.
func ForUploadBatch(uploadID uuid.UUID, batch int) Scope {
	return Scope{uploadID: uploadID, uploadBatch: batch, byBatch: true}
}

// CreatedSince narrows the scope to rows created at or after t.
func (s Scope) CreatedSince(t time.Time) Scope {
	s.createdSince = t
	return s
}

// IsEmpty reports whether the scope can match no row at all.
func (s Scope) IsEmpty() bool {
	return !s.all && !s.byBatch && len(s.ids) == 0
}

// Contains evaluates the scope against an in-memory row.
func (s Scope) Contains(tx *Transaction) bool {
	if s.IsEmpty() {
		return false
	}
	if len(s.ids) > 0 && !slices.Contains(s.ids, tx.ID) {
		return false
	}
	if s.byBatch {
		if tx.UploadID == nil || *tx.UploadID != s.uploadID {
			return false
		}
		if tx.UploadBatch == nil || *tx.UploadBatch != s.uploadBatch {
			return false
		}
	}
	if !s.createdSince.IsZero() && tx.CreatedAt.Before(s.createdSince) {
		return false
	}
	return true
}

func (s Scope) expressions() []bob.Expression {
	if s.IsEmpty() {
		return []bob.Expression{psql.Raw("FALSE")}
	}

	var exprs []bob.Expression
	if len(s.ids) > 0 {
		exprs = append(exprs, psql.Raw("id = ANY(?)", pq.Array(s.ids)))
	}
	if s.byBatch {
		exprs = append(exprs, psql.Raw("upload_id = ? AND upload_batch = ?", s.uploadID.String(), s.uploadBatch))
	}
	if !s.createdSince.IsZero() {
		exprs = append(exprs, psql.Raw("created_at >= ?", s.createdSince))
	}
	return exprs
}

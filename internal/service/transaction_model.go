package service

import (
	"time"

	"github.com/aarondl/opt/omit"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

// Transaction represents a transaction in the service layer.
type Transaction struct {
	ID                     int64
	Date                   time.Time
	Description            string
	Amount                 decimal.Decimal
	Category               string
	Flag                   string
	CategoryManualOverride bool
	FlagManualOverride     bool
	CreatedAt              time.Time
}

func fromStorageTransaction(row *transaction.Transaction) Transaction {
	return Transaction{
		ID:                     row.ID,
		Date:                   row.Date,
		Description:            row.Description,
		Amount:                 row.Amount,
		Category:               row.Category,
		Flag:                   row.Flag,
		CategoryManualOverride: row.CategoryManualOverride,
		FlagManualOverride:     row.FlagManualOverride,
		CreatedAt:              row.CreatedAt,
	}
}

// TransactionEdit is a manual change. Set category or flag values are
// pinned against automated changes.
type TransactionEdit struct {
	Date        omit.Val[time.Time]
	Description omit.Val[string]
	Amount      omit.Val[decimal.Decimal]
	Category    omit.Val[string]
	Flag        omit.Val[string]
}

// TransactionListFilter narrows a listing to dashboard views.
type TransactionListFilter struct {
	FlaggedOnly       bool
	UncategorizedOnly bool
}

// TransactionCursor identifies a position in a paginated result set
// and carries the limit and maxCreationTime so subsequent pages are consistent.
type TransactionCursor struct {
	Position        int
	Limit           int
	MaxCreationTime time.Time
	Filter          TransactionListFilter
}

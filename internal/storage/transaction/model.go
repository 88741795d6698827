package transaction

import (
	"context"
	"strings"
	"time"

	"github.com/aarondl/opt/omit"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

const (
	FlagReviewed  = "Reviewed"
	FlagDuplicate = "Duplicate"
	FlagRecurring = "Recurring"
)

// IsProtectedFlag reports whether the flag marks a row that automated
// processes must leave alone.
func IsProtectedFlag(flag string) bool {
	return strings.EqualFold(strings.TrimSpace(flag), FlagReviewed)
}

// Transaction represents a transaction record.
type Transaction struct {
	ID                     int64
	Date                   time.Time
	Description            string
	Amount                 decimal.Decimal
	Category               string
	Flag                   string
	CategoryManualOverride bool
	FlagManualOverride     bool
	UploadID               *uuid.UUID
	UploadBatch            *int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Value returns the current value of the target field.
func (t *Transaction) Value(target Target) string {
	if target == TargetFlag {
		return t.Flag
	}
	return t.Category
}

// Overridden reports whether a human has pinned the target field.
func (t *Transaction) Overridden(target Target) bool {
	if target == TargetFlag {
		return t.FlagManualOverride
	}
	return t.CategoryManualOverride
}

// Set assigns the target field without touching its override flag.
func (t *Transaction) Set(target Target, value string) {
	if target == TargetFlag {
		t.Flag = value
		return
	}
	t.Category = value
}

// TransactionCreate is the input for creating a new transaction.
type TransactionCreate struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Category    string
	Flag        string
	UploadID    *uuid.UUID
	UploadBatch *int
}

// TransactionUpdate carries a manual edit. Setting Category or Flag pins
// the field with its manual override.
type TransactionUpdate struct {
	Date        omit.Val[time.Time]
	Description omit.Val[string]
	Amount      omit.Val[decimal.Decimal]
	Category    omit.Val[string]
	Flag        omit.Val[string]
}

// TransactionFilter specifies filters for listing transactions.
type TransactionFilter struct {
	FlaggedOnly       bool
	UncategorizedOnly bool
	Limit             int
	Offset            int
	MaxCreationTime   *time.Time
}

// DuplicateGroup is a set of rows sharing date, description and amount.
type DuplicateGroup struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	FirstID     int64
}

// RecurringGroup is a set of rows sharing description and amount across
// more than one date.
type RecurringGroup struct {
	Description string
	Amount      decimal.Decimal
}

// Target is a field that rules and anomaly detection assign.
type Target int

const (
	TargetCategory Target = iota
	TargetFlag
)

func (t Target) String() string {
	if t == TargetFlag {
		return "flag"
	}
	return "category"
}

func (t Target) column() string {
	return t.String()
}

func (t Target) overrideColumn() string {
	return t.String() + "_manual_override"
}

// ITransactionTable defines the interface for transaction storage operations.
// This abstraction allows swapping the implementation (e.g. Bob) without changing callers.
type ITransactionTable interface {
	FindByID(ctx context.Context, id int64) (*Transaction, error)
	Insert(ctx context.Context, create *TransactionCreate) (int64, error)
	InsertBatch(ctx context.Context, creates []*TransactionCreate) (int64, error)
	List(ctx context.Context, filter *TransactionFilter) ([]*Transaction, error)
	Update(ctx context.Context, id int64, update *TransactionUpdate) error
	SetCategory(ctx context.Context, ids []int64, category string) (int64, error)
	Categories(ctx context.Context) ([]string, error)

	// AssignWhereUnset writes value into target for every row in scope that
	// matches cond, has target blank, is not overridden and is not protected.
	AssignWhereUnset(ctx context.Context, scope Scope, target Target, cond Condition, value string) (int64, error)
	// ClearUnprotected blanks category and flag on rows in scope that are
	// neither overridden nor protected, per field.
	ClearUnprotected(ctx context.Context, scope Scope) (int64, error)

	DuplicateGroups(ctx context.Context, scope Scope) ([]DuplicateGroup, error)
	FlagDuplicates(ctx context.Context, scope Scope, group DuplicateGroup) (int64, error)
	RecurringGroups(ctx context.Context, scope Scope) ([]RecurringGroup, error)
	FlagRecurring(ctx context.Context, scope Scope, group RecurringGroup) (int64, error)
	HasDuplicateOf(ctx context.Context, tx *Transaction) (bool, error)
	HasRecurringOf(ctx context.Context, tx *Transaction) (bool, error)
	// SetAnomalyFlag labels the given rows and pins the flag.
	SetAnomalyFlag(ctx context.Context, ids []int64, flag string) (int64, error)
}

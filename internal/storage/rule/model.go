package rule

import (
	"context"
	"time"

	"github.com/aarondl/opt/omit"
	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

// Field is the transaction attribute a rule inspects.
type Field string

const (
	FieldDescription Field = "description"
	FieldAmount      Field = "amount"
)

// Operator is the comparison a rule applies to its field.
type Operator string

const (
	OperatorContains    Operator = "contains"
	OperatorEquals      Operator = "equals"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
)

// Rule represents a category rule record.
type Rule struct {
	ID        uuid.UUID
	Name      string
	Field     Field
	Operator  Operator
	Value     string
	Category  string
	Flag      string
	Priority  int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TargetValue returns what the rule writes into the given target.
func (r *Rule) TargetValue(target transaction.Target) string {
	if target == transaction.TargetFlag {
		return r.Flag
	}
	return r.Category
}

// RuleCreate is the input for creating a new rule.
type RuleCreate struct {
	Name     string
	Field    Field
	Operator Operator
	Value    string
	Category string
	Flag     string
	Priority int
	Active   bool
}

// RuleUpdate carries the fields to change on an existing rule.
type RuleUpdate struct {
	Name     omit.Val[string]
	Field    omit.Val[Field]
	Operator omit.Val[Operator]
	Value    omit.Val[string]
	Category omit.Val[string]
	Flag     omit.Val[string]
	Priority omit.Val[int]
	Active   omit.Val[bool]
}

// Apply returns a copy of r with the update's set fields applied.
func (u *RuleUpdate) Apply(r Rule) Rule {
	if v, ok := u.Name.Get(); ok {
		r.Name = v
	}
	if v, ok := u.Field.Get(); ok {
		r.Field = v
	}
	if v, ok := u.Operator.Get(); ok {
		r.Operator = v
	}
	if v, ok := u.Value.Get(); ok {
		r.Value = v
	}
	if v, ok := u.Category.Get(); ok {
		r.Category = v
	}
	if v, ok := u.Flag.Get(); ok {
		r.Flag = v
	}
	if v, ok := u.Priority.Get(); ok {
		r.Priority = v
	}
	if v, ok := u.Active.Get(); ok {
		r.Active = v
	}
	return r
}

// IRuleTable defines the interface for rule storage operations.
type IRuleTable interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Rule, error)
	Insert(ctx context.Context, create *RuleCreate) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, update *RuleUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns every rule, highest priority first.
	List(ctx context.Context) ([]*Rule, error)
	// ListActive returns active rules, highest priority first; ties keep
	// creation order.
	ListActive(ctx context.Context) ([]*Rule, error)
	Categories(ctx context.Context) ([]string, error)
}

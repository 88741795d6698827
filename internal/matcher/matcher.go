// Package matcher decides whether a category rule applies to a transaction.
//
// A rule compiles into a Predicate: one of a closed set of field/operator
// kinds carrying its parsed operands. The same Predicate answers for a single
// in-memory transaction and yields the storage Condition used by set-wide
// updates, so both paths share one definition of a match.
package matcher

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/ledger-rules/internal/storage/rule"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

var (
	ErrInvalidRule    = errors.New("invalid rule")
	ErrInvalidOperand = errors.New("invalid rule operand")
)

// Predicate is a compiled rule condition.
type Predicate struct {
	cond transaction.Condition
}

// Compile turns a rule into a Predicate. Operand problems, such as a
// non-numeric amount threshold, return ErrInvalidOperand.
func Compile(r *rule.Rule) (Predicate, error) {
	kind, err := kindFor(r.Field, r.Operator)
	if err != nil {
		return Predicate{}, err
	}

	cond := transaction.Condition{Kind: kind}
	switch r.Field {
	case rule.FieldDescription:
		cond.Keywords = Keywords(r.Value)
		if len(cond.Keywords) == 0 {
			return Predicate{}, errors.Wrapf(ErrInvalidOperand, "rule %q has no keywords", r.Name)
		}
	case rule.FieldAmount:
		threshold, err := decimal.NewFromString(strings.TrimSpace(r.Value))
		if err != nil {
			return Predicate{}, errors.Wrapf(ErrInvalidOperand, "rule %q threshold %q", r.Name, r.Value)
		}
		cond.Threshold = threshold
	}
	return Predicate{cond: cond}, nil
}

// FromCondition rebuilds a Predicate from its storage form.
func FromCondition(cond transaction.Condition) Predicate {
	return Predicate{cond: cond}
}

// Matches reports whether r applies to tx. Rules that fail to compile never
// match.
func Matches(r *rule.Rule, tx *transaction.Transaction) bool {
	p, err := Compile(r)
	if err != nil {
		return false
	}
	return p.Matches(tx)
}

// Condition returns the set-oriented form of the predicate.
func (p Predicate) Condition() transaction.Condition {
	return p.cond
}

func (p Predicate) Matches(tx *transaction.Transaction) bool {
	if tx == nil {
		return false
	}

	switch p.cond.Kind {
	case transaction.ConditionDescriptionContains:
		description := strings.ToLower(tx.Description)
		if strings.TrimSpace(description) == "" {
			return false
		}
		for _, keyword := range p.cond.Keywords {
			if strings.Contains(description, keyword) {
				return true
			}
		}
		return false
	case transaction.ConditionDescriptionEquals:
		description := strings.ToLower(tx.Description)
		if strings.TrimSpace(description) == "" {
			return false
		}
		for _, keyword := range p.cond.Keywords {
			if description == keyword {
				return true
			}
		}
		return false
	case transaction.ConditionAmountGreaterThan:
		return tx.Amount.GreaterThan(p.cond.Threshold)
	case transaction.ConditionAmountLessThan:
		return tx.Amount.LessThan(p.cond.Threshold)
	case transaction.ConditionAmountEquals:
		return tx.Amount.Equal(p.cond.Threshold)
	default:
		return false
	}
}

// Keywords splits a comma-separated operand into trimmed, lower-cased,
// non-empty keywords.
func Keywords(value string) []string {
	var keywords []string
	for _, piece := range strings.Split(value, ",") {
		keyword := strings.ToLower(strings.TrimSpace(piece))
		if keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	return keywords
}

func kindFor(field rule.Field, operator rule.Operator) (transaction.ConditionKind, error) {
	switch field {
	case rule.FieldDescription:
		switch operator {
		case rule.OperatorContains:
			return transaction.ConditionDescriptionContains, nil
		case rule.OperatorEquals:
			return transaction.ConditionDescriptionEquals, nil
		}
	case rule.FieldAmount:
		switch operator {
		case rule.OperatorGreaterThan:
			return transaction.ConditionAmountGreaterThan, nil
		case rule.OperatorLessThan:
			return transaction.ConditionAmountLessThan, nil
		case rule.OperatorEquals:
			return transaction.ConditionAmountEquals, nil
		}
	default:
		return 0, errors.Wrapf(ErrInvalidRule, "unknown field %q", field)
	}
	return 0, errors.Wrapf(ErrInvalidRule, "operator %q is not valid for field %q", operator, field)
}

// Validate checks the invariants a stored rule must hold.
func Validate(r *rule.Rule) error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.Wrap(ErrInvalidRule, "name is required")
	}
	if strings.TrimSpace(r.Value) == "" {
		return errors.Wrap(ErrInvalidRule, "value is required")
	}
	if strings.TrimSpace(r.Category) == "" && strings.TrimSpace(r.Flag) == "" {
		return errors.Wrap(ErrInvalidRule, "a rule must set a category or a flag")
	}
	if _, err := kindFor(r.Field, r.Operator); err != nil {
		return err
	}
	return nil
}

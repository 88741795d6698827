package transaction

import (
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
)

// ConditionKind enumerates the supported field/operator pairs.
type ConditionKind int

const (
	ConditionDescriptionContains ConditionKind = iota + 1
	ConditionDescriptionEquals
	ConditionAmountGreaterThan
	ConditionAmountLessThan
	ConditionAmountEquals
)

// Condition is the set-oriented form of a compiled rule predicate.
// Keywords are lower-cased; Threshold is only read by amount kinds.
type Condition struct {
	Kind      ConditionKind
	Keywords  []string
	Threshold decimal.Decimal
}

func (c Condition) expression() bob.Expression {
	switch c.Kind {
	case ConditionDescriptionContains:
		if len(c.Keywords) == 0 {
			return psql.Raw("FALSE")
		}
		clauses := make([]string, len(c.Keywords))
		args := make([]any, len(c.Keywords))
		for i, keyword := range c.Keywords {
			clauses[i] = "strpos(lower(description), ?) > 0"
			args[i] = keyword
		}
		return psql.Raw("description <> '' AND ("+strings.Join(clauses, " OR ")+")", args...)
	case ConditionDescriptionEquals:
		return psql.Raw("description <> '' AND lower(description) = ANY(?)", pq.Array(c.Keywords))
	case ConditionAmountGreaterThan:
		return psql.Raw("amount > ?", c.Threshold.String())
	case ConditionAmountLessThan:
		return psql.Raw("amount < ?", c.Threshold.String())
	case ConditionAmountEquals:
		return psql.Raw("amount = ?", c.Threshold.String())
	default:
		return psql.Raw("FALSE")
	}
}

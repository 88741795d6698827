package rule

import (
	"time"

	"github.com/carson-networks/ledger-rules/internal/storage/rule"
)

// Rule is the API response model for a classification rule.
type Rule struct {
	ID        string `json:"id" format:"uuid" doc:"Rule ID"`
	Name      string `json:"name" doc:"Display name"`
	Field     string `json:"field" enum:"description,amount" doc:"Transaction field the rule inspects"`
	Operator  string `json:"operator" enum:"contains,equals,greater_than,less_than" doc:"Comparison applied to the field"`
	Value     string `json:"value" doc:"Keywords or numeric threshold"`
	Category  string `json:"category" doc:"Category the rule assigns"`
	Flag      string `json:"flag" doc:"Flag the rule assigns"`
	Priority  int    `json:"priority" doc:"Higher priorities win"`
	Active    bool   `json:"active" doc:"Inactive rules never apply"`
	CreatedAt string `json:"createdAt" doc:"RFC3339 creation time"`
	UpdatedAt string `json:"updatedAt" doc:"RFC3339 last update time"`
}

func toRule(r *rule.Rule) Rule {
	return Rule{
		ID:        r.ID.String(),
		Name:      r.Name,
		Field:     string(r.Field),
		Operator:  string(r.Operator),
		Value:     r.Value,
		Category:  r.Category,
		Flag:      r.Flag,
		Priority:  r.Priority,
		Active:    r.Active,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
		UpdatedAt: r.UpdatedAt.Format(time.RFC3339),
	}
}

package rule

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/ledger-rules/internal/handlers/v1/apierror"
	"github.com/carson-networks/ledger-rules/internal/logging"
	"github.com/carson-networks/ledger-rules/internal/storage/rule"
)

// CreateRuleBody is the request body for creating a rule.
type CreateRuleBody struct {
	Name     string `json:"name" required:"true" minLength:"1" doc:"Display name"`
	Field    string `json:"field" required:"true" enum:"description,amount" doc:"Transaction field the rule inspects"`
	Operator string `json:"operator" required:"true" enum:"contains,equals,greater_than,less_than" doc:"Comparison applied to the field"`
	Value    string `json:"value" required:"true" minLength:"1" doc:"Comma-separated keywords, or a number for amount rules"`
	Category string `json:"category,omitempty" doc:"Category to assign"`
	Flag     string `json:"flag,omitempty" doc:"Flag to assign"`
	Priority int    `json:"priority,omitempty" doc:"Higher priorities win"`
	Active   *bool  `json:"active,omitempty" doc:"Defaults to true"`
}

type CreateRuleInput struct {
	Body CreateRuleBody
}

type CreateRuleOutput struct {
	Status int
	Body   Rule
}

type ruleCreator interface {
	CreateRule(ctx context.Context, create rule.RuleCreate) (*rule.Rule, error)
}

// CreateRuleHandler handles POST /v1/rule.
type CreateRuleHandler struct {
	RuleService ruleCreator
}

func NewCreateRuleHandler(svc ruleCreator) *CreateRuleHandler {
	return &CreateRuleHandler{RuleService: svc}
}

func (h *CreateRuleHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-rule",
		Method:        http.MethodPost,
		Path:          "/v1/rule",
		Summary:       "Create rule",
		Tags:          []string{"Rules"},
		DefaultStatus: http.StatusCreated,
	}, h.handle)
}

func (h *CreateRuleHandler) handle(ctx context.Context, input *CreateRuleInput) (*CreateRuleOutput, error) {
	body := input.Body
	active := true
	if body.Active != nil {
		active = *body.Active
	}

	created, err := h.RuleService.CreateRule(ctx, rule.RuleCreate{
		Name:     body.Name,
		Field:    rule.Field(body.Field),
		Operator: rule.Operator(body.Operator),
		Value:    body.Value,
		Category: body.Category,
		Flag:     body.Flag,
		Priority: body.Priority,
		Active:   active,
	})
	if err != nil {
		return nil, apierror.From(err, "failed to create rule")
	}

	if logData := logging.GetLogData(ctx); logData != nil {
		logData.AddData("ruleID", created.ID.String())
	}
	return &CreateRuleOutput{Status: http.StatusCreated, Body: toRule(created)}, nil
}

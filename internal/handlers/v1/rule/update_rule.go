package rule

import (
	"context"
	"net/http"

	"github.com/aarondl/opt/omit"
	"github.com/danielgtaylor/huma/v2"
	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/ledger-rules/internal/handlers/v1/apierror"
	"github.com/carson-networks/ledger-rules/internal/storage/rule"
)

// UpdateRuleBody lists the rule fields to change. Absent fields are kept.
type UpdateRuleBody struct {
	Name     *string `json:"name,omitempty" minLength:"1"`
	Field    *string `json:"field,omitempty" enum:"description,amount"`
	Operator *string `json:"operator,omitempty" enum:"contains,equals,greater_than,less_than"`
	Value    *string `json:"value,omitempty" minLength:"1"`
	Category *string `json:"category,omitempty"`
	Flag     *string `json:"flag,omitempty"`
	Priority *int    `json:"priority,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

type UpdateRuleInput struct {
	ID   string `path:"id" format:"uuid" doc:"Rule ID"`
	Body UpdateRuleBody
}

type UpdateRuleOutput struct {
	Body Rule
}

type DeleteRuleInput struct {
	ID string `path:"id" format:"uuid" doc:"Rule ID"`
}

type ruleEditor interface {
	UpdateRule(ctx context.Context, id uuid.UUID, update rule.RuleUpdate) (*rule.Rule, error)
	DeleteRule(ctx context.Context, id uuid.UUID) error
}

// UpdateRuleHandler handles PUT and DELETE on /v1/rule/{id}.
type UpdateRuleHandler struct {
	RuleService ruleEditor
}

func NewUpdateRuleHandler(svc ruleEditor) *UpdateRuleHandler {
	return &UpdateRuleHandler{RuleService: svc}
}

func (h *UpdateRuleHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "update-rule",
		Method:      http.MethodPut,
		Path:        "/v1/rule/{id}",
		Summary:     "Update rule",
		Description: "Changes a rule. Existing transactions are not reclassified until rules are applied again.",
		Tags:        []string{"Rules"},
	}, h.handleUpdate)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-rule",
		Method:        http.MethodDelete,
		Path:          "/v1/rule/{id}",
		Summary:       "Delete rule",
		Tags:          []string{"Rules"},
		DefaultStatus: http.StatusNoContent,
	}, h.handleDelete)
}

func parseUpdateRuleInput(input *UpdateRuleInput) (uuid.UUID, rule.RuleUpdate, error) {
	id, err := uuid.FromString(input.ID)
	if err != nil {
		return uuid.Nil, rule.RuleUpdate{}, huma.NewError(http.StatusBadRequest, "invalid rule id", err)
	}

	body := input.Body
	update := rule.RuleUpdate{
		Name:     omit.FromPtr(body.Name),
		Value:    omit.FromPtr(body.Value),
		Category: omit.FromPtr(body.Category),
		Flag:     omit.FromPtr(body.Flag),
		Priority: omit.FromPtr(body.Priority),
		Active:   omit.FromPtr(body.Active),
	}
	if body.Field != nil {
		update.Field = omit.From(rule.Field(*body.Field))
	}
	if body.Operator != nil {
		update.Operator = omit.From(rule.Operator(*body.Operator))
	}
	return id, update, nil
}

func (h *UpdateRuleHandler) handleUpdate(ctx context.Context, input *UpdateRuleInput) (*UpdateRuleOutput, error) {
	id, update, err := parseUpdateRuleInput(input)
	if err != nil {
		return nil, err
	}
	updated, err := h.RuleService.UpdateRule(ctx, id, update)
	if err != nil {
		return nil, apierror.From(err, "failed to update rule")
	}
	return &UpdateRuleOutput{Body: toRule(updated)}, nil
}

func (h *UpdateRuleHandler) handleDelete(ctx context.Context, input *DeleteRuleInput) (*struct{}, error) {
	id, err := uuid.FromString(input.ID)
	if err != nil {
		return nil, huma.NewError(http.StatusBadRequest, "invalid rule id", err)
	}
	if err := h.RuleService.DeleteRule(ctx, id); err != nil {
		return nil, apierror.From(err, "failed to delete rule")
	}
	return nil, nil
}

package rule

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/ledger-rules/internal/handlers/v1/apierror"
	"github.com/carson-networks/ledger-rules/internal/logging"
	"github.com/carson-networks/ledger-rules/internal/storage/rule"
)

type ListRulesOutput struct {
	Body struct {
		Rules []Rule `json:"rules" doc:"Every rule, highest priority first"`
	}
}

type CategoriesOutput struct {
	Body struct {
		Categories []string `json:"categories" doc:"Known categories, sorted"`
	}
}

type ruleLister interface {
	ListRules(ctx context.Context) ([]*rule.Rule, error)
	Categories(ctx context.Context) ([]string, error)
}

// ListRulesHandler handles GET /v1/rule and GET /v1/category.
type ListRulesHandler struct {
	RuleService ruleLister
}

func NewListRulesHandler(svc ruleLister) *ListRulesHandler {
	return &ListRulesHandler{RuleService: svc}
}

func (h *ListRulesHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-rules",
		Method:      http.MethodGet,
		Path:        "/v1/rule",
		Summary:     "List rules",
		Tags:        []string{"Rules"},
	}, h.handleRules)

	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/v1/category",
		Summary:     "List categories",
		Description: "Returns the default categories merged with every category used by rules and transactions.",
		Tags:        []string{"Rules"},
	}, h.handleCategories)
}

func (h *ListRulesHandler) handleRules(ctx context.Context, _ *struct{}) (*ListRulesOutput, error) {
	rules, err := h.RuleService.ListRules(ctx)
	if err != nil {
		return nil, apierror.From(err, "failed to list rules")
	}
	if logData := logging.GetLogData(ctx); logData != nil {
		logData.AddData("ruleCount", len(rules))
	}

	out := &ListRulesOutput{}
	out.Body.Rules = make([]Rule, len(rules))
	for i, r := range rules {
		out.Body.Rules[i] = toRule(r)
	}
	return out, nil
}

func (h *ListRulesHandler) handleCategories(ctx context.Context, _ *struct{}) (*CategoriesOutput, error) {
	categories, err := h.RuleService.Categories(ctx)
	if err != nil {
		return nil, apierror.From(err, "failed to list categories")
	}
	out := &CategoriesOutput{}
	out.Body.Categories = categories
	return out, nil
}

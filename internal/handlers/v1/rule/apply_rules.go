package rule

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/ledger-rules/internal/handlers/v1/apierror"
	"github.com/carson-networks/ledger-rules/internal/logging"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

// ApplyRulesBody selects the rows a batch pass covers. No IDs means the
// whole ledger.
type ApplyRulesBody struct {
	TransactionIDs []int64 `json:"transactionIDs,omitempty" maxItems:"10000" doc:"Restrict the pass to these rows"`
}

type ApplyRulesInput struct {
	Body ApplyRulesBody
}

type ApplyRulesOutput struct {
	Body struct {
		UpdatedCount int64 `json:"updatedCount" doc:"Rows changed by the pass"`
	}
}

type ruleApplier interface {
	ApplyRulesBatch(ctx context.Context, scope transaction.Scope) (int64, error)
	ResetAndReapply(ctx context.Context) (int64, error)
}

// ApplyRulesHandler handles the batch rule endpoints.
type ApplyRulesHandler struct {
	RuleService ruleApplier
}

func NewApplyRulesHandler(svc ruleApplier) *ApplyRulesHandler {
	return &ApplyRulesHandler{RuleService: svc}
}

func (h *ApplyRulesHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "apply-rules",
		Method:      http.MethodPost,
		Path:        "/v1/rules/apply",
		Summary:     "Apply rules",
		Description: "Fills blank categories and flags from the active rules. Values already set are never replaced.",
		Tags:        []string{"Rules"},
	}, h.handleApply)

	huma.Register(api, huma.Operation{
		OperationID: "reset-and-reapply-rules",
		Method:      http.MethodPost,
		Path:        "/v1/rules/reset-and-reapply",
		Summary:     "Reset and reapply rules",
		Description: "Clears every automated category and flag, then applies the active rules to the whole ledger. Manually set values are kept.",
		Tags:        []string{"Rules"},
	}, h.handleReset)
}

// scopeFromIDs maps an optional ID list onto a transaction scope.
func scopeFromIDs(ids []int64) transaction.Scope {
	if len(ids) == 0 {
		return transaction.AllTransactions()
	}
	return transaction.ForIDs(ids...)
}

func (h *ApplyRulesHandler) handleApply(ctx context.Context, input *ApplyRulesInput) (*ApplyRulesOutput, error) {
	logData := logging.GetLogData(ctx)
	var stopTimer func()
	if logData != nil {
		stopTimer = logData.AddTiming("applyRulesMs")
	}
	updated, err := h.RuleService.ApplyRulesBatch(ctx, scopeFromIDs(input.Body.TransactionIDs))
	if stopTimer != nil {
		stopTimer()
	}
	if err != nil {
		return nil, apierror.From(err, "failed to apply rules")
	}
	if logData != nil {
		logData.AddData("updatedCount", updated)
	}

	out := &ApplyRulesOutput{}
	out.Body.UpdatedCount = updated
	return out, nil
}

func (h *ApplyRulesHandler) handleReset(ctx context.Context, _ *struct{}) (*ApplyRulesOutput, error) {
	updated, err := h.RuleService.ResetAndReapply(ctx)
	if err != nil {
		return nil, apierror.From(err, "failed to reapply rules")
	}
	out := &ApplyRulesOutput{}
	out.Body.UpdatedCount = updated
	return out, nil
}

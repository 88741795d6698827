package anomaly

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/ledger-rules/internal/classify"
	"github.com/carson-networks/ledger-rules/internal/handlers/v1/apierror"
	"github.com/carson-networks/ledger-rules/internal/logging"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

// DetectAnomaliesBody selects the rows to check. No IDs means the whole
// ledger.
type DetectAnomaliesBody struct {
	TransactionIDs []int64 `json:"transactionIDs,omitempty" maxItems:"10000" doc:"Restrict detection to these rows"`
}

type DetectAnomaliesInput struct {
	Body DetectAnomaliesBody
}

type DetectAnomaliesOutput struct {
	Body struct {
		DuplicatesFlagged int64 `json:"duplicatesFlagged" doc:"Rows newly flagged Duplicate"`
		RecurringFlagged  int64 `json:"recurringFlagged" doc:"Rows newly flagged Recurring"`
	}
}

type anomalyDetector interface {
	DetectAnomalies(ctx context.Context, scope transaction.Scope) (classify.AnomalyResult, error)
}

// DetectAnomaliesHandler handles POST /v1/anomalies/detect.
type DetectAnomaliesHandler struct {
	AnomalyService anomalyDetector
}

func NewDetectAnomaliesHandler(svc anomalyDetector) *DetectAnomaliesHandler {
	return &DetectAnomaliesHandler{AnomalyService: svc}
}

func (h *DetectAnomaliesHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "detect-anomalies",
		Method:      http.MethodPost,
		Path:        "/v1/anomalies/detect",
		Summary:     "Detect anomalies",
		Description: "Flags exact duplicates first, then recurring charges. Reviewed and manually flagged rows are left alone.",
		Tags:        []string{"Anomalies"},
	}, h.handle)
}

func (h *DetectAnomaliesHandler) handle(ctx context.Context, input *DetectAnomaliesInput) (*DetectAnomaliesOutput, error) {
	scope := transaction.AllTransactions()
	if len(input.Body.TransactionIDs) > 0 {
		scope = transaction.ForIDs(input.Body.TransactionIDs...)
	}

	logData := logging.GetLogData(ctx)
	var stopTimer func()
	if logData != nil {
		stopTimer = logData.AddTiming("detectAnomaliesMs")
	}
	result, err := h.AnomalyService.DetectAnomalies(ctx, scope)
	if stopTimer != nil {
		stopTimer()
	}
	if err != nil {
		return nil, apierror.From(err, "failed to detect anomalies")
	}
	if logData != nil {
		logData.AddData("duplicatesFlagged", result.Duplicates)
		logData.AddData("recurringFlagged", result.Recurring)
	}

	out := &DetectAnomaliesOutput{}
	out.Body.DuplicatesFlagged = result.Duplicates
	out.Body.RecurringFlagged = result.Recurring
	return out, nil
}

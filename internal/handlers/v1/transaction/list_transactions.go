package transaction

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/ledger-rules/internal/handlers/v1/apierror"
	"github.com/carson-networks/ledger-rules/internal/logging"
	"github.com/carson-networks/ledger-rules/internal/service"
)

// ListTransactionsCursor represents a pagination cursor in request and response bodies.
// It bundles position, limit, maxCreationTime and the filters so subsequent
// pages use consistent parameters.
type ListTransactionsCursor struct {
	Position          int    `json:"position" minimum:"0" doc:"Numeric offset position for the next page"`
	Limit             int    `json:"limit" minimum:"1" maximum:"100" doc:"Page size used for this cursor"`
	MaxCreationTime   string `json:"maxCreationTime" format:"date-time" doc:"Upper bound on created_at locked in from the first page"`
	FlaggedOnly       bool   `json:"flaggedOnly,omitempty" doc:"Filter locked in from the first page"`
	UncategorizedOnly bool   `json:"uncategorizedOnly,omitempty" doc:"Filter locked in from the first page"`
}

// ListTransactionsBody is the request body for listing transactions.
type ListTransactionsBody struct {
	FlaggedOnly       bool                    `json:"flaggedOnly,omitempty" doc:"Only rows with a flag"`
	UncategorizedOnly bool                    `json:"uncategorizedOnly,omitempty" doc:"Only rows without a category"`
	Cursor            *ListTransactionsCursor `json:"cursor,omitempty" doc:"Cursor from a previous response to fetch the next page"`
}

// ListTransactionsInput is the Huma input for listing transactions.
type ListTransactionsInput struct {
	Body ListTransactionsBody
}

// ListTransactionsResponseBody is the response body for listing transactions.
type ListTransactionsResponseBody struct {
	Transactions []Transaction           `json:"transactions" doc:"Page of transactions"`
	NextCursor   *ListTransactionsCursor `json:"nextCursor,omitempty" doc:"Cursor to fetch the next page, absent on the last page"`
}

// ListTransactionsOutput is the Huma output for listing transactions.
type ListTransactionsOutput struct {
	Body ListTransactionsResponseBody
}

// transactionLister is the interface for listing transactions.
type transactionLister interface {
	ListTransactions(ctx context.Context, filter service.TransactionListFilter, cursor *service.TransactionCursor) ([]service.Transaction, *service.TransactionCursor, error)
}

// ListTransactionsHandler handles POST /v1/transaction/list.
type ListTransactionsHandler struct {
	TransactionService transactionLister
}

// NewListTransactionsHandler creates a new ListTransactionsHandler.
func NewListTransactionsHandler(svc transactionLister) *ListTransactionsHandler {
	return &ListTransactionsHandler{TransactionService: svc}
}

// Register registers the list transactions endpoint with the Huma API.
func (h *ListTransactionsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-transactions",
		Method:      http.MethodPost,
		Path:        "/v1/transaction/list",
		Summary:     "List transactions",
		Description: "Returns a paginated list of transactions, newest first, using cursor-based pagination.",
		Tags:        []string{"Transactions"},
	}, h.handle)
}

// parseListTransactionsInput parses and validates the API input.
// When a cursor is provided, limit, maxCreationTime and filters come from it.
// Without a cursor, the service uses its default limit.
func parseListTransactionsInput(input *ListTransactionsInput) (service.TransactionListFilter, *service.TransactionCursor, error) {
	filter := service.TransactionListFilter{
		FlaggedOnly:       input.Body.FlaggedOnly,
		UncategorizedOnly: input.Body.UncategorizedOnly,
	}
	if input.Body.Cursor == nil {
		return filter, nil, nil
	}

	if input.Body.Cursor.Position < 0 {
		return filter, nil, huma.NewError(http.StatusBadRequest, "cursor position must be non-negative")
	}

	maxCreationTime, parseErr := time.Parse(time.RFC3339, input.Body.Cursor.MaxCreationTime)
	if parseErr != nil {
		return filter, nil, huma.NewError(http.StatusBadRequest, "invalid cursor maxCreationTime", parseErr)
	}

	return filter, &service.TransactionCursor{
		Position:        input.Body.Cursor.Position,
		Limit:           input.Body.Cursor.Limit,
		MaxCreationTime: maxCreationTime,
		Filter: service.TransactionListFilter{
			FlaggedOnly:       input.Body.Cursor.FlaggedOnly,
			UncategorizedOnly: input.Body.Cursor.UncategorizedOnly,
		},
	}, nil
}

func (h *ListTransactionsHandler) handle(ctx context.Context, input *ListTransactionsInput) (*ListTransactionsOutput, error) {
	logData := logging.GetLogData(ctx)
	filter, requestCursor, err := parseListTransactionsInput(input)
	if err != nil {
		return nil, err
	}

	var stopTimer func()
	if logData != nil {
		stopTimer = logData.AddTiming("listTransactionsMs")
	}
	transactions, nextCursor, err := h.TransactionService.ListTransactions(ctx, filter, requestCursor)
	if stopTimer != nil {
		stopTimer()
	}
	if err != nil {
		return nil, apierror.From(err, "failed to list transactions")
	}

	if logData != nil {
		logData.AddData("transactionCount", len(transactions))
	}

	resp := ListTransactionsResponseBody{
		Transactions: make([]Transaction, len(transactions)),
	}

	for i, tx := range transactions {
		resp.Transactions[i] = toTransaction(tx)
	}

	if nextCursor != nil {
		resp.NextCursor = &ListTransactionsCursor{
			Position:          nextCursor.Position,
			Limit:             nextCursor.Limit,
			MaxCreationTime:   nextCursor.MaxCreationTime.Format(time.RFC3339Nano),
			FlaggedOnly:       nextCursor.Filter.FlaggedOnly,
			UncategorizedOnly: nextCursor.Filter.UncategorizedOnly,
		}
	}

	return &ListTransactionsOutput{Body: resp}, nil
}

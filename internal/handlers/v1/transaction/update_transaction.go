package transaction

import (
	"context"
	"net/http"
	"time"

	"github.com/aarondl/opt/omit"
	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/ledger-rules/internal/handlers/v1/apierror"
	"github.com/carson-networks/ledger-rules/internal/service"
)

// UpdateTransactionBody lists the fields to change. Absent fields are kept.
type UpdateTransactionBody struct {
	Date        *string `json:"date,omitempty" format:"date" doc:"Calendar date, YYYY-MM-DD"`
	Description *string `json:"description,omitempty" doc:"New description"`
	Amount      *string `json:"amount,omitempty" doc:"New signed decimal amount"`
	Category    *string `json:"category,omitempty" doc:"Category, pinned against rules once set"`
	Flag        *string `json:"flag,omitempty" doc:"Flag, pinned against automated changes once set"`
}

type UpdateTransactionInput struct {
	ID   int64 `path:"id" minimum:"1" doc:"Transaction ID"`
	Body UpdateTransactionBody
}

type UpdateTransactionOutput struct {
	Body Transaction
}

type transactionUpdater interface {
	UpdateTransaction(ctx context.Context, id int64, edit service.TransactionEdit) (service.Transaction, error)
}

// UpdateTransactionHandler handles PATCH /v1/transaction/{id}.
type UpdateTransactionHandler struct {
	TransactionService transactionUpdater
}

func NewUpdateTransactionHandler(svc transactionUpdater) *UpdateTransactionHandler {
	return &UpdateTransactionHandler{TransactionService: svc}
}

func (h *UpdateTransactionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "update-transaction",
		Method:      http.MethodPatch,
		Path:        "/v1/transaction/{id}",
		Summary:     "Edit transaction",
		Description: "Applies a manual edit. Category and flag values set here are protected from rules and anomaly detection.",
		Tags:        []string{"Transactions"},
	}, h.handle)
}

func parseUpdateTransactionInput(input *UpdateTransactionInput) (service.TransactionEdit, error) {
	var edit service.TransactionEdit
	body := input.Body
	if body.Date != nil {
		date, err := time.Parse(time.DateOnly, *body.Date)
		if err != nil {
			return edit, huma.NewError(http.StatusBadRequest, "invalid date", err)
		}
		edit.Date = omit.From(date)
	}
	if body.Amount != nil {
		amount, err := decimal.NewFromString(*body.Amount)
		if err != nil {
			return edit, huma.NewError(http.StatusBadRequest, "invalid amount", err)
		}
		edit.Amount = omit.From(amount)
	}
	edit.Description = omit.FromPtr(body.Description)
	edit.Category = omit.FromPtr(body.Category)
	edit.Flag = omit.FromPtr(body.Flag)
	return edit, nil
}

func (h *UpdateTransactionHandler) handle(ctx context.Context, input *UpdateTransactionInput) (*UpdateTransactionOutput, error) {
	edit, err := parseUpdateTransactionInput(input)
	if err != nil {
		return nil, err
	}
	updated, err := h.TransactionService.UpdateTransaction(ctx, input.ID, edit)
	if err != nil {
		return nil, apierror.From(err, "failed to update transaction")
	}
	return &UpdateTransactionOutput{Body: toTransaction(updated)}, nil
}

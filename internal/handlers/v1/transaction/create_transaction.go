package transaction

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/ledger-rules/internal/handlers/v1/apierror"
	"github.com/carson-networks/ledger-rules/internal/logging"
	"github.com/carson-networks/ledger-rules/internal/service"
)

// CreateTransactionBody is the request body for creating a transaction.
type CreateTransactionBody struct {
	Date        string `json:"date" required:"true" format:"date" doc:"Calendar date, YYYY-MM-DD"`
	Description string `json:"description" required:"true" minLength:"1" doc:"Description of the transaction"`
	Amount      string `json:"amount" required:"true" doc:"Signed decimal amount"`
	Category    string `json:"category,omitempty" doc:"Category; rules fill it when empty"`
}

// CreateTransactionInput is the Huma input for creating a transaction.
type CreateTransactionInput struct {
	Body CreateTransactionBody
}

// CreateTransactionOutput is the Huma output for creating a transaction.
type CreateTransactionOutput struct {
	Status int
	Body   Transaction
}

// transactionCreator is the interface for creating transactions.
type transactionCreator interface {
	CreateTransaction(ctx context.Context, tx service.Transaction) (service.Transaction, error)
}

// CreateTransactionHandler handles POST /v1/transaction.
type CreateTransactionHandler struct {
	TransactionService transactionCreator
}

// NewCreateTransactionHandler creates a new CreateTransactionHandler.
func NewCreateTransactionHandler(svc transactionCreator) *CreateTransactionHandler {
	return &CreateTransactionHandler{TransactionService: svc}
}

// Register registers the create transaction endpoint with the Huma API.
func (h *CreateTransactionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-transaction",
		Method:        http.MethodPost,
		Path:          "/v1/transaction",
		Summary:       "Create transaction",
		Description:   "Creates a transaction, classifies it with the active rules and checks it for duplicates and recurring charges.",
		Tags:          []string{"Transactions"},
		DefaultStatus: http.StatusCreated,
	}, h.handle)
}

// parseCreateTransactionInput parses and validates the API input.
func parseCreateTransactionInput(input *CreateTransactionInput) (service.Transaction, error) {
	date, err := time.Parse(time.DateOnly, input.Body.Date)
	if err != nil {
		return service.Transaction{}, huma.NewError(http.StatusBadRequest, "invalid date", err)
	}
	amount, err := decimal.NewFromString(input.Body.Amount)
	if err != nil {
		return service.Transaction{}, huma.NewError(http.StatusBadRequest, "invalid amount", err)
	}
	return service.Transaction{
		Date:        date,
		Description: input.Body.Description,
		Amount:      amount,
		Category:    input.Body.Category,
	}, nil
}

func (h *CreateTransactionHandler) handle(ctx context.Context, input *CreateTransactionInput) (*CreateTransactionOutput, error) {
	tx, err := parseCreateTransactionInput(input)
	if err != nil {
		return nil, err
	}

	created, err := h.TransactionService.CreateTransaction(ctx, tx)
	if err != nil {
		return nil, apierror.From(err, "failed to create transaction")
	}

	if logData := logging.GetLogData(ctx); logData != nil {
		logData.AddData("transactionID", created.ID)
		logData.AddData("flag", created.Flag)
	}
	return &CreateTransactionOutput{Status: http.StatusCreated, Body: toTransaction(created)}, nil
}

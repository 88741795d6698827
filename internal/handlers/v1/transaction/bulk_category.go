package transaction

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/ledger-rules/internal/handlers/v1/apierror"
)

type BulkCategoryBody struct {
	TransactionIDs []int64 `json:"transactionIDs" required:"true" minItems:"1" maxItems:"10000" doc:"Rows to categorize"`
	Category       string  `json:"category" required:"true" doc:"Category to assign; pinned against rules"`
}

type BulkCategoryInput struct {
	Body BulkCategoryBody
}

type BulkCategoryOutput struct {
	Body struct {
		UpdatedCount int64 `json:"updatedCount" doc:"Rows changed"`
	}
}

type bulkCategorizer interface {
	BulkCategorize(ctx context.Context, ids []int64, category string) (int64, error)
}

// BulkCategoryHandler handles POST /v1/transaction/bulk-category.
type BulkCategoryHandler struct {
	TransactionService bulkCategorizer
}

func NewBulkCategoryHandler(svc bulkCategorizer) *BulkCategoryHandler {
	return &BulkCategoryHandler{TransactionService: svc}
}

func (h *BulkCategoryHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "bulk-categorize-transactions",
		Method:      http.MethodPost,
		Path:        "/v1/transaction/bulk-category",
		Summary:     "Categorize transactions",
		Tags:        []string{"Transactions"},
	}, h.handle)
}

func (h *BulkCategoryHandler) handle(ctx context.Context, input *BulkCategoryInput) (*BulkCategoryOutput, error) {
	updated, err := h.TransactionService.BulkCategorize(ctx, input.Body.TransactionIDs, input.Body.Category)
	if err != nil {
		return nil, apierror.From(err, "failed to categorize transactions")
	}
	out := &BulkCategoryOutput{}
	out.Body.UpdatedCount = updated
	return out, nil
}

package upload

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/ledger-rules/internal/handlers/v1/apierror"
	"github.com/carson-networks/ledger-rules/internal/storage/upload"
)

type GetUploadInput struct {
	ID string `path:"id" format:"uuid" doc:"Upload ID"`
}

type GetUploadOutput struct {
	Body Upload
}

type uploadGetter interface {
	GetUpload(ctx context.Context, id uuid.UUID) (*upload.Upload, error)
}

// GetUploadHandler handles GET /v1/upload/{id}.
type GetUploadHandler struct {
	UploadService uploadGetter
}

func NewGetUploadHandler(svc uploadGetter) *GetUploadHandler {
	return &GetUploadHandler{UploadService: svc}
}

func (h *GetUploadHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-upload",
		Method:      http.MethodGet,
		Path:        "/v1/upload/{id}",
		Summary:     "Get upload status",
		Tags:        []string{"Uploads"},
	}, h.handle)
}

func (h *GetUploadHandler) handle(ctx context.Context, input *GetUploadInput) (*GetUploadOutput, error) {
	id, err := uuid.FromString(input.ID)
	if err != nil {
		return nil, huma.NewError(http.StatusBadRequest, "invalid upload id", err)
	}
	u, err := h.UploadService.GetUpload(ctx, id)
	if err != nil {
		return nil, apierror.From(err, "failed to get upload")
	}
	return &GetUploadOutput{Body: toUpload(u)}, nil
}

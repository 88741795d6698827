package upload

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/ledger-rules/internal/handlers/v1/apierror"
	"github.com/carson-networks/ledger-rules/internal/logging"
	"github.com/carson-networks/ledger-rules/internal/storage/upload"
)

// MaxUploadBytes caps CSV request bodies.
const MaxUploadBytes = 256 << 20

type StartUploadInput struct {
	Filename string `query:"filename" doc:"Original file name, recorded on the upload"`
	RawBody  []byte `contentType:"text/csv" doc:"CSV file with date, description and amount columns"`
}

type StartUploadFromURIBody struct {
	Source string `json:"source" required:"true" doc:"gs://bucket/object to import"`
}

type StartUploadFromURIInput struct {
	Body StartUploadFromURIBody
}

type StartUploadOutput struct {
	Status int
	Body   Upload
}

type uploadStarter interface {
	StartUpload(ctx context.Context, filename string, body io.Reader) (*upload.Upload, error)
	StartUploadFromURI(ctx context.Context, uri string) (*upload.Upload, error)
}

// StartUploadHandler handles POST /v1/upload and POST /v1/upload/uri.
type StartUploadHandler struct {
	UploadService uploadStarter
}

func NewStartUploadHandler(svc uploadStarter) *StartUploadHandler {
	return &StartUploadHandler{UploadService: svc}
}

func (h *StartUploadHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "start-upload",
		Method:        http.MethodPost,
		Path:          "/v1/upload",
		Summary:       "Upload CSV",
		Description:   "Stages a CSV file and imports it in the background. Poll the returned upload for progress.",
		Tags:          []string{"Uploads"},
		DefaultStatus: http.StatusAccepted,
		MaxBodyBytes:  MaxUploadBytes,
	}, h.handleBody)

	huma.Register(api, huma.Operation{
		OperationID:   "start-upload-from-uri",
		Method:        http.MethodPost,
		Path:          "/v1/upload/uri",
		Summary:       "Import CSV from storage",
		Description:   "Copies a gs:// object into the upload directory and imports it in the background.",
		Tags:          []string{"Uploads"},
		DefaultStatus: http.StatusAccepted,
	}, h.handleURI)
}

func (h *StartUploadHandler) handleBody(ctx context.Context, input *StartUploadInput) (*StartUploadOutput, error) {
	if len(input.RawBody) == 0 {
		return nil, huma.NewError(http.StatusBadRequest, "empty upload")
	}
	u, err := h.UploadService.StartUpload(ctx, input.Filename, bytes.NewReader(input.RawBody))
	return h.respond(ctx, u, err)
}

func (h *StartUploadHandler) handleURI(ctx context.Context, input *StartUploadFromURIInput) (*StartUploadOutput, error) {
	u, err := h.UploadService.StartUploadFromURI(ctx, input.Body.Source)
	return h.respond(ctx, u, err)
}

func (h *StartUploadHandler) respond(ctx context.Context, u *upload.Upload, err error) (*StartUploadOutput, error) {
	if err != nil {
		return nil, apierror.From(err, "failed to start upload")
	}
	if logData := logging.GetLogData(ctx); logData != nil {
		logData.AddData("uploadID", u.ID.String())
	}
	return &StartUploadOutput{Status: http.StatusAccepted, Body: toUpload(u)}, nil
}

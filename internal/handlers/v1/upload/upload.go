package upload

import (
	"time"

	"github.com/carson-networks/ledger-rules/internal/storage/upload"
)

type RowError struct {
	Row    int               `json:"row" doc:"1-based data row number"`
	Errors []string          `json:"errors" doc:"Validation failures for the row"`
	Data   map[string]string `json:"data" doc:"Normalized fields as read"`
}

// Upload is the API response model for an import.
type Upload struct {
	ID             string     `json:"id" format:"uuid" doc:"Upload ID"`
	Filename       string     `json:"filename"`
	Status         string     `json:"status" enum:"pending,processing,completed,failed"`
	TotalRows      int        `json:"totalRows" doc:"Data rows found by the pre-pass"`
	ProcessedRows  int        `json:"processedRows"`
	SuccessfulRows int        `json:"successfulRows"`
	FailedRows     int        `json:"failedRows"`
	Progress       float64    `json:"progress" doc:"Processed share of total rows, in percent"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	ErrorDetails   []RowError `json:"errorDetails,omitempty" doc:"First rejected rows, capped"`
	CreatedAt      string     `json:"createdAt"`
	UpdatedAt      string     `json:"updatedAt"`
}

func toUpload(u *upload.Upload) Upload {
	out := Upload{
		ID:             u.ID.String(),
		Filename:       u.Filename,
		Status:         string(u.Status),
		TotalRows:      u.TotalRows,
		ProcessedRows:  u.ProcessedRows,
		SuccessfulRows: u.SuccessfulRows,
		FailedRows:     u.FailedRows,
		Progress:       u.Progress(),
		ErrorMessage:   u.ErrorMessage,
		CreatedAt:      u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      u.UpdatedAt.Format(time.RFC3339),
	}
	for _, rowErr := range u.ErrorDetails {
		out.ErrorDetails = append(out.ErrorDetails, RowError(rowErr))
	}
	return out
}

package upload

import (
	"context"
	"math"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Status is the lifecycle state of an upload.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RowError records why a single CSV row was rejected.
type RowError struct {
	Row    int               `json:"row"`
	Errors []string          `json:"errors"`
	Data   map[string]string `json:"data"`
}

// Upload tracks the progress of one CSV import.
type Upload struct {
	ID             uuid.UUID
	Filename       string
	Status         Status
	TotalRows      int
	ProcessedRows  int
	SuccessfulRows int
	FailedRows     int
	ErrorMessage   string
	ErrorDetails   []RowError
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Progress is the share of rows processed as a percentage rounded to two
// decimals.
func (u *Upload) Progress() float64 {
	if u.TotalRows <= 0 {
		return 0
	}
	pct := float64(u.ProcessedRows) / float64(u.TotalRows) * 100
	return math.Round(pct*100) / 100
}

// IUploadTable defines the interface for upload storage operations.
type IUploadTable interface {
	Create(ctx context.Context, filename string) (*Upload, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Upload, error)
	// Save persists status, counters and errors of u.
	Save(ctx context.Context, u *Upload) error
}

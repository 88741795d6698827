package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/internal/operator"
	"github.com/carson-networks/ledger-rules/internal/operator/actions"
	"github.com/carson-networks/ledger-rules/internal/staging"
	"github.com/carson-networks/ledger-rules/internal/storage"
	"github.com/carson-networks/ledger-rules/internal/storage/upload"
)

// Processor runs a write action in its own store transaction.
type Processor interface {
	Process(ctx context.Context, action actions.IAction) error
}

// TaskSubmitter queues work to run outside the request.
type TaskSubmitter interface {
	Submit(task operator.Task) error
}

// UploadImporter drives one upload through its import.
type UploadImporter interface {
	Import(ctx context.Context, u *upload.Upload, path string) error
}

// Dependencies wires the services to the rest of the server.
type Dependencies struct {
	Storage   *storage.Storage
	Processor Processor
	Runner    TaskSubmitter
	Importer  UploadImporter
	Stager    *staging.Stager
	Logger    logrus.FieldLogger
}

// Service holds all business logic services.
type Service struct {
	Transaction *TransactionService
	Rule        *RuleService
	Anomaly     *AnomalyService
	Upload      *UploadService
}

func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	return &Service{
		Transaction: NewTransactionService(deps.Storage, deps.Processor, deps.Logger),
		Rule:        NewRuleService(deps.Storage, deps.Processor, deps.Logger),
		Anomaly:     NewAnomalyService(deps.Processor, deps.Logger),
		Upload:      NewUploadService(deps.Storage, deps.Runner, deps.Importer, deps.Stager, deps.Logger),
	}
}

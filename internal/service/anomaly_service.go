package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/internal/classify"
	"github.com/carson-networks/ledger-rules/internal/operator/actions"
	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

type AnomalyService struct {
	processor Processor
	logger    logrus.FieldLogger
}

func NewAnomalyService(processor Processor, logger logrus.FieldLogger) *AnomalyService {
	return &AnomalyService{processor: processor, logger: logger}
}

// DetectAnomalies flags duplicates, then recurring charges, in scope.
func (s *AnomalyService) DetectAnomalies(ctx context.Context, scope transaction.Scope) (classify.AnomalyResult, error) {
	action := &actions.DetectAnomalies{Scope: scope, Logger: s.logger}
	if err := s.processor.Process(ctx, action); err != nil {
		return classify.AnomalyResult{}, err
	}
	return action.Result, nil
}

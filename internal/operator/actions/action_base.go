package actions

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/internal/classify"
	"github.com/carson-networks/ledger-rules/internal/storage"
)

type IAction interface {
	Perform(ctx context.Context, writer *storage.Writer) error
}

// classifiers binds the rule applicator and anomaly detector to the
// writer's transaction.
func classifiers(writer *storage.Writer, logger logrus.FieldLogger) (*classify.RuleApplicator, *classify.AnomalyDetector) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return classify.NewRuleApplicator(writer.Tables, logger), classify.NewAnomalyDetector(writer.Tables, logger)
}

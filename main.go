package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/api"
	"github.com/carson-networks/ledger-rules/internal/config"
	"github.com/carson-networks/ledger-rules/internal/importer"
	"github.com/carson-networks/ledger-rules/internal/logging"
	"github.com/carson-networks/ledger-rules/internal/operator"
	"github.com/carson-networks/ledger-rules/internal/service"
	"github.com/carson-networks/ledger-rules/internal/staging"
	"github.com/carson-networks/ledger-rules/internal/storage"
)

func main() {
	envConfig, err := config.ProcessEnvironmentVariables()
	if err != nil {
		logrus.WithError(err).Fatal("config.ProcessEnvironmentVariables")
		return
	}

	logger := logging.SetupLogging(envConfig.LogLevel)
	logger.Info("ledger-rules starting")

	dbStorage, err := storage.NewStorage(envConfig)
	if err != nil {
		logger.WithError(err).Fatal("storage.NewStorage")
		return
	}
	defer dbStorage.Close()

	delegator := operator.NewOperatorDelegator(dbStorage, envConfig.OperatorWorkers)
	delegator.Start()
	defer delegator.Stop()

	runner := operator.NewRunner(envConfig.ImportWorkers, logger)
	runner.Start()
	defer runner.Stop()

	svc := service.NewService(service.Dependencies{
		Storage:   dbStorage,
		Processor: delegator,
		Runner:    runner,
		Importer:  importer.NewImporter(dbStorage, envConfig, logger),
		Stager:    staging.NewStager(envConfig.UploadDir, staging.GCSOpener{}),
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpRest := api.Rest{
		Logger:  logger,
		Port:    envConfig.HTTPPort,
		Service: svc,
		DB:      dbStorage.DB,
	}
	httpRest.Serve(ctx)
}

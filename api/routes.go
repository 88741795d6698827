package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/ledger-rules/internal/handlers/v1/anomaly"
	"github.com/carson-networks/ledger-rules/internal/handlers/v1/rule"
	"github.com/carson-networks/ledger-rules/internal/handlers/v1/status"
	"github.com/carson-networks/ledger-rules/internal/handlers/v1/transaction"
	"github.com/carson-networks/ledger-rules/internal/handlers/v1/upload"
	"github.com/carson-networks/ledger-rules/internal/logging"
	"github.com/carson-networks/ledger-rules/internal/service"
)

type Rest struct {
	Logger  *logrus.Logger
	Port    string
	Service *service.Service
	DB      status.Pinger
}

// Routes builds the HTTP handler: /status outside huma, every v1 operation
// inside it.
func (r *Rest) Routes() http.Handler {
	mux := http.NewServeMux()

	statusHandler := status.NewHandler(r.DB)
	mux.HandleFunc("/status", logging.LoggingWrapper("Status", r.Logger, statusHandler.Handler))

	api := humago.New(mux, huma.DefaultConfig("Ledger Rules", "1.0.0"))
	api.UseMiddleware(logging.HumaMiddleware(r.Logger))

	svc := r.Service
	transaction.NewCreateTransactionHandler(svc.Transaction).Register(api)
	transaction.NewListTransactionsHandler(svc.Transaction).Register(api)
	transaction.NewUpdateTransactionHandler(svc.Transaction).Register(api)
	transaction.NewBulkCategoryHandler(svc.Transaction).Register(api)

	rule.NewListRulesHandler(svc.Rule).Register(api)
	rule.NewCreateRuleHandler(svc.Rule).Register(api)
	rule.NewUpdateRuleHandler(svc.Rule).Register(api)
	rule.NewApplyRulesHandler(svc.Rule).Register(api)

	anomaly.NewDetectAnomaliesHandler(svc.Anomaly).Register(api)

	upload.NewStartUploadHandler(svc.Upload).Register(api)
	upload.NewGetUploadHandler(svc.Upload).Register(api)

	return mux
}

// Serve listens until ctx is cancelled, then drains in-flight requests.
func (r *Rest) Serve(ctx context.Context) {
	server := http.Server{
		Addr:              ":" + r.Port,
		Handler:           r.Routes(),
		ReadTimeout:       time.Duration(120) * time.Second,
		WriteTimeout:      time.Duration(30) * time.Second,
		IdleTimeout:       time.Duration(10) * time.Second,
		ReadHeaderTimeout: time.Duration(10) * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			r.Logger.WithError(err).Error("HttpServer.Serve.shutdown error")
		}
	}()

	r.Logger.WithField("port", r.Port).Info("HttpServer.Serve.listening")
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		r.Logger.WithError(err).Error("HttpServer.Serve.listen error")
	}
	r.Logger.Info("HttpServer.Serve.shutting down")
}

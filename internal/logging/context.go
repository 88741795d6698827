package logging

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"
)

type logDataKey struct{}

func WithLogData(ctx context.Context, logData *LogData) context.Context {
	return context.WithValue(ctx, logDataKey{}, logData)
}

// GetLogData returns the request's LogData, or nil outside a request.
func GetLogData(ctx context.Context) *LogData {
	logData, _ := ctx.Value(logDataKey{}).(*LogData)
	return logData
}

// HumaMiddleware attaches a LogData to every operation and logs it once the
// handler returns.
func HumaMiddleware(logger logrus.FieldLogger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		operationID := ctx.Operation().OperationID
		logData := NewLogData(logger)
		logData.AddData("operation", operationID)

		endTimer := logData.AddTiming("duration")
		next(huma.WithValue(ctx, logDataKey{}, logData))
		endTimer()

		status := ctx.Status()
		logData.AddData("status", status)
		if status >= 500 {
			logData.Log().Errorf("Handler.%v.Error", operationID)
			return
		}
		logData.Log().Infof("Handler.%v.Complete", operationID)
	}
}

package logging

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// LoggingWrapper adapts a plain handler that reports errors into an
// http.HandlerFunc with per-request LogData.
func LoggingWrapper(
	loggingName string,
	log logrus.FieldLogger,
	handler func(http.ResponseWriter, *http.Request, *LogData) error,
) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		logData := NewLogData(log)
		log.Debugf("Handler.%v.Start", loggingName)

		endTimer := logData.AddTiming("duration")
		err := handler(w, req.WithContext(WithLogData(req.Context(), logData)), logData)
		endTimer()
		if err != nil {
			logData.Log().WithError(err).Errorf("Handler.%v.Error", loggingName)
			return
		}

		logData.Log().Infof("Handler.%v.Complete", loggingName)
	}
}

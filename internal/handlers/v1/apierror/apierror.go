// Package apierror maps service errors onto HTTP statuses.
package apierror

import (
	"database/sql"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/pkg/errors"

	"github.com/carson-networks/ledger-rules/internal/matcher"
	"github.com/carson-networks/ledger-rules/internal/operator"
	"github.com/carson-networks/ledger-rules/internal/service"
	"github.com/carson-networks/ledger-rules/internal/staging"
)

// From wraps err in a huma error whose status matches its cause. msg is
// used for unexpected failures.
func From(err error, msg string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return huma.NewError(http.StatusNotFound, "not found", err)
	case errors.Is(err, matcher.ErrInvalidRule),
		errors.Is(err, matcher.ErrInvalidOperand),
		errors.Is(err, service.ErrInvalidTransaction),
		errors.Is(err, staging.ErrUnsupportedSource):
		return huma.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, operator.ErrRunnerStopped):
		return huma.NewError(http.StatusServiceUnavailable, "server is shutting down", err)
	default:
		return huma.NewError(http.StatusInternalServerError, msg, err)
	}
}

package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Business-rule rejections keep their specific reason in the detail field;
// unknown errors are logged and collapsed to an opaque 500.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrCreditLimitExceeded):
		Problem(w, http.StatusUnprocessableEntity, "Credit Limit Exceeded", err.Error())
	case errors.Is(err, shared.ErrMissingAccount):
		Problem(w, http.StatusUnprocessableEntity, "Account Mapping Missing", err.Error())
	case errors.Is(err, shared.ErrUnbalancedEntry), errors.Is(err, shared.ErrZeroAmountLine):
		Problem(w, http.StatusUnprocessableEntity, "Posting Rule Defect", err.Error())
	case errors.Is(err, shared.ErrAlreadyPosted), errors.Is(err, shared.ErrInvalidTransition):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrConcurrencyConflict):
		Problem(w, http.StatusConflict, "Conflict", "concurrent update, retry the request")
	default:
		if logger != nil {
			logger.Error("request failed", slog.Any("error", err))
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

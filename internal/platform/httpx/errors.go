// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/ibrahim-bhat/Billflow-updated-sub002/internal/shared"
)

// ErrBadRequest marks request bodies or parameters that could not be parsed.
var ErrBadRequest = errors.New("bad request")

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBadRequest) {
		Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	var domainErr *shared.Error
	if !errors.As(err, &domainErr) {
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	detail := ProblemDetail{
		Type:   "about:blank",
		Detail: err.Error(),
		Code:   string(domainErr.Code),
		Fields: domainErr.Fields,
	}
	switch domainErr.Kind {
	case shared.KindValidation:
		detail.Status, detail.Title = http.StatusBadRequest, "Validation Failed"
	case shared.KindResolution, shared.KindArithmetic:
		detail.Status, detail.Title = http.StatusUnprocessableEntity, "Unprocessable"
	case shared.KindStock:
		detail.Status, detail.Title = http.StatusConflict, "Stock Unavailable"
	case shared.KindNotFound:
		detail.Status, detail.Title = http.StatusNotFound, "Not Found"
	case shared.KindConflict:
		detail.Status, detail.Title = http.StatusConflict, "Duplicate"
	default:
		detail.Status, detail.Title = http.StatusInternalServerError, "Internal Error"
		detail.Detail = ""
	}
	JSON(w, detail.Status, detail)
}

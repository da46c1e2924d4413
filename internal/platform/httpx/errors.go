package httpx

import (
	"errors"
	"net/http"

	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

// RespondError maps domain failures to RFC7807 responses. AppError kinds keep
// their code and field messages; anything else is an opaque internal error.
func RespondError(w http.ResponseWriter, err error) {
	var ae *shared.AppError
	if errors.As(err, &ae) && ae.Kind != shared.KindInternal {
		JSON(w, ae.HTTPStatus(), ProblemDetail{
			Title:  string(ae.Kind),
			Status: ae.HTTPStatus(),
			Detail: ae.Message,
			Code:   ae.Code,
			Fields: ae.Fields,
		})
		return
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

package httpx

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

// Validate runs struct validation and converts failures into a VALIDATION
// AppError with per-field messages.
func Validate(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shared.Validation("invalid_request", "request validation failed", nil)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fmt.Sprintf("must satisfy %q", fe.Tag())
	}
	return shared.Validation("invalid_request", "request validation failed", fields)
}

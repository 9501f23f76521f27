package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// DecodeValidated decodes the JSON body and runs struct validation, returning
// ErrValidation-wrapped errors suitable for RespondError.
func DecodeValidated(v *validator.Validate, r *http.Request, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return fmt.Errorf("%w: malformed request body", ErrValidation)
	}
	if err := v.Struct(target); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			return fmt.Errorf("%w: %s", ErrValidation, fields[0].Error())
		}
		return fmt.Errorf("%w: invalid request", ErrValidation)
	}
	return nil
}

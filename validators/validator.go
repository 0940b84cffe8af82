package validators

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/anonto42/threadline/backend/internal/apperr"
)

// Validator adapts go-playground/validator to echo.Validator
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate reports the first failing field as an Invalid error
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return apperr.Wrap(apperr.Invalid, f.Field()+" failed on the '"+f.Tag()+"' rule", err)
	}
	return apperr.Wrap(apperr.Invalid, "Invalid request payload", err)
}

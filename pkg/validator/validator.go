// Package validator wraps go-playground/validator for request validation.
package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{
		validate: validator.New(),
	}
	v.registerCustomValidations()
	return v
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMessages []string
			for _, e := range validationErrors {
				errMessages = append(errMessages, fmt.Sprintf(
					"Field '%s' failed validation '%s'",
					e.Field(),
					e.Tag(),
				))
			}
			return fmt.Errorf("validation failed: %v", errMessages)
		}
		return err
	}
	return nil
}

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3,8}$`)

func (v *Validator) registerCustomValidations() {
	// currency_code: short uppercase identifier, ISO 4217 style
	_ = v.validate.RegisterValidation("currency_code", func(fl validator.FieldLevel) bool {
		return currencyCodeRe.MatchString(fl.Field().String())
	})

	// positive_amount: decimal.Decimal strictly greater than zero
	_ = v.validate.RegisterValidation("positive_amount", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		if !ok {
			return false
		}
		return d.IsPositive()
	})
}

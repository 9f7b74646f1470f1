package address

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/dukerupert/quartz/internal/domain"
	"github.com/go-playground/validator/v10"
)

// BasicValidator performs format validation without external API calls.
type BasicValidator struct {
	validate *validator.Validate
}

// NewBasicValidator creates a validator with field errors keyed by JSON name.
func NewBasicValidator() *BasicValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", validPhone)
	return &BasicValidator{validate: v}
}

// validPhone accepts digits with an optional leading + and common separators.
func validPhone(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	digits := 0
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

// Normalize trims surrounding whitespace from every field.
func Normalize(addr Fields) Fields {
	return Fields{
		FullName:    strings.TrimSpace(addr.FullName),
		Phone:       strings.TrimSpace(addr.Phone),
		Email:       strings.TrimSpace(addr.Email),
		AddressLine: strings.TrimSpace(addr.AddressLine),
		City:        strings.TrimSpace(addr.City),
		State:       strings.TrimSpace(addr.State),
		Pincode:     strings.ToUpper(strings.TrimSpace(addr.Pincode)),
	}
}

func (v *BasicValidator) Validate(ctx context.Context, addr Fields) (Fields, error) {
	addr = Normalize(addr)

	err := v.validate.StructCtx(ctx, addr)
	if err == nil {
		return addr, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Fields{}, fmt.Errorf("failed to validate address: %w", err)
	}

	var out error = &domain.ValidationError{Op: "address.validate", Fields: map[string]string{}}
	for _, fe := range fieldErrs {
		out = domain.AddFieldError(out, fe.Field(), message(fe))
	}
	return Fields{}, out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "alphanum":
		return "must contain only letters and digits"
	}
	return "is invalid"
}

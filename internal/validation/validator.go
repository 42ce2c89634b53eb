// Package validation provides struct validation for wallet entities using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/walletapp/wallet-core/internal/domain"
	domainerrors "github.com/walletapp/wallet-core/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		// Remove options like omitempty, -
		for i := range len(name) {
			if name[i] == ',' {
				return name[:i]
			}
		}
		return name
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("barcode_format", func(fl validator.FieldLevel) bool {
		return domain.BarcodeFormat(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("card_color", func(fl validator.FieldLevel) bool {
		return domain.CardColor(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseTimestamp(fl.Field().String())
		return err == nil
	})

	v.RegisterStructValidation(validateCardTimestamps, domain.LoyaltyCard{})

	return &Validator{v: v}
}

// validateCardTimestamps enforces updated_at >= created_at.
func validateCardTimestamps(sl validator.StructLevel) {
	card, ok := sl.Current().Interface().(domain.LoyaltyCard)
	if !ok {
		return
	}
	created, err := domain.ParseTimestamp(card.CreatedAt)
	if err != nil {
		return
	}
	updated, err := domain.ParseTimestamp(card.UpdatedAt)
	if err != nil {
		return
	}
	if updated.Before(created) {
		sl.ReportError(card.UpdatedAt, "updated_at", "UpdatedAt", "gtecreated", "")
	}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = v.friendlyMessage(e)
	}

	fields := make([]string, 0, len(fieldErrors))
	for field, msg := range fieldErrors {
		fields = append(fields, field+" "+msg)
	}
	sort.Strings(fields)

	return domainerrors.ValidationWithDetails(
		"validation failed: "+strings.Join(fields, "; "),
		fieldErrors,
	)
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "uuid":
		return "must be a valid UUID"
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "barcode_format":
		return "must be one of CODE128, EAN13, EAN8, QR, CODE39, UPCA"
	case "card_color":
		return "must be one of blue, red, green, orange, grey"
	case "iso8601":
		return "must be an ISO-8601 timestamp"
	case "gtecreated":
		return "must not be earlier than created_at"
	default:
		return "is invalid"
	}
}

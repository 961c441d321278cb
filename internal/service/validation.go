package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vanshika/txwebhook/internal/domain"
)

// Amounts must fit NUMERIC(20, 8) exactly so no backend rounds or rejects them.
const (
	maxAmountScale         = 8
	maxAmountIntegerDigits = 12
)

var maxAmountExclusive = decimal.New(1, maxAmountIntegerDigits)

type notificationRules struct {
	TransactionID      string          `json:"transaction_id" validate:"required,max=255"`
	SourceAccount      string          `json:"source_account" validate:"required,max=255"`
	DestinationAccount string          `json:"destination_account" validate:"required,max=255"`
	Amount             decimal.Decimal `json:"amount" validate:"gt=0"`
	Currency           string          `json:"currency" validate:"required,max=10"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		switch d.Sign() {
		case 1:
			// Keep tiny positive amounts positive after the float conversion.
			f := d.InexactFloat64()
			if f <= 0 {
				return 1.0
			}
			return f
		case -1:
			return -1.0
		default:
			return 0.0
		}
	}, decimal.Decimal{})
	v.RegisterStructValidation(validateAmountPrecision, notificationRules{})
	return v
}

func validateAmountPrecision(sl validator.StructLevel) {
	rules, ok := sl.Current().Interface().(notificationRules)
	if !ok || rules.Amount.Sign() <= 0 {
		return
	}
	if !rules.Amount.Equal(rules.Amount.Truncate(maxAmountScale)) {
		sl.ReportError(rules.Amount, "amount", "Amount", "scale", strconv.Itoa(maxAmountScale))
	}
	if rules.Amount.GreaterThanOrEqual(maxAmountExclusive) {
		sl.ReportError(rules.Amount, "amount", "Amount", "digits", strconv.Itoa(maxAmountIntegerDigits))
	}
}

func validateNotification(v *validator.Validate, n domain.Notification) error {
	err := v.Struct(notificationRules{
		TransactionID:      n.TransactionID,
		SourceAccount:      n.SourceAccount,
		DestinationAccount: n.DestinationAccount,
		Amount:             n.Amount,
		Currency:           n.Currency,
	})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "scale":
		return fe.Field() + " must have at most " + fe.Param() + " decimal places"
	case "digits":
		return fe.Field() + " must have at most " + fe.Param() + " integer digits"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return fe.Field() + " failed " + fe.Tag()
	}
}

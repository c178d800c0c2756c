package snapshot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedCartItem marks a captured line that lacks a required field.
var ErrMalformedCartItem = errors.New("malformed cart item")

var validate = validator.New()

// MalformedItemError names the line item and the fields that failed validation.
type MalformedItemError struct {
	ProductID string
	Fields    []string
}

func (e *MalformedItemError) Error() string {
	return fmt.Sprintf("%s: product %q: invalid %s", ErrMalformedCartItem, e.ProductID, strings.Join(e.Fields, ", "))
}

func (e *MalformedItemError) Unwrap() error {
	return ErrMalformedCartItem
}

// Validate checks that item carries everything a line-item hit needs.
func Validate(item LineItem) error {
	err := validate.Struct(item)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate line item: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &MalformedItemError{ProductID: item.ProductID, Fields: fields}
}

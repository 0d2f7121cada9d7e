package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/books-catalog/cmd/api/book"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	// report fields by their json name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

/* Checks the entry against its struct tags, reporting the first failure as an invalid entry. */
func validateEntry(entry BookEntry) error {
	err := validate.Struct(entry)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return book.ErrResponse{
			Code:    book.ErrResponseBookEntryInvalid.Code,
			Message: book.ErrResponseBookEntryInvalid.Message + err.Error(),
		}
	}

	fe := fieldErrs[0]
	var reason string
	switch fe.Tag() {
	case "notblank":
		reason = fmt.Sprintf("%s cannot be blank", fe.Field())
	case "max":
		reason = fmt.Sprintf("%s cannot exceed %s characters", fe.Field(), fe.Param())
	default:
		reason = fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
	}

	return book.ErrResponse{
		Code:    book.ErrResponseBookEntryInvalid.Code,
		Message: book.ErrResponseBookEntryInvalid.Message + reason,
	}
}

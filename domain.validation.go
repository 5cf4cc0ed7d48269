package main

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validationMessages holds the client facing message for each
// field and rule pair. Keys are formatted as `field.rule`.
var validationMessages = map[string]string{
	"title.notblank":  "Title is required",
	"author.notblank": "Author name is required",
	"year.min":        "Year must be a positive number",
	"year.max":        "Year must not exceed 2147483647",
	"isbn.len":        "ISBN must be exactly 13 characters",
	"isbn.digits":     "ISBN must contain only 13 digits",
}

// BookValidator checks books against the rules declared on the
// Book struct tags.
type BookValidator struct {
	validate *validator.Validate
}

// NewBookValidator returns a ready to use BookValidator.
func NewBookValidator() *BookValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// both rules are registered on a fresh instance so errors here are programming errors.
	if err := v.RegisterValidation("notblank", isNotBlank); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("digits", isDigitsOnly); err != nil {
		panic(err)
	}
	return &BookValidator{validate: v}
}

// Validate returns the list of violations as `field: message` strings.
// An empty list means the book is valid.
func (bv *BookValidator) Validate(book *Book) []string {
	err := bv.validate.Struct(book)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"book: " + err.Error()}
	}

	violations := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := validationMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		violations = append(violations, fe.Field()+": "+msg)
	}
	return violations
}

func isNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func isDigitsOnly(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

package models

import (
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator caches parsed tags and is safe for concurrent use.
var validate = validator.New()

// SubscriberEmail is an address that passed ParseSubscriberEmail.
type SubscriberEmail struct {
	value string
}

func ParseSubscriberEmail(raw string) (SubscriberEmail, error) {
	if !utf8.ValidString(raw) {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "not valid UTF-8"}
	}
	if err := validate.Var(raw, "required,email"); err != nil {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "not a valid email address"}
	}
	return SubscriberEmail{value: raw}, nil
}

func (e SubscriberEmail) String() string {
	return e.value
}

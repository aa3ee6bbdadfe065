package models

import "fmt"

// ValidationError reports which field of a subscription form was rejected.
// It deliberately omits the rejected value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid subscriber %s: %s", e.Field, e.Reason)
}

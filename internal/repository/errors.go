package repository

import "fmt"

// PersistenceError wraps any failure to store a subscription. Callers log it
// in full and answer clients with a bare 500.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested record does not exist in the database.
var ErrNotFound = errors.New("not found")

// SchemaValidationError is returned when a record is rejected by the contact
// schema, either by the schema layer in this package or by the server-side
// validator of the underlying store. Field is empty when the store did not
// report which field failed.
type SchemaValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *SchemaValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("schema validation failed: %s %s", e.Field, e.Reason)
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

package domain

import "fmt"

// ValidationError reports a missing or invalid required field on an entity
// record, surfaced at construction/hydration time instead of as a runtime
// key error.
type ValidationError struct {
	Entity string
	Field  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing or invalid field %q", e.Entity, e.Field)
}

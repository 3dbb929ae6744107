package monolith

import "fmt"

// UnreachableError reports a failed introspection of the monolith endpoint.
// It is not retryable at this layer; startup must fail.
type UnreachableError struct {
	URL string
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("monolith: endpoint %s is unreachable: %v", e.URL, e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// CompatibilityError reports an introspected monolith schema that lacks a
// required marker type or field. Missing names the absent piece.
type CompatibilityError struct {
	Missing    string
	MinVersion string
}

func (e *CompatibilityError) Error() string {
	return fmt.Sprintf("monolith: schema is missing %s; monolith version %s or newer is required",
		e.Missing, e.MinVersion)
}

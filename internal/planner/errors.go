package planner

import "fmt"

// Visibility classifies a PlanError per spec.md §7: User errors are safe to
// surface verbatim in the GraphQL response; Internal errors indicate a
// planner invariant was violated and should be logged with a trace id
// rather than shown to the caller.
type Visibility string

const (
	VisibilityUser     Visibility = "user"
	VisibilityInternal Visibility = "internal"
)

// PlanError is every error Plan can return: spec.md §7's "Plan errors" kind.
type PlanError struct {
	Kind       string
	Message    string
	Path       []string
	Visibility Visibility
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func userError(path []string, kind, format string, args ...any) *PlanError {
	return &PlanError{Kind: kind, Message: fmt.Sprintf(format, args...), Path: path, Visibility: VisibilityUser}
}

func internalError(path []string, format string, args ...any) *PlanError {
	return &PlanError{Kind: "InternalError", Message: fmt.Sprintf(format, args...), Path: path, Visibility: VisibilityInternal}
}

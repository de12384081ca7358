package executor

import "fmt"

// Visibility mirrors planner.Visibility for the execution-error kind of
// spec.md §7: User errors are safe to surface verbatim in the GraphQL
// response, Internal errors indicate an invariant was violated upstream and
// should be logged with a trace id instead.
type Visibility string

const (
	VisibilityUser     Visibility = "user"
	VisibilityInternal Visibility = "internal"
)

// ExecutionError is every error Execute can attach to a root field: spec.md
// §7's "Execution errors" kind (NDC call failed, response shape mismatch,
// remote-join key materialization failed) plus internal invariant
// violations.
type ExecutionError struct {
	Kind       string
	Message    string
	Path       []string
	Visibility Visibility
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func userError(path []string, kind, format string, args ...any) *ExecutionError {
	return &ExecutionError{Kind: kind, Message: fmt.Sprintf(format, args...), Path: path, Visibility: VisibilityUser}
}

func internalError(path []string, format string, args ...any) *ExecutionError {
	return &ExecutionError{Kind: "InternalError", Message: fmt.Sprintf(format, args...), Path: path, Visibility: VisibilityInternal}
}

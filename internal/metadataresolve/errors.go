package metadataresolve

import "fmt"

// Violation is one fatal metadata-resolution failure, grounded on the
// teacher's ir.Violation shape (internal/ir/violation.go in the reference
// repo): a message plus enough context to locate the offending definition.
// Unlike the teacher, OpenDD documents carry no source positions (the
// on-disk format is out of scope per spec.md §1), so Violation locates
// itself by subgraph/kind/name instead of file:line:column.
type Violation struct {
	Kind    ErrorKind
	Message string
	Subgraph string
	Name     string
}

func (v *Violation) Error() string {
	if v.Subgraph != "" {
		return fmt.Sprintf("%s: %s (%s/%s)", v.Kind, v.Message, v.Subgraph, v.Name)
	}
	return fmt.Sprintf("%s: %s", v.Kind, v.Message)
}

// ErrorKind enumerates the metadata-error taxonomy of spec.md §7 ("Metadata
// errors (fatal at startup)") and the NDC-validation taxonomy that follows
// it.
type ErrorKind string

const (
	ErrUnknownType                         ErrorKind = "UnknownType"
	ErrUnknownDataConnector                ErrorKind = "UnknownDataConnector"
	ErrDuplicateDataConnectorDefinition     ErrorKind = "DuplicateDataConnectorDefinition"
	ErrDuplicateDefinition                  ErrorKind = "DuplicateDefinition"
	ErrConflictingGraphQLTypeName           ErrorKind = "ConflictingGraphQLTypeName"
	ErrUnknownField                        ErrorKind = "UnknownFieldReferenced"
	ErrMappingMissing                      ErrorKind = "MappingMissing"
	ErrMappingToMultipleDataConnectorObjectType ErrorKind = "MappingToMultipleDataConnectorObjectType"
	ErrUnsupportedFeature                  ErrorKind = "UnsupportedFeature"
	ErrNoSuchCollection                    ErrorKind = "NoSuchCollection"
	ErrNoSuchArgument                      ErrorKind = "NoSuchArgument"
	ErrNoSuchColumn                        ErrorKind = "NoSuchColumn"
	ErrNoSuchProcedure                     ErrorKind = "NoSuchProcedure"
	ErrNoSuchFunction                      ErrorKind = "NoSuchFunction"
	ErrArgumentPresetConflict              ErrorKind = "ArgumentPresetConflict"
	ErrTypeRepresentationUnsupported       ErrorKind = "TypeRepresentationUnsupportedForArgumentPreset"
	ErrInvalidGlobalID                     ErrorKind = "InvalidGlobalIDConfiguration"
	ErrInvalidApolloFederation             ErrorKind = "InvalidApolloFederationConfiguration"
)

// ValidationError collects every violation found before resolution aborts,
// grounded on the teacher's ir.ValidationError.
type ValidationError []*Violation

func (e ValidationError) Error() string {
	msg := fmt.Sprintf("metadata resolution failed with %d error(s):\n", len(e))
	for _, v := range e {
		msg += "- " + v.Error() + "\n"
	}
	return msg
}

func violation(kind ErrorKind, subgraph, name, format string, args ...any) *Violation {
	return &Violation{Kind: kind, Subgraph: subgraph, Name: name, Message: fmt.Sprintf(format, args...)}
}

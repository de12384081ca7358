// Package metadataresolve implements the thirteen-stage metadata resolution
// pipeline of spec.md §4.1: it takes a raw opendd.Metadata document and
// produces an immutable, cross-referenced Metadata artifact that
// internal/schema and internal/queryir can plan queries against without
// re-resolving any name.
package metadataresolve

import "github.com/opendd/ddnengine/internal/opendd"

type (
	Qualified[T comparable] = opendd.Qualified[T]
	CustomTypeName          = opendd.CustomTypeName
	DataConnectorName       = opendd.DataConnectorName
	ModelName               = opendd.ModelName
	CommandName             = opendd.CommandName
	RoleName                = opendd.RoleName
	FieldName               = opendd.FieldName
	RelationshipName        = opendd.RelationshipName
	ArgumentName            = opendd.ArgumentName
	TypeReference           = opendd.TypeReference
	QualifiedTypeName       = opendd.QualifiedTypeName
)

// Metadata is the immutable artifact of spec.md §3 "Resolved Metadata",
// consumed by internal/schema and internal/queryir. Once Resolve returns a
// *Metadata it is never mutated; callers share it read-only across request
// goroutines without locks.
type Metadata struct {
	GraphQLConfig *opendd.GraphQLConfig

	DataConnectors map[Qualified[DataConnectorName]]*DataConnectorLink

	ScalarTypes map[Qualified[CustomTypeName]]*ScalarType

	// ObjectTypesWithRelationships indexes every resolved object type,
	// including the relationships attached to it. Relationships are
	// stored by name, not by pointer, so relationship graphs may be
	// cyclic without creating reference cycles in Go (spec.md §9).
	ObjectTypesWithRelationships map[Qualified[CustomTypeName]]*ObjectType

	BooleanExpressionTypes map[Qualified[opendd.BooleanExpressionTypeName]]*BooleanExpressionType

	ModelsWithPermissions map[Qualified[ModelName]]*Model

	CommandsWithPermissions map[Qualified[CommandName]]*Command

	Roles map[RoleName]struct{}

	// GlobalIDEnabledTypes and ApolloFederationEntityEnabledTypes mirror
	// the side-tables the object_types stage records for the apollo
	// stage to validate against (spec.md §4.1 stage 3 and stage 10).
	GlobalIDEnabledTypes               map[Qualified[CustomTypeName]]struct{}
	ApolloFederationEntityEnabledTypes map[Qualified[CustomTypeName]]struct{}
}

type DataConnectorLink = opendd.DataConnectorLink

// ScalarType is the resolved scalar: the user's declaration plus the
// per-connector representations collected by the
// data_connector_scalar_types stage.
type ScalarType struct {
	Name                 Qualified[CustomTypeName]
	GraphQLTypeName       string
	Representations      map[Qualified[DataConnectorName]]opendd.DataConnectorScalarRepresentation
}

// FieldDefinition is a resolved ObjectType field: the raw definition. Per-role
// visibility is held in ObjectType.Permissions, not here.
type FieldDefinition struct {
	opendd.FieldDefinition
}

// ObjectType is the resolved object type: fields, global-id/apollo config,
// per-role permissions, and the relationships whose SourceType is this
// type.
type ObjectType struct {
	Name            Qualified[CustomTypeName]
	Fields          map[FieldName]FieldDefinition
	FieldOrder      []FieldName
	GlobalIDFields  []FieldName
	Apollo          *opendd.ApolloFederationConfig
	GraphQLTypeName string
	GraphQLInput    string

	Permissions map[RoleName]*TypePermission

	// Relationships keyed by name — never stored by pointer into the
	// target type, so the map can be walked for a Local/RemoteForEach
	// Relationship without the target object needing to exist yet.
	Relationships map[RelationshipName]*Relationship

	// TypeMappings indexes TypeMapping by DataConnectorName for this
	// OpenDD type — a type may be exposed through more than one connector,
	// with one DataConnectorObjectType per connector.
	TypeMappings map[Qualified[DataConnectorName]]*TypeMapping
}

type TypePermission struct {
	Role          RoleName
	AllowedFields map[FieldName]struct{}
	FieldPresets  map[FieldName]opendd.FieldPreset
}

// TypeMapping is the resolved per-(ObjectType, connector) field mapping of
// spec.md §3. Invariant enforced by the type-mapping collector
// (typemapping.go): every field in ObjectType has exactly one entry here
// for every connector it is exposed on.
type TypeMapping struct {
	ObjectType              Qualified[CustomTypeName]
	DataConnectorName       Qualified[DataConnectorName]
	DataConnectorObjectType opendd.DataConnectorObjectType
	FieldMappings           map[FieldName]opendd.FieldMapping
}

// RelationshipExecutionCategory classifies a relationship per spec.md §3:
// a pure function of (source connector == target connector) AND the
// connector's relationships capability.
type RelationshipExecutionCategory string

const (
	Local         RelationshipExecutionCategory = "Local"
	RemoteForEach RelationshipExecutionCategory = "RemoteForEach"
)

type Relationship struct {
	Name       RelationshipName
	SourceType Qualified[CustomTypeName]
	Target     RelationshipTarget
	Mappings   []opendd.RelationshipMapping
	ListType   bool
	Category   RelationshipExecutionCategory
}

// RelationshipTarget is the tagged union { Model | Command } of spec.md §3.
type RelationshipTarget struct {
	Model   *Qualified[ModelName]
	Command *Qualified[CommandName]
}

type Model struct {
	Name             Qualified[ModelName]
	DataType         Qualified[CustomTypeName]
	Source           *ModelSource
	FilterExpression *Qualified[opendd.BooleanExpressionTypeName]
	GraphQL          *opendd.ModelGraphQLConfig
	Aggregate        *AggregateExpression
	GlobalIDSource   bool
	ApolloEntitySource bool
	Arguments        map[ArgumentName]opendd.ArgumentDefinition
	Permissions      map[RoleName]*ModelPermission
}

type ModelSource struct {
	DataConnector    Qualified[DataConnectorName]
	Collection       opendd.Identifier
	ArgumentMappings map[ArgumentName]ArgumentName
	TypeMappings     map[Qualified[DataConnectorName]]*TypeMapping
}

// AggregateExpression resolves spec.md's supplemented "aggregate
// expressions" feature (SPEC_FULL.md §9): for each mapped field whose
// custom scalar type has a representation on the model's source connector,
// the sorted comparison-operator names of that representation. Fields
// without one are absent from FieldFunctions; no field is validated or
// rejected.
type AggregateExpression struct {
	Name             string
	CountEnabled     bool
	FieldFunctions   map[FieldName][]string // field -> allowed connector function names
}

type ModelPermission struct {
	Role              RoleName
	Select            *ModelSelectPermission
}

type ModelSelectPermission struct {
	Filter            *ModelPredicate
	ArgumentPresets   map[ArgumentName]opendd.ArgumentPresetValue
	AllowSubscription bool
}

// ModelPredicate is the resolved, typechecked translation of a raw
// opendd.BooleanExpressionValue permission filter (spec.md §4.1 stage 12).
type ModelPredicate struct {
	And        []*ModelPredicate
	Or         []*ModelPredicate
	Not        *ModelPredicate
	Field      FieldName
	Op         string
	Value      any
	Relationship *RelationshipPredicate
}

type RelationshipPredicate struct {
	Name      RelationshipName
	Predicate *ModelPredicate
}

type Command struct {
	Name        Qualified[CommandName]
	Arguments   map[ArgumentName]opendd.ArgumentDefinition
	OutputType  *TypeReference
	Source      *CommandSource
	GraphQL     *opendd.CommandGraphQLConfig
	Permissions map[RoleName]*CommandPermission
}

type CommandSource struct {
	DataConnector    Qualified[DataConnectorName]
	Function         *opendd.Identifier
	Procedure        *opendd.Identifier
	ArgumentMappings map[ArgumentName]ArgumentName
	TypeMappings     map[Qualified[DataConnectorName]]*TypeMapping
}

type CommandPermission struct {
	Role    RoleName
	Execute *CommandExecutePermission
}

type CommandExecutePermission struct {
	ArgumentPresets map[ArgumentName]opendd.ArgumentPresetValue
}

type BooleanExpressionType struct {
	Object *ObjectBooleanExpressionType
	Scalar *opendd.ScalarBooleanExpressionType
}

type ObjectBooleanExpressionType struct {
	Name                    Qualified[opendd.BooleanExpressionTypeName]
	ObjectType              Qualified[CustomTypeName]
	DataConnectorName       Qualified[DataConnectorName]
	DataConnectorObjectType opendd.DataConnectorObjectType
	ComparableFields        map[FieldName]Qualified[opendd.BooleanExpressionTypeName]
	IsLegacy                bool
	GraphQLTypeName         string
	LogicalOperators        opendd.LogicalOperatorNames
}

// Package opendd defines the raw, pre-resolution OpenDD metadata model: the
// declarative document a user authors (types, models, commands,
// relationships, permissions, boolean expressions, data-connector links)
// before it is cross-validated by internal/metadataresolve.
package opendd

import "fmt"

// Qualified pairs a subgraph namespace with a name. Equality and ordering are
// structural (field-by-field), never pointer identity.
type Qualified[T comparable] struct {
	Subgraph string
	Name     T
}

func NewQualified[T comparable](subgraph string, name T) Qualified[T] {
	return Qualified[T]{Subgraph: subgraph, Name: name}
}

func (q Qualified[T]) String() string {
	return fmt.Sprintf("%s/%v", q.Subgraph, q.Name)
}

// Less gives Qualified a deterministic total order, used whenever resolved
// metadata needs to range over a map in a stable sequence.
func (q Qualified[T]) Less(other Qualified[T]) bool {
	if q.Subgraph != other.Subgraph {
		return q.Subgraph < other.Subgraph
	}
	return fmt.Sprint(q.Name) < fmt.Sprint(other.Name)
}

// Identifier is an alphanumeric-plus-underscore name that does not start with
// a digit. Construction is left to the loader/stage that first parses a
// document; this type exists to give the rest of the codebase a single,
// named vocabulary term to range over.
type Identifier string

type CustomTypeName = Identifier
type DataConnectorName = Identifier
type ModelName = Identifier
type CommandName = Identifier
type RoleName = Identifier
type FieldName = Identifier
type RelationshipName = Identifier
type ArgumentName = Identifier
type BooleanExpressionTypeName = Identifier

// InbuiltType enumerates OpenDD's built-in scalar type names.
type InbuiltType string

const (
	InbuiltString  InbuiltType = "String"
	InbuiltInt     InbuiltType = "Int"
	InbuiltFloat   InbuiltType = "Float"
	InbuiltBoolean InbuiltType = "Boolean"
	InbuiltID      InbuiltType = "ID"
)

func (t InbuiltType) Valid() bool {
	switch t {
	case InbuiltString, InbuiltInt, InbuiltFloat, InbuiltBoolean, InbuiltID:
		return true
	}
	return false
}

// QualifiedTypeName is either one of the five inbuilt scalars or a
// subgraph-qualified custom type.
type QualifiedTypeName struct {
	Inbuilt InbuiltType
	Custom  *Qualified[CustomTypeName]
}

func InbuiltTypeName(t InbuiltType) QualifiedTypeName { return QualifiedTypeName{Inbuilt: t} }

func CustomTypeNameRef(q Qualified[CustomTypeName]) QualifiedTypeName {
	return QualifiedTypeName{Custom: &q}
}

func (n QualifiedTypeName) String() string {
	if n.Custom != nil {
		return n.Custom.String()
	}
	return string(n.Inbuilt)
}

func (n QualifiedTypeName) Equal(other QualifiedTypeName) bool {
	if n.Custom != nil && other.Custom != nil {
		return *n.Custom == *other.Custom
	}
	if n.Custom == nil && other.Custom == nil {
		return n.Inbuilt == other.Inbuilt
	}
	return false
}

// TypeReference is the tree { base: Named|List, nullable: bool } from
// spec.md §3.
type TypeReference struct {
	Nullable bool
	Named    *QualifiedTypeName // set when this node is a leaf
	List     *TypeReference     // set when this node wraps a list
}

func NamedTypeRef(name QualifiedTypeName, nullable bool) *TypeReference {
	return &TypeReference{Named: &name, Nullable: nullable}
}

func ListTypeRef(of *TypeReference, nullable bool) *TypeReference {
	return &TypeReference{List: of, Nullable: nullable}
}

// UnderlyingName strips list/nullable wrappers and returns the named leaf
// type, mirroring spec.md's underlying_name(t) helper.
func UnderlyingName(t *TypeReference) QualifiedTypeName {
	for t != nil {
		if t.Named != nil {
			return *t.Named
		}
		t = t.List
	}
	return QualifiedTypeName{}
}

func (t *TypeReference) String() string {
	if t == nil {
		return ""
	}
	var s string
	if t.Named != nil {
		s = t.Named.String()
	} else {
		s = "[" + t.List.String() + "]"
	}
	if !t.Nullable {
		s += "!"
	}
	return s
}

// FieldDefinition is one field of an ObjectType.
type FieldDefinition struct {
	Name        FieldName
	Type        *TypeReference
	Deprecated  *Deprecation
	Description string
}

type Deprecation struct {
	Reason string
}

// ApolloFederationKey is one non-empty set of fields forming an @key.
type ApolloFederationKey struct {
	Fields []FieldName
}

type ApolloFederationConfig struct {
	Keys []ApolloFederationKey
}

// ObjectType is the raw, ordered-map field definition of spec.md §3. Field
// order is preserved via FieldOrder since Go maps do not retain insertion
// order; every stage that renders fields deterministically ranges over
// FieldOrder rather than Fields.
type ObjectType struct {
	Fields          map[FieldName]FieldDefinition
	FieldOrder      []FieldName
	GlobalIDFields  []FieldName // nil when global-id is not enabled for this type
	Apollo          *ApolloFederationConfig
	GraphQLTypeName string // output type name; may differ between input/output
	GraphQLInput    string
	Description     string
}

// ScalarType is the raw scalar type definition of spec.md §3.
type ScalarType struct {
	GraphQLTypeName string
	Description     string
}

// DataConnectorObjectType names a type on a connector's own schema.
type DataConnectorObjectType = Identifier

// DataConnectorScalarRepresentation records how a user wants an NDC scalar
// type surfaced to GraphQL, plus which comparison operators it exposes.
type DataConnectorScalarRepresentation struct {
	DataConnectorScalarType Identifier
	RepresentationTypeName  *QualifiedTypeName
	ComparisonOperators     map[string]ComparisonOperatorDefinition
}

type ComparisonOperatorDefinition struct {
	ArgumentType *TypeReference
}

// DataConnectorLink is the frozen-at-resolve-time connector description of
// spec.md §3.
type DataConnectorLink struct {
	Name         Qualified[DataConnectorName]
	URL          DataConnectorURL
	Headers      map[string]string
	Schema       DataConnectorSchema
	Capabilities DataConnectorCapabilities
	// ArgumentPresets maps argument name -> a value expression (session
	// variable reference or literal), applied to every request issued
	// against this connector.
	ArgumentPresets map[ArgumentName]ArgumentPresetValue
}

type ArgumentPresetValue struct {
	SessionVariable string
	Literal         any
}

type DataConnectorURL struct {
	Single    string
	ReadURL   string
	WriteURL  string
	ReadWrite bool
}

type DataConnectorSchema struct {
	ObjectTypes map[DataConnectorObjectType]NDCObjectType
	ScalarTypes map[Identifier]NDCScalarType
	Collections map[Identifier]NDCCollection
	Functions   map[Identifier]NDCFunction
	Procedures  map[Identifier]NDCProcedure
}

type NDCObjectType struct {
	Fields map[Identifier]NDCObjectField
}

type NDCObjectField struct {
	Type *NDCType
}

// NDCType mirrors the NDC wire type shape (Named/Array/Nullable), kept
// distinct from opendd.TypeReference since a connector's underlying type
// names live in a different namespace than OpenDD custom type names.
type NDCType struct {
	Name     Identifier // set for a named type
	Element  *NDCType   // set for an array or nullable wrapper
	Nullable bool
	Array    bool
}

type NDCScalarType struct{}

type NDCCollection struct {
	ResultType  Identifier
	Arguments   map[ArgumentName]NDCArgumentDefinition
	Uniqueness  map[string][]Identifier
	Foreign     map[string]struct{}
	Description string
}

type NDCArgumentDefinition struct {
	Type *NDCType
}

type NDCFunction struct {
	ResultType Identifier
	Arguments  map[ArgumentName]NDCArgumentDefinition
}

type NDCProcedure struct {
	ResultType Identifier
	Arguments  map[ArgumentName]NDCArgumentDefinition
}

type DataConnectorCapabilities struct {
	QueryVariables    bool // capabilities.query.variables
	Relationships     bool // capabilities.relationships
	QueryNestedFields bool // capabilities.query.nested_fields
}

// TypeMapping is the declarative, user-authored binding of one OpenDD
// ObjectType to one connector's NDC object type, per spec.md §3: a field
// with no entry in FieldMappings is not exposed through this connector and
// the resolver (internal/metadataresolve's collectTypeMapping) fails
// closed rather than guessing a same-named column.
type TypeMapping struct {
	ObjectType            Qualified[CustomTypeName]
	DataConnectorName     Qualified[DataConnectorName]
	DataConnectorObjectType DataConnectorObjectType
	FieldMappings         map[FieldName]FieldMapping
}

type FieldMapping struct {
	Column            Identifier
	ColumnType        *NDCType
	ArgumentMappings  map[ArgumentName]ArgumentName
}

// ArgumentDefinition declares one argument of a model or command.
type ArgumentDefinition struct {
	Name FieldName
	Type *TypeReference
}

// ModelSource binds a Model to an NDC collection.
type ModelSource struct {
	DataConnector   Qualified[DataConnectorName]
	Collection      Identifier
	ArgumentMappings map[ArgumentName]ArgumentName
}

// ModelGraphQLConfig controls which GraphQL root fields a Model exposes.
type ModelGraphQLConfig struct {
	SelectUniques []SelectUniqueGraphQLDefinition
	SelectMany    *string
	OrderByExpr   *string
	Subscription  bool
}

type SelectUniqueGraphQLDefinition struct {
	QueryRootField string
	UniqueFields   []FieldName
}

// Model is the raw model definition of spec.md §3.
type Model struct {
	Name              Qualified[ModelName]
	DataType          Qualified[CustomTypeName]
	Source            *ModelSource
	FilterExpression  *Qualified[BooleanExpressionTypeName]
	GraphQL           *ModelGraphQLConfig
	AggregateExpr     *Qualified[string]
	GlobalIDSource    bool
	ApolloEntitySource bool
	Arguments         map[ArgumentName]ArgumentDefinition
}

// CommandSource binds a Command to an NDC function or procedure.
type CommandSource struct {
	DataConnector    Qualified[DataConnectorName]
	Function         *Identifier
	Procedure        *Identifier
	ArgumentMappings map[ArgumentName]ArgumentName
}

type CommandGraphQLConfig struct {
	RootFieldName string
	RootFieldKind CommandRootFieldKind
}

type CommandRootFieldKind string

const (
	CommandQueryField    CommandRootFieldKind = "Query"
	CommandMutationField CommandRootFieldKind = "Mutation"
)

// Command is the raw command definition of spec.md §3.
type Command struct {
	Name       Qualified[CommandName]
	Arguments  map[ArgumentName]ArgumentDefinition
	OutputType *TypeReference
	Source     *CommandSource
	GraphQL    *CommandGraphQLConfig
}

// RelationshipMapping binds one field on the source type to either a target
// model field or a target command argument.
type RelationshipMapping struct {
	SourceField   FieldName
	TargetField   *FieldName
	TargetArgument *ArgumentName
}

type RelationshipTargetKind string

const (
	RelationshipTargetModel   RelationshipTargetKind = "Model"
	RelationshipTargetCommand RelationshipTargetKind = "Command"
)

// Relationship is attached to its SourceType (never embedded by pointer into
// the type, to keep relationship graphs — which may be cyclic — lookup-based
// rather than reference-based; see spec.md §9).
type Relationship struct {
	Name       RelationshipName
	SourceType Qualified[CustomTypeName]
	TargetKind RelationshipTargetKind
	TargetModel   *Qualified[ModelName]
	TargetCommand *Qualified[CommandName]
	Mappings   []RelationshipMapping
	// ListType is true when a Model-relationship can return many rows
	// ("Array"); false for "Object" (at-most-one) relationships.
	ListType bool
}

// BooleanExpressionType is the tagged union of spec.md §3: either the legacy
// Object shape (comparable_fields must equal 100% of the object type's
// fields) or the newer tagged scalar/object-operand shape.
type BooleanExpressionType struct {
	Object *ObjectBooleanExpressionType
	Scalar *ScalarBooleanExpressionType
}

type ObjectBooleanExpressionType struct {
	Name                    Qualified[BooleanExpressionTypeName]
	ObjectType              Qualified[CustomTypeName]
	DataConnectorName       Qualified[DataConnectorName]
	DataConnectorObjectType DataConnectorObjectType
	ComparableFields        []ComparableField
	IsLegacy                bool // legacy shape requires 100% field coverage
	GraphQLTypeName         string
	LogicalOperators        LogicalOperatorNames
}

type ComparableField struct {
	FieldName FieldName
	BooleanExpressionType Qualified[BooleanExpressionTypeName]
}

type ScalarBooleanExpressionType struct {
	Name            Qualified[BooleanExpressionTypeName]
	OperandType     QualifiedTypeName
	ComparisonOps   []string
	GraphQLTypeName string
	LogicalOperators LogicalOperatorNames
}

// LogicalOperatorNames records the (possibly renamed) built-in operators
// `_and`/`_or`/`_not`/`_is_null` resolved once by the graphql_config stage.
type LogicalOperatorNames struct {
	And    string
	Or     string
	Not    string
	IsNull string
}

// FieldPreset is an input-permission value preset for one field.
type FieldPreset struct {
	Value           any
	SessionVariable string
}

type TypePermission struct {
	ObjectType      Qualified[CustomTypeName]
	Role            RoleName
	AllowedFields   []FieldName // output permission
	FieldPresets    map[FieldName]FieldPreset // input permission
}

type ArgumentPreset struct {
	Argument ArgumentName
	Value    ArgumentPresetValue
}

type ModelPermission struct {
	Model          Qualified[ModelName]
	Role           RoleName
	Select         *ModelSelectPermission
}

type ModelSelectPermission struct {
	Filter         *BooleanExpressionValue
	ArgumentPresets map[ArgumentName]ArgumentPresetValue
	AllowSubscription bool
}

// BooleanExpressionValue is the raw, unresolved boolean-expression tree a
// permission's filter predicate is authored as. See
// metadataresolve.ModelPredicate for the resolved/typechecked form.
type BooleanExpressionValue struct {
	And     []BooleanExpressionValue
	Or      []BooleanExpressionValue
	Not     *BooleanExpressionValue
	Field   FieldName
	Op      string
	Value   any
	RelationshipField *RelationshipComparison
}

type RelationshipComparison struct {
	Relationship RelationshipName
	Predicate    *BooleanExpressionValue
}

type CommandPermission struct {
	Command Qualified[CommandName]
	Role    RoleName
	Execute *CommandExecutePermission
}

type CommandExecutePermission struct {
	ArgumentPresets map[ArgumentName]ArgumentPresetValue
}

// GraphQLConfig is the parsed graphql_config stage-1 document: root
// operation type names and built-in operator names.
type GraphQLConfig struct {
	QueryRootTypeName        string
	MutationRootTypeName     string
	SubscriptionRootTypeName string
	Operators                LogicalOperatorNames
}

// DataConnectorScalarRepresentationEntry is one user-authored "this OpenDD
// scalar type is represented on this connector like so" declaration,
// consumed by the data_connector_scalar_types stage (spec.md §4.1 stage 5).
type DataConnectorScalarRepresentationEntry struct {
	ScalarType    Qualified[CustomTypeName]
	DataConnector Qualified[DataConnectorName]
	Representation DataConnectorScalarRepresentation
}

// Metadata is the full raw document: everything a user authors, grouped by
// kind, prior to any cross-stage validation.
type Metadata struct {
	GraphQLConfig          *GraphQLConfig
	DataConnectors         []DataConnectorLink
	ObjectTypes            map[Qualified[CustomTypeName]]ObjectType
	ScalarTypes            map[Qualified[CustomTypeName]]ScalarType
	DataConnectorScalarRepresentations []DataConnectorScalarRepresentationEntry
	BooleanExpressionTypes []BooleanExpressionType
	Models                 []Model
	Commands               []Command
	Relationships          []Relationship
	TypePermissions        []TypePermission
	ModelPermissions       []ModelPermission
	CommandPermissions     []CommandPermission
	TypeMappings           []TypeMapping
}

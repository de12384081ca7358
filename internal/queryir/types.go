// Package queryir builds the per-request intermediate representation of
// spec.md §4.3: given a normalized GraphQL AST and a role-scoped
// schema.Schema, it produces either a tree of QueryRootField or
// MutationRootField values that internal/planner walks without ever
// re-resolving a name against metadataresolve.Metadata.
package queryir

import (
	"github.com/opendd/ddnengine/internal/metadataresolve"
)

// ModelSelection is spec.md §3's IR.ModelSelection: a fully-resolved request
// against one Model, with any nested relationship fields already classified
// into columns, local relationships, or remote relationships.
type ModelSelection struct {
	Model        *metadataresolve.Model
	// IsMany distinguishes a select_many root/relationship field (response
	// shape: array of rows) from a select_one one (response shape: a single
	// object, or null when the predicate matches nothing).
	IsMany       bool
	Arguments    map[metadataresolve.ArgumentName]any
	Filter       *Predicate
	OrderBy      []OrderByElement
	Limit        *int
	Offset       *int
	Selection    []SelectionField
	Aggregate    *AggregateSelection
}

// CommandSelection is the command-valued analogue of ModelSelection.
type CommandSelection struct {
	Command   *metadataresolve.Command
	Arguments map[metadataresolve.ArgumentName]any
	Selection []SelectionField
}

// AggregateSelection carries the subset of a model's AggregateExpression the
// operation actually asked for: a count and/or a set of (field, function)
// pairs, aliased per the GraphQL selection.
type AggregateSelection struct {
	Count     []AggregateCountField
	Functions []AggregateFunctionField
}

type AggregateCountField struct {
	Alias  string
	Field  metadataresolve.FieldName // empty for a bare "_count"
}

type AggregateFunctionField struct {
	Alias    string
	Field    metadataresolve.FieldName
	Function string
}

// SelectionField is the tagged union of spec.md §3's SelectionSet member
// kinds. Exactly one of the pointer fields is set.
type SelectionField struct {
	Alias string

	// Column is set when the field selects a plain scalar/object column of
	// the model's data type (no relationship walk).
	Column *ColumnSelection

	// ModelRelationshipLocal/ModelRelationshipRemote/CommandRelationshipLocal/
	// CommandRelationshipRemote are set when the field crosses a
	// relationship; exactly one is non-nil, matching the relationship's
	// resolved RelationshipExecutionCategory and target kind.
	ModelRelationshipLocal    *ModelRelationshipLocal
	ModelRelationshipRemote   *ModelRelationshipRemote
	CommandRelationshipLocal  *CommandRelationshipLocal
	CommandRelationshipRemote *CommandRelationshipRemote
}

// ColumnSelection names one field of the model's data type, plus any nested
// selection if that field's type is itself an object type (for NDC
// connectors that support nested_fields).
type ColumnSelection struct {
	Field   metadataresolve.FieldName
	Nested  []SelectionField
}

type ModelRelationshipLocal struct {
	Relationship *metadataresolve.Relationship
	Query        *ModelSelection
}

type ModelRelationshipRemote struct {
	Relationship *metadataresolve.Relationship
	Query        *ModelSelection
}

type CommandRelationshipLocal struct {
	Relationship *metadataresolve.Relationship
	Command      *CommandSelection
}

type CommandRelationshipRemote struct {
	Relationship *metadataresolve.Relationship
	Command      *CommandSelection
}

// Predicate is the IR form of a GraphQL `where` argument, already resolved
// against a BooleanExpressionType: a tagged And/Or/Not/Comparison/
// Relationship tree the planner translates into an ndc.Expression.
type Predicate struct {
	And          []*Predicate
	Or           []*Predicate
	Not          *Predicate
	Field        metadataresolve.FieldName
	Operator     string
	Value        any
	Relationship *RelationshipPredicate
}

type RelationshipPredicate struct {
	Name      metadataresolve.RelationshipName
	Predicate *Predicate
}

type OrderByElement struct {
	Field     metadataresolve.FieldName
	Ascending bool
}

// QueryRootField is one field of the operation's top-level selection set
// when the operation is a query: exactly one of the union members is set,
// matching the root field's Annotation kind.
type QueryRootField struct {
	Alias string

	// IsNullable mirrors the root field's schema type: a Non-Null field
	// propagates an execution error to the whole response (spec.md §4.5),
	// a nullable one contains it to a null value plus a located error.
	IsNullable bool

	ModelSelectOne  *ModelSelection
	ModelSelectMany *ModelSelection
	Command         *CommandSelection
	Node            *NodeSelection
	TypeName        *string
	ApolloService   bool
	ApolloEntities  *ApolloEntitiesSelection
}

// MutationRootField is the mutation-operation analogue of QueryRootField;
// spec.md §3/§4.4 only ever routes mutations through Command.
type MutationRootField struct {
	Alias      string
	IsNullable bool
	Command    *CommandSelection
}

// NodeSelection resolves the Relay-style `node(id: ID!)` root field: the id
// is opaque to queryir (decoding it into a model + unique-field values is a
// host concern in the reference system); here it is carried as the raw
// argument so the planner can reject/delegate as the deployment requires.
type NodeSelection struct {
	ID string
}

type ApolloEntitiesSelection struct {
	Representations []map[string]any
	Selection       []SelectionField
}

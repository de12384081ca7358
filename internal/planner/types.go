// Package planner walks internal/queryir's request IR and produces an
// ExecutionTree of NDC requests: a single request per local subtree, plus a
// JoinLocations tree marking every point a remote relationship must be
// resolved by a follow-up NDC call (spec.md §3/§4.4).
package planner

import (
	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/ndc"
)

// JoinId identifies a RemoteJoin after deduplication: two RemoteJoin values
// found structurally equal during planning share a JoinId (spec.md §4.4,
// §9 "structural join equality"). The zero value never appears in a built
// plan; ids start at 1.
type JoinId int

// ExecutionTree is one local subtree's plan: the NDC request to issue at
// its root, the connector to issue it against, and the locations within the
// response where a remote join must be resolved.
type ExecutionTree struct {
	DataConnector metadataresolve.Qualified[metadataresolve.DataConnectorName]
	Query         *ndc.QueryRequest
	RemoteJoins   *JoinLocations

	// ResultShape tells the executor whether to present this subtree's rows
	// as an array (select_many, or a list-returning command) or as the
	// first row / null (select_one, or an object/scalar-returning command).
	ResultShape ProcessResponseAs

	// Command is set only for a root field backed directly by a
	// function-based command (not a relationship crossing into one): the
	// executor needs it to know whether to unwrap a scalar row's single
	// "__value" column instead of returning the row's fields as-is.
	Command *metadataresolve.Command

	// CommandScalarValue is true when Command's output type is not a known
	// custom object type, so every row the connector returns has its
	// result under the single ScalarValueField column rather than the
	// command's own named fields.
	CommandScalarValue bool
}

// JoinLocations mirrors the shape of a ModelSelection's SelectionSet: for
// every aliased field that is either a remote join or a local relationship
// with remote joins nested under it, it records where in the response shape
// to find it and what to do there. Fields absent from Locations need no
// special handling at response-assembly time (plain columns, and local
// relationships with no remote join below them).
type JoinLocations struct {
	Locations map[string]*JoinLocationNode
}

// JoinLocationNode is spec.md §3's `node: Local(...) | Remote(T)` tagged
// union. Exactly one of Local/Remote is set.
type JoinLocationNode struct {
	// Local marks a field that stayed in the same NDC request (a local
	// relationship) and holds the remote joins nested under it.
	Local *JoinLocations

	// Remote marks a field the planner excluded from the NDC query and
	// will resolve with a follow-up request.
	Remote *RemoteJoin

	// Rest, when set, holds further join locations that the executor
	// resolves against the same rows as this node; the planner never sets
	// it.
	Rest *JoinLocations
}

// RemoteJoin is spec.md §3's description of a cross-connector join: the
// far-side request, which connector to send it to, the column mapping
// tying parent rows to the foreach variable set, how to splice the result
// back, and any further remote joins nested under the far side.
type RemoteJoin struct {
	TargetQuery      *ndc.QueryRequest
	TargetConnector  metadataresolve.Qualified[metadataresolve.DataConnectorName]

	// JoinMapping pairs a parent-row source field with the (target
	// variable name, target field) the connector should match it against
	// via the NDC `variables` foreach facility.
	JoinMapping []JoinMappingEntry

	// ProcessResponseAs records whether the far side returns one row per
	// parent key (object relationship) or many (array relationship),
	// controlling how the executor splices results back.
	ProcessResponseAs ProcessResponseAs

	SubJoins *JoinLocations

	Id JoinId
}

type JoinMappingEntry struct {
	SourceField    metadataresolve.FieldName
	TargetVariable string
	TargetField    metadataresolve.FieldName
}

// ProcessResponseAs is spec.md §9's tagged union over how a remote-join
// response splices back into the parent rows.
type ProcessResponseAs string

const (
	ProcessAsObject ProcessResponseAs = "object"
	ProcessAsArray  ProcessResponseAs = "array"
)

// QueryPlan is the top-level output of Plan for a query operation: one
// ExecutionTree per root field, in document order, aliased for response
// assembly.
type QueryPlan struct {
	Roots []QueryPlanRoot
}

type QueryPlanRoot struct {
	Alias      string
	IsNullable bool
	Tree       *RootPlan
}

// RootPlan is the root-field-level tagged union: a model/command selection
// plans into a Query tree; __typename, node, and the two Apollo fields plan
// into their own lightweight forms with no NDC request at all.
type RootPlan struct {
	Query         *ExecutionTree
	TypeName      *string
	Node          *NodePlan
	ApolloService bool
	ApolloEntities *ApolloEntitiesPlan
}

type NodePlan struct {
	ID string
}

type ApolloEntitiesPlan struct {
	Representations []map[string]any
	// Entities is the per-representation resolved plan, aligned by index
	// with Representations.
	Entities []*ExecutionTree
}

// MutationPlan is the top-level output of Plan for a mutation operation:
// root fields grouped by data connector, in document order within each
// group, with the groups themselves kept in first-seen order so the
// executor preserves document order as closely as a per-connector
// transactional batch allows (spec.md §4.4/§5).
type MutationPlan struct {
	Groups []MutationGroup
}

type MutationGroup struct {
	DataConnector metadataresolve.Qualified[metadataresolve.DataConnectorName]
	Fields        []MutationPlanField
}

type MutationPlanField struct {
	Alias      string
	IsNullable bool
	Query      *ndc.MutationRequest

	// Command names the procedure-based command this field invokes, for the
	// same scalar "__value" unwrapping reason as ExecutionTree.Command.
	Command            *metadataresolve.Command
	CommandScalarValue bool
}

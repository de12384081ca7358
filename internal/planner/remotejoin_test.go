package planner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/opendd"
	"github.com/opendd/ddnengine/internal/planner"
	"github.com/opendd/ddnengine/internal/queryir"
	"github.com/opendd/ddnengine/internal/schema"
)

func loadCrossConnectorMetadata(t *testing.T) *metadataresolve.Metadata {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", "crossconnector.json"))
	require.NoError(t, err)

	loader := opendd.NewInMemoryLoader(map[string][]byte{"crossconnector.json": raw})
	doc, err := opendd.Load(context.Background(), loader)
	require.NoError(t, err)

	md, err := metadataresolve.Resolve(doc)
	require.NoError(t, err)
	return md
}

// TestPlanCrossConnectorRelationshipIsRemoteJoin exercises spec.md §8's
// cross-connector join scenario: a relationship whose source and target
// models sit on different connectors must be excluded from the source NDC
// query and recorded as a RemoteJoin instead.
func TestPlanCrossConnectorRelationshipIsRemoteJoin(t *testing.T) {
	md := loadCrossConnectorMetadata(t)
	s, err := schema.BuildForRole(md, "admin")
	require.NoError(t, err)

	doc := mustParseQuery(t, `{ movies { title director { name } } }`)
	queryFields, mutationFields, _, err := queryir.BuildRequest(doc, "", nil, nil, s, md, "admin")
	require.NoError(t, err)

	qp, _, err := planner.Plan(md, queryFields, mutationFields)
	require.NoError(t, err)
	require.Len(t, qp.Roots, 1)

	tree := qp.Roots[0].Tree.Query
	require.Equal(t, "movies", tree.Query.Collection)
	require.Equal(t, metadataresolve.Qualified[metadataresolve.DataConnectorName]{Subgraph: "app", Name: "mongo"}, tree.DataConnector)

	// The relationship must not appear as a field or a collection_relationships
	// entry in the source query: it crosses connectors, so it is excluded
	// from the request entirely and resolved as a follow-up join instead.
	_, hasField := tree.Query.Query.Fields["director"]
	require.False(t, hasField)
	require.Empty(t, tree.Query.Query.CollectionRelationships)

	// The join key itself must still be selected so the executor can read
	// it back out of the parent's response rows to build the far side's
	// foreach variable batch.
	require.Equal(t, "directorId", tree.Query.Query.Fields["directorId"].Column)

	require.NotNil(t, tree.RemoteJoins)
	loc := tree.RemoteJoins.Locations["director"]
	require.NotNil(t, loc)
	require.NotNil(t, loc.Remote)

	rj := loc.Remote
	require.Equal(t, planner.ProcessAsObject, rj.ProcessResponseAs)
	require.Equal(t, metadataresolve.Qualified[metadataresolve.DataConnectorName]{Subgraph: "app", Name: "pg"}, rj.TargetConnector)
	require.Equal(t, "actors", rj.TargetQuery.Collection)
	require.Equal(t, 1, int(rj.Id))

	require.Len(t, rj.JoinMapping, 1)
	require.Equal(t, metadataresolve.FieldName("directorId"), rj.JoinMapping[0].SourceField)
	require.Equal(t, metadataresolve.FieldName("id"), rj.JoinMapping[0].TargetField)

	pred := rj.TargetQuery.Query.Predicate
	require.Equal(t, "binary_comparison_operator", pred.Type)
	require.Equal(t, "id", pred.Column.Name)
	require.Equal(t, "variable", pred.Value.Type)
	require.Equal(t, rj.JoinMapping[0].TargetVariable, pred.Value.Name)
}

// TestPlanRemoteJoinDeduplicatesByStructuralEquality exercises spec.md §9's
// join-id assignment: two remote joins with the same target query, target
// connector, mapping, and splice mode must share a JoinId even when they
// come from independent selections in the document.
func TestPlanRemoteJoinDeduplicatesByStructuralEquality(t *testing.T) {
	md := loadCrossConnectorMetadata(t)
	s, err := schema.BuildForRole(md, "admin")
	require.NoError(t, err)

	doc := mustParseQuery(t, `{
		a: movies { director { name } }
		b: movies { director { name } }
	}`)
	queryFields, mutationFields, _, err := queryir.BuildRequest(doc, "", nil, nil, s, md, "admin")
	require.NoError(t, err)

	qp, _, err := planner.Plan(md, queryFields, mutationFields)
	require.NoError(t, err)
	require.Len(t, qp.Roots, 2)

	idFor := func(root planner.QueryPlanRoot) planner.JoinId {
		loc := root.Tree.Query.RemoteJoins.Locations["director"]
		require.NotNil(t, loc)
		require.NotNil(t, loc.Remote)
		return loc.Remote.Id
	}

	require.Equal(t, idFor(qp.Roots[0]), idFor(qp.Roots[1]))
}

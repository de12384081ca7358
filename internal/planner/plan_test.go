package planner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendd/ddnengine/internal/language"
	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/opendd"
	"github.com/opendd/ddnengine/internal/planner"
	"github.com/opendd/ddnengine/internal/queryir"
	"github.com/opendd/ddnengine/internal/schema"
)

func loadTestMetadata(t *testing.T) *metadataresolve.Metadata {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "queryir", "testdata", "app.json"))
	require.NoError(t, err)

	loader := opendd.NewInMemoryLoader(map[string][]byte{"app.json": raw})
	doc, err := opendd.Load(context.Background(), loader)
	require.NoError(t, err)

	md, err := metadataresolve.Resolve(doc)
	require.NoError(t, err)
	return md
}

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	require.NoError(t, err)
	return d
}

func TestPlanModelSelectMany(t *testing.T) {
	md := loadTestMetadata(t)
	s, err := schema.BuildForRole(md, "admin")
	require.NoError(t, err)

	doc := mustParseQuery(t, `{ actors { id name bio } }`)
	queryFields, mutationFields, _, err := queryir.BuildRequest(doc, "", nil, nil, s, md, "admin")
	require.NoError(t, err)

	qp, mp, err := planner.Plan(md, queryFields, mutationFields)
	require.NoError(t, err)
	require.Nil(t, mp)
	require.Len(t, qp.Roots, 1)

	root := qp.Roots[0]
	require.Equal(t, "actors", root.Alias)
	require.NotNil(t, root.Tree.Query)

	tree := root.Tree.Query
	require.Equal(t, metadataresolve.Qualified[metadataresolve.DataConnectorName]{Subgraph: "app", Name: "pg"}, tree.DataConnector)
	require.Equal(t, "actors", tree.Query.Collection)
	require.Nil(t, tree.RemoteJoins)

	fields := tree.Query.Query.Fields
	require.Len(t, fields, 3)
	require.Equal(t, "column", fields["id"].Type)
	require.Equal(t, "id", fields["id"].Column)
	require.Equal(t, "name", fields["name"].Column)
	require.Equal(t, "bio", fields["bio"].Column)
}

func TestPlanModelSelectOneTranslatesUniqueFieldToPredicate(t *testing.T) {
	md := loadTestMetadata(t)
	s, err := schema.BuildForRole(md, "admin")
	require.NoError(t, err)

	doc := mustParseQuery(t, `{ actor(id: "1") { id } }`)
	queryFields, mutationFields, _, err := queryir.BuildRequest(doc, "", nil, nil, s, md, "admin")
	require.NoError(t, err)

	qp, _, err := planner.Plan(md, queryFields, mutationFields)
	require.NoError(t, err)
	require.Len(t, qp.Roots, 1)

	tree := qp.Roots[0].Tree.Query
	require.Equal(t, "actors", tree.Query.Collection)
	require.Empty(t, tree.Query.Arguments)

	pred := tree.Query.Query.Predicate
	require.Equal(t, "binary_comparison_operator", pred.Type)
	require.Equal(t, "id", pred.Column.Name)
	require.Equal(t, "_eq", pred.Operator)
	require.Equal(t, "1", pred.Value.Value)
}

func TestPlanRejectsMixedQueryAndMutation(t *testing.T) {
	md := loadTestMetadata(t)

	qp, mp, err := planner.Plan(md, []queryir.QueryRootField{{Alias: "a"}}, []queryir.MutationRootField{{Alias: "b"}})
	require.Error(t, err)
	require.Nil(t, qp)
	require.Nil(t, mp)
}

func TestPlanTypeNameRootField(t *testing.T) {
	md := loadTestMetadata(t)
	s, err := schema.BuildForRole(md, "admin")
	require.NoError(t, err)

	doc := mustParseQuery(t, `{ __typename }`)
	queryFields, mutationFields, _, err := queryir.BuildRequest(doc, "", nil, nil, s, md, "admin")
	require.NoError(t, err)

	qp, _, err := planner.Plan(md, queryFields, mutationFields)
	require.NoError(t, err)
	require.Len(t, qp.Roots, 1)
	require.NotNil(t, qp.Roots[0].Tree.TypeName)
}

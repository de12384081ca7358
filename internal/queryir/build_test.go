package queryir_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendd/ddnengine/internal/language"
	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/opendd"
	"github.com/opendd/ddnengine/internal/queryir"
	"github.com/opendd/ddnengine/internal/schema"
)

func loadTestMetadata(t *testing.T) *metadataresolve.Metadata {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", "app.json"))
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

func TestBuildRequestModelSelectMany(t *testing.T) {
	md := loadTestMetadata(t)
	s, err := schema.BuildForRole(md, "admin")
	require.NoError(t, err)

	doc := mustParseQuery(t, `{ actors { id name } }`)

	queryFields, mutationFields, usages, err := queryir.BuildRequest(doc, "", nil, nil, s, md, "admin")
	require.NoError(t, err)
	require.Empty(t, mutationFields)
	require.Len(t, queryFields, 1)

	f := queryFields[0]
	require.Equal(t, "actors", f.Alias)
	require.NotNil(t, f.ModelSelectMany)
	require.Equal(t, metadataresolve.ModelName("actors"), f.ModelSelectMany.Model.Name.Name)

	require.Len(t, f.ModelSelectMany.Selection, 2)
	require.NotNil(t, f.ModelSelectMany.Selection[0].Column)
	require.Equal(t, metadataresolve.FieldName("id"), f.ModelSelectMany.Selection[0].Column.Field)
	require.NotNil(t, f.ModelSelectMany.Selection[1].Column)
	require.Equal(t, metadataresolve.FieldName("name"), f.ModelSelectMany.Selection[1].Column.Field)

	require.Equal(t, 1, usages.Models[metadataresolve.Qualified[metadataresolve.ModelName]{Subgraph: "app", Name: "actors"}])
}

func TestBuildRequestModelSelectOneWithArgument(t *testing.T) {
	md := loadTestMetadata(t)
	s, err := schema.BuildForRole(md, "admin")
	require.NoError(t, err)

	doc := mustParseQuery(t, `{ actor(id: "1") { id bio } }`)

	queryFields, _, _, err := queryir.BuildRequest(doc, "", nil, nil, s, md, "admin")
	require.NoError(t, err)
	require.Len(t, queryFields, 1)

	sel := queryFields[0].ModelSelectOne
	require.NotNil(t, sel)
	require.Empty(t, sel.Arguments)
	require.NotNil(t, sel.Filter)
	require.Equal(t, metadataresolve.FieldName("id"), sel.Filter.Field)
	require.Equal(t, "_eq", sel.Filter.Operator)
	require.Equal(t, "1", sel.Filter.Value)
	require.Len(t, sel.Selection, 2)
}

func TestBuildRequestTypeName(t *testing.T) {
	md := loadTestMetadata(t)
	s, err := schema.BuildForRole(md, "admin")
	require.NoError(t, err)

	doc := mustParseQuery(t, `{ __typename }`)

	queryFields, _, _, err := queryir.BuildRequest(doc, "", nil, nil, s, md, "admin")
	require.NoError(t, err)
	require.Len(t, queryFields, 1)
	require.NotNil(t, queryFields[0].TypeName)
	require.Equal(t, s.GetQueryType().Name, *queryFields[0].TypeName)
}

func TestBuildRequestRejectsUnpermittedRole(t *testing.T) {
	md := loadTestMetadata(t)
	s, err := schema.BuildForRole(md, "anonymous")
	require.NoError(t, err)

	doc := mustParseQuery(t, `{ actors { id } }`)

	_, _, _, err = queryir.BuildRequest(doc, "", nil, nil, s, md, "anonymous")
	require.Error(t, err)
}

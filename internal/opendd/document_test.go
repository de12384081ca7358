package opendd_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendd/ddnengine/internal/opendd"
)

func TestLoadMergesSubgraphsDeterministically(t *testing.T) {
	loader := opendd.NewInMemoryLoader(map[string][]byte{
		"b.json": []byte(`{
			"subgraph": "app",
			"objectTypes": [{"name": "Actor", "fields": {"id": {"name": "id"}}, "fieldOrder": ["id"]}]
		}`),
		"a.json": []byte(`{
			"subgraph": "app",
			"graphqlConfig": {"queryRootTypeName": "query_root", "mutationRootTypeName": "mutation_root"}
		}`),
	})

	md, err := opendd.Load(context.Background(), loader)
	require.NoError(t, err)
	require.NotNil(t, md.GraphQLConfig)
	require.Equal(t, "query_root", md.GraphQLConfig.QueryRootTypeName)
	require.Len(t, md.ObjectTypes, 1)

	q := opendd.NewQualified[opendd.CustomTypeName]("app", "Actor")
	ot, ok := md.ObjectTypes[q]
	require.True(t, ok)
	require.Equal(t, []opendd.FieldName{"id"}, ot.FieldOrder)
}

func TestLoadRejectsDuplicateObjectType(t *testing.T) {
	loader := opendd.NewInMemoryLoader(map[string][]byte{
		"a.json": []byte(`{"subgraph": "app", "objectTypes": [{"name": "Actor", "fields": {}}]}`),
		"b.json": []byte(`{"subgraph": "app", "objectTypes": [{"name": "Actor", "fields": {}}]}`),
	})

	_, err := opendd.Load(context.Background(), loader)
	require.Error(t, err)
}

func TestLoadParsesTypeMappings(t *testing.T) {
	loader := opendd.NewInMemoryLoader(map[string][]byte{
		"a.json": []byte(`{
			"subgraph": "app",
			"typeMappings": [
				{
					"objectType": {"subgraph": "app", "name": "Actor"},
					"dataConnectorName": {"subgraph": "app", "name": "pg"},
					"dataConnectorObjectType": "actors",
					"fieldMappings": {
						"id": {"column": "actor_id"}
					}
				}
			]
		}`),
	})

	md, err := opendd.Load(context.Background(), loader)
	require.NoError(t, err)
	require.Len(t, md.TypeMappings, 1)

	tm := md.TypeMappings[0]
	require.Equal(t, opendd.DataConnectorObjectType("actors"), tm.DataConnectorObjectType)
	require.Equal(t, opendd.Identifier("actor_id"), tm.FieldMappings["id"].Column)
}

func TestQualifiedOrdering(t *testing.T) {
	a := opendd.NewQualified[opendd.CustomTypeName]("app", "Actor")
	b := opendd.NewQualified[opendd.CustomTypeName]("app", "Movie")
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
}

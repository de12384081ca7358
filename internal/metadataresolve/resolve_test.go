package metadataresolve_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/opendd"
)

func resolveFromJSON(t *testing.T, doc string) (*metadataresolve.Metadata, error) {
	t.Helper()
	loader := opendd.NewInMemoryLoader(map[string][]byte{"app.json": []byte(doc)})
	raw, err := opendd.Load(context.Background(), loader)
	require.NoError(t, err)
	return metadataresolve.Resolve(raw)
}

const baseFixture = `{
	"subgraph": "app",
	"graphqlConfig": {"queryRootTypeName": "query_root", "mutationRootTypeName": "mutation_root"},
	"dataConnectors": [
		{
			"Name": {"subgraph": "app", "name": "pg"},
			"URL": {"Single": "http://pg.local"},
			"Schema": {
				"ObjectTypes": {
					"actors": {"Fields": {"actor_id": {"Type": {"Name": "string"}}, "full_name": {"Type": {"Name": "string"}}}},
					"actors_renamed": {"Fields": {"actor_id": {"Type": {"Name": "string"}}}}
				},
				"Collections": {"actors": {"ResultType": "actors", "Arguments": {}}}
			}
		}
	],
	"objectTypes": [
		{
			"name": "Actor",
			"fields": {
				"id": {"name": "id", "type": {"nullable": false, "named": {"inbuilt": "ID"}}},
				"name": {"name": "name", "type": {"nullable": false, "named": {"inbuilt": "String"}}}
			},
			"fieldOrder": ["id", "name"]
		}
	],
	"models": [
		{
			"name": {"subgraph": "app", "name": "actors"},
			"dataType": {"subgraph": "app", "name": "Actor"},
			"source": {"DataConnector": {"subgraph": "app", "name": "pg"}, "Collection": "actors", "ArgumentMappings": {}}
		}
	]
}`

// TestResolveFailsClosedOnMissingTypeMapping is spec.md §3's "every field...
// has exactly one mapping entry for every connector it is exposed on"
// invariant: a model source with no declared typeMappings entry at all
// fails resolution rather than guessing same-named columns.
func TestResolveFailsClosedOnMissingTypeMapping(t *testing.T) {
	_, err := resolveFromJSON(t, baseFixture)
	require.Error(t, err)
	require.Contains(t, err.Error(), "MappingMissing")
}

// TestResolveFailsClosedOnPartialFieldMapping covers a declared TypeMapping
// that only maps some of the object type's fields: the unmapped field must
// fail resolution rather than being silently dropped.
func TestResolveFailsClosedOnPartialFieldMapping(t *testing.T) {
	doc := baseFixture[:len(baseFixture)-1] + `,
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
}`
	_, err := resolveFromJSON(t, doc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "MappingMissing")
}

// TestResolveHonorsDeclaredColumnRename is the positive case a declared
// TypeMapping exists for: an OpenDD field name that differs from the
// connector's own column name resolves via the declared mapping instead of
// requiring identical names.
func TestResolveHonorsDeclaredColumnRename(t *testing.T) {
	doc := baseFixture[:len(baseFixture)-1] + `,
	"typeMappings": [
		{
			"objectType": {"subgraph": "app", "name": "Actor"},
			"dataConnectorName": {"subgraph": "app", "name": "pg"},
			"dataConnectorObjectType": "actors",
			"fieldMappings": {
				"id": {"column": "actor_id"},
				"name": {"column": "full_name"}
			}
		}
	]
}`
	md, err := resolveFromJSON(t, doc)
	require.NoError(t, err)

	actorType, ok := md.ObjectTypesWithRelationships[opendd.NewQualified[opendd.CustomTypeName]("app", "Actor")]
	require.True(t, ok)
	pg := opendd.NewQualified[opendd.DataConnectorName]("app", "pg")
	mapping, ok := actorType.TypeMappings[pg]
	require.True(t, ok)
	require.Equal(t, opendd.Identifier("actor_id"), mapping.FieldMappings["id"].Column)
	require.Equal(t, opendd.Identifier("full_name"), mapping.FieldMappings["name"].Column)
}

// TestResolveFailsClosedOnUnknownMappedColumn covers a declared mapping
// naming a column the connector doesn't actually have.
func TestResolveFailsClosedOnUnknownMappedColumn(t *testing.T) {
	doc := baseFixture[:len(baseFixture)-1] + `,
	"typeMappings": [
		{
			"objectType": {"subgraph": "app", "name": "Actor"},
			"dataConnectorName": {"subgraph": "app", "name": "pg"},
			"dataConnectorObjectType": "actors",
			"fieldMappings": {
				"id": {"column": "actor_id"},
				"name": {"column": "does_not_exist"}
			}
		}
	]
}`
	_, err := resolveFromJSON(t, doc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "NoSuchColumn")
}

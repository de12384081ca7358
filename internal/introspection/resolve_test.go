package introspection

import (
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/opendd/ddnengine/internal/language"
	schema "github.com/opendd/ddnengine/internal/schema"
)

func testSchema() *schema.Schema {
	actor := &schema.Type{
		Name: "Actor",
		Kind: schema.TypeKindObject,
		Fields: []*schema.Field{
			{Name: "id", Type: schema.NonNullType(schema.NamedType("String"))},
			{Name: "name", Type: schema.NamedType("String")},
		},
	}
	query := &schema.Type{
		Name: "Query",
		Kind: schema.TypeKindObject,
		Fields: []*schema.Field{
			{Name: "actor", Type: schema.NamedType("Actor")},
		},
	}
	return &schema.Schema{
		QueryType: "Query",
		Types: map[string]*schema.Type{
			"Query": query,
			"Actor": actor,
			"String": {Name: "String", Kind: schema.TypeKindScalar},
		},
	}
}

func resolveField(t *testing.T, sch *schema.Schema, query string) map[string]any {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	fields := flattenSelectionSet(doc, doc.Operations[0].SelectionSet)
	require.Len(t, fields, 1)
	v, err := Resolve(doc, fields[0], sch, nil)
	require.NoError(t, err)
	m, ok := v.(map[string]any)
	require.True(t, ok)
	return m
}

func TestResolveSchemaQueryType(t *testing.T) {
	sch := testSchema()
	data := resolveField(t, sch, "{ __schema { queryType { name } } }")
	qt := data["queryType"].(map[string]any)
	require.Equal(t, "Query", qt["name"])
}

func TestResolveSchemaTypesIncludesBuiltinMetaTypes(t *testing.T) {
	sch := testSchema()
	data := resolveField(t, sch, "{ __schema { types { name } } }")
	types := data["types"].([]any)
	var names []string
	for _, ty := range types {
		names = append(names, ty.(map[string]any)["name"].(string))
	}
	require.Contains(t, names, "Actor")
	require.Contains(t, names, "__Schema")
	require.Contains(t, names, "__Type")
}

func TestResolveTypeByName(t *testing.T) {
	sch := testSchema()
	data := resolveField(t, sch, `{ __type(name: "Actor") { name kind fields { name } } }`)
	require.Equal(t, "Actor", data["name"])
	require.Equal(t, "OBJECT", data["kind"])
	fields := data["fields"].([]any)
	require.Len(t, fields, 2)
}

func TestResolveTypeUnknownNameReturnsNil(t *testing.T) {
	sch := testSchema()
	doc, err := language.ParseQuery(`{ __type(name: "DoesNotExist") { name } }`)
	require.NoError(t, err)
	fields := flattenSelectionSet(doc, doc.Operations[0].SelectionSet)
	v, err := Resolve(doc, fields[0], sch, nil)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestIsMetaField(t *testing.T) {
	require.True(t, IsMetaField("__schema"))
	require.True(t, IsMetaField("__type"))
	require.False(t, IsMetaField("__typename"))
	require.False(t, IsMetaField("actor"))
}

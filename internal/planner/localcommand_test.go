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

func loadLocalCommandMetadata(t *testing.T) *metadataresolve.Metadata {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", "localcommand.json"))
	require.NoError(t, err)

	loader := opendd.NewInMemoryLoader(map[string][]byte{"localcommand.json": raw})
	doc, err := opendd.Load(context.Background(), loader)
	require.NoError(t, err)

	md, err := metadataresolve.Resolve(doc)
	require.NoError(t, err)
	return md
}

// TestPlanLocalCommandRelationshipEmbedsAsNDCRelationship exercises a
// relationship targeting a function-based command on the same connector as
// its source model: it must plan as a single NDC request with the command
// expressed as a collection_relationships entry rather than a RemoteJoin.
func TestPlanLocalCommandRelationshipEmbedsAsNDCRelationship(t *testing.T) {
	md := loadLocalCommandMetadata(t)
	s, err := schema.BuildForRole(md, "admin")
	require.NoError(t, err)

	doc := mustParseQuery(t, `{ actors { name bioInfo { bio } } }`)
	queryFields, mutationFields, _, err := queryir.BuildRequest(doc, "", nil, nil, s, md, "admin")
	require.NoError(t, err)

	qp, _, err := planner.Plan(md, queryFields, mutationFields)
	require.NoError(t, err)
	require.Len(t, qp.Roots, 1)

	tree := qp.Roots[0].Tree.Query
	require.Nil(t, tree.RemoteJoins)

	field, ok := tree.Query.Query.Fields["bioInfo"]
	require.True(t, ok)
	require.Equal(t, "relationship", field.Type)
	require.NotEmpty(t, field.Relationship)

	rel, ok := tree.Query.Query.CollectionRelationships[field.Relationship]
	require.True(t, ok)
	require.Equal(t, "actor_bio_by_id", rel.TargetCollection)
	require.Equal(t, "object", rel.RelationshipType)

	arg, ok := rel.Arguments["actor_id"]
	require.True(t, ok)
	require.Equal(t, "column", arg.Type)
	require.Equal(t, "id", arg.Column)

	require.NotNil(t, field.Query)
	bioField, ok := field.Query.Fields["bio"]
	require.True(t, ok)
	require.Equal(t, "bio", bioField.Column)
}

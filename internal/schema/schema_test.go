package schema_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/opendd"
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

func TestBuildForRoleExposesModelFields(t *testing.T) {
	md := loadTestMetadata(t)

	s, err := schema.BuildForRole(md, "admin")
	require.NoError(t, err)

	query := s.GetQueryType()
	require.NotNil(t, query)

	names := map[string]*schema.Field{}
	for _, f := range query.Fields {
		names[f.Name] = f
	}

	require.Contains(t, names, "actors")
	require.Contains(t, names, "actor")
	require.Contains(t, names, "node")
	require.Contains(t, names, "_service")

	ann := s.Annotations.Get(query.Name, "actors")
	require.NotNil(t, ann)
	require.NotNil(t, ann.ModelSelectMany)
	require.Equal(t, "app/actors", ann.ModelSelectMany.Model)

	uniqueAnn := s.Annotations.Get(query.Name, "actor")
	require.NotNil(t, uniqueAnn)
	require.NotNil(t, uniqueAnn.ModelSelectOne)
	require.Equal(t, []string{"id"}, uniqueAnn.ModelSelectOne.UniqueFields)

	actorType, ok := s.Types["app/Actor"]
	require.True(t, ok)
	fieldNames := map[string]bool{}
	for _, f := range actorType.Fields {
		fieldNames[f.Name] = true
	}
	require.True(t, fieldNames["id"])
	require.True(t, fieldNames["name"])
	require.True(t, fieldNames["bio"])
}

func TestBuildForRoleHidesFieldsOutsidePermissions(t *testing.T) {
	md := loadTestMetadata(t)

	s, err := schema.BuildForRole(md, "anonymous")
	require.NoError(t, err)

	query := s.GetQueryType()
	require.NotNil(t, query)
	for _, f := range query.Fields {
		require.NotEqual(t, "actors", f.Name, "a role with no select permission must not see the model's query field")
	}
}

func TestRenderProducesValidSDLShape(t *testing.T) {
	md := loadTestMetadata(t)

	s, err := schema.BuildForRole(md, "admin")
	require.NoError(t, err)

	sdl := schema.Render(s)
	require.Contains(t, sdl, "type Query")
	require.Contains(t, sdl, "actors")
	require.True(t, strings.Contains(sdl, "type ") && strings.Contains(sdl, "{"))
}

func TestFederationSDLAddsLinkPreamble(t *testing.T) {
	md := loadTestMetadata(t)

	s, err := schema.BuildForRole(md, "admin")
	require.NoError(t, err)

	sdl := schema.FederationSDL(s, nil)
	require.True(t, strings.HasPrefix(sdl, "extend schema"))
	require.Contains(t, sdl, "specs.apollo.dev/federation/v2.0")
}

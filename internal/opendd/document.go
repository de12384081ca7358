package opendd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// subgraphDocument is the on-disk JSON shape of one metadata fragment. The
// on-disk configuration file format is explicitly out of scope per spec.md
// §1 ("the on-disk configuration file format" is listed among external
// collaborator contracts); this shape exists only so FSLoader/InMemoryLoader
// have something concrete to round-trip through json.Unmarshal, and every
// field here maps 1:1 onto the in-memory opendd types of types.go.
type subgraphDocument struct {
	Subgraph               string                  `json:"subgraph"`
	GraphQLConfig          *GraphQLConfig          `json:"graphqlConfig,omitempty"`
	DataConnectors         []DataConnectorLink     `json:"dataConnectors,omitempty"`
	ObjectTypes            []namedObjectType       `json:"objectTypes,omitempty"`
	ScalarTypes            []namedScalarType       `json:"scalarTypes,omitempty"`
	DataConnectorScalarRepresentations []DataConnectorScalarRepresentationEntry `json:"dataConnectorScalarRepresentations,omitempty"`
	BooleanExpressionTypes []BooleanExpressionType `json:"booleanExpressionTypes,omitempty"`
	Models                 []Model                 `json:"models,omitempty"`
	Commands               []Command               `json:"commands,omitempty"`
	Relationships          []Relationship          `json:"relationships,omitempty"`
	TypePermissions        []TypePermission        `json:"typePermissions,omitempty"`
	ModelPermissions       []ModelPermission        `json:"modelPermissions,omitempty"`
	CommandPermissions     []CommandPermission      `json:"commandPermissions,omitempty"`
	TypeMappings           []TypeMapping           `json:"typeMappings,omitempty"`
}

type namedObjectType struct {
	Name CustomTypeName `json:"name"`
	ObjectType
}

type namedScalarType struct {
	Name CustomTypeName `json:"name"`
	ScalarType
}

// Load reads every fragment known to loader and merges them into one
// Metadata document, qualifying every custom name by the fragment's
// subgraph. Subgraphs are merged in deterministic (sorted fragment id)
// order so that Load is itself a pure function of its input bytes — a
// precondition for metadataresolve.Resolve's determinism guarantee.
func Load(ctx context.Context, loader Loader) (*Metadata, error) {
	ids, err := loader.ListFragments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list metadata fragments: %w", err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	md := &Metadata{
		ObjectTypes: map[Qualified[CustomTypeName]]ObjectType{},
		ScalarTypes: map[Qualified[CustomTypeName]]ScalarType{},
	}
	for _, id := range ids {
		raw, err := loader.ReadFragment(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("read metadata fragment %q: %w", id, err)
		}
		var doc subgraphDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse metadata fragment %q: %w", id, err)
		}
		if doc.Subgraph == "" {
			return nil, fmt.Errorf("metadata fragment %q: missing subgraph name", id)
		}
		if err := mergeSubgraph(md, doc); err != nil {
			return nil, fmt.Errorf("metadata fragment %q: %w", id, err)
		}
	}
	return md, nil
}

func mergeSubgraph(md *Metadata, doc subgraphDocument) error {
	if doc.GraphQLConfig != nil {
		if md.GraphQLConfig != nil {
			return fmt.Errorf("duplicate graphql_config definition")
		}
		md.GraphQLConfig = doc.GraphQLConfig
	}
	md.DataConnectors = append(md.DataConnectors, doc.DataConnectors...)
	for _, ot := range doc.ObjectTypes {
		q := NewQualified(doc.Subgraph, ot.Name)
		if _, exists := md.ObjectTypes[q]; exists {
			return fmt.Errorf("duplicate object type %s", q)
		}
		md.ObjectTypes[q] = ot.ObjectType
	}
	for _, st := range doc.ScalarTypes {
		q := NewQualified(doc.Subgraph, st.Name)
		if _, exists := md.ScalarTypes[q]; exists {
			return fmt.Errorf("duplicate scalar type %s", q)
		}
		md.ScalarTypes[q] = st.ScalarType
	}
	md.DataConnectorScalarRepresentations = append(md.DataConnectorScalarRepresentations, doc.DataConnectorScalarRepresentations...)
	md.BooleanExpressionTypes = append(md.BooleanExpressionTypes, doc.BooleanExpressionTypes...)
	md.Models = append(md.Models, doc.Models...)
	md.Commands = append(md.Commands, doc.Commands...)
	md.Relationships = append(md.Relationships, doc.Relationships...)
	md.TypePermissions = append(md.TypePermissions, doc.TypePermissions...)
	md.ModelPermissions = append(md.ModelPermissions, doc.ModelPermissions...)
	md.CommandPermissions = append(md.CommandPermissions, doc.CommandPermissions...)
	md.TypeMappings = append(md.TypeMappings, doc.TypeMappings...)
	return nil
}

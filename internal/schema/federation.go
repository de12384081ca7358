package schema

// Apollo Federation v2 directive definitions, grounded on
// roderm-graphql-go/federation/directives.go but expressed against this
// package's own Directive/InputValue shape instead of graphql-go's.

var KeyDirectiveDefinition = &Directive{
	Name:        "key",
	Description: "Space separated list of primary keys needed to access a federated object",
	Arguments: []*InputValue{
		{Name: "fields", Type: NonNullType(NamedType("FieldSet"))},
		{Name: "resolvable", Type: NamedType("Boolean"), DefaultValue: true},
	},
	Locations:    []string{"OBJECT", "INTERFACE"},
	IsRepeatable: true,
}

var LinkDirectiveDefinition = &Directive{
	Name: "link",
	Arguments: []*InputValue{
		{Name: "url", Type: NonNullType(NamedType("String"))},
		{Name: "import", Type: ListType(NamedType("String"))},
	},
	Locations:    []string{"SCHEMA"},
	IsRepeatable: true,
}

var ExternalDirectiveDefinition = &Directive{
	Name:      "external",
	Locations: []string{"FIELD_DEFINITION"},
}

var ShareableDirectiveDefinition = &Directive{
	Name:      "shareable",
	Locations: []string{"FIELD_DEFINITION", "OBJECT"},
}

// federationLinkSDL is the fixed `extend schema @link(...)` preamble every
// subgraph's SDL carries, matching Apollo Federation v2's expected
// boilerplate; the executor prepends this to the role schema's rendered
// SDL when answering `_service { sdl }`.
const federationLinkSDL = `extend schema
  @link(url: "https://specs.apollo.dev/federation/v2.0", import: ["@key", "@shareable", "@external", "@provides", "@requires"])

`

// FederationSDL renders the role schema to SDL (via render.go's Render)
// prefixed with the federation link preamble, with @key directives applied
// to every Apollo-entity-enabled object type. entityTypes maps a GraphQL
// type name to its federation key field sets (one string per @key).
func FederationSDL(s *Schema, entityTypes map[string][][]string) string {
	for typeName, keys := range entityTypes {
		typ, ok := s.Types[typeName]
		if !ok {
			continue
		}
		for _, fields := range keys {
			typ.AppliedDirectives = append(typ.AppliedDirectives, keyDirectiveSDL(fields))
		}
	}
	return federationLinkSDL + Render(s)
}

func keyDirectiveSDL(fields []string) string {
	fieldSet := ""
	for i, f := range fields {
		if i > 0 {
			fieldSet += " "
		}
		fieldSet += f
	}
	return `@key(fields: "` + fieldSet + `")`
}

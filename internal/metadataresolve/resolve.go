package metadataresolve

import "github.com/opendd/ddnengine/internal/opendd"

// builder accumulates resolved state across the fixed stage order of
// spec.md §4.1. Each stage* method is written against the builder rather
// than returning a new value, mirroring the teacher's ir.builder, but
// Resolve itself only ever hands callers the final, frozen *Metadata.
type builder struct {
	raw *opendd.Metadata

	violations []*Violation

	md *Metadata

	// declaredMappings indexes raw.TypeMappings by (object type, data
	// connector), built once up front so collectTypeMapping can look up a
	// user-declared mapping instead of inferring one.
	declaredMappings map[declaredMappingKey]opendd.TypeMapping
}

// Resolve runs the thirteen-stage pipeline of spec.md §4.1 in strict order.
// If any stage records a violation, resolution aborts before the next stage
// runs and no Resolved Metadata is produced — exactly the "fails closed"
// contract spec.md requires ("If any stage returns an error, resolution
// aborts and no Resolved Metadata is produced").
//
// Resolve never mutates raw, and derives every output deterministically
// from it (sorted map iteration wherever order could otherwise vary),
// satisfying Testable Property 1: resolving the same document twice yields
// structurally equal Resolved Metadata.
func Resolve(raw *opendd.Metadata) (*Metadata, error) {
	b := &builder{
		raw: raw,
		md: &Metadata{
			DataConnectors:                     map[Qualified[DataConnectorName]]*DataConnectorLink{},
			ScalarTypes:                        map[Qualified[CustomTypeName]]*ScalarType{},
			ObjectTypesWithRelationships:        map[Qualified[CustomTypeName]]*ObjectType{},
			BooleanExpressionTypes:              map[Qualified[opendd.BooleanExpressionTypeName]]*BooleanExpressionType{},
			ModelsWithPermissions:               map[Qualified[ModelName]]*Model{},
			CommandsWithPermissions:             map[Qualified[CommandName]]*Command{},
			Roles:                               map[RoleName]struct{}{},
			GlobalIDEnabledTypes:                map[Qualified[CustomTypeName]]struct{}{},
			ApolloFederationEntityEnabledTypes:  map[Qualified[CustomTypeName]]struct{}{},
		},
	}
	b.declaredMappings = b.indexTypeMappings()

	stages := []func() error{
		b.stageGraphQLConfig,
		b.stageDataConnectors,
		b.stageObjectTypes,
		b.stageScalarTypes,
		b.stageDataConnectorScalarTypes,
		b.stageTypePermissions,
		b.stageBooleanExpressions,
		b.stageModels,
		b.stageCommands,
		b.stageApollo,
		b.stageRelationships,
		b.stageModelPermissions,
		b.stageCommandPermissions,
		b.stageRoles,
	}

	for _, stage := range stages {
		if err := stage(); err != nil {
			return nil, err
		}
		if len(b.violations) > 0 {
			return nil, ValidationError(b.violations)
		}
	}

	return b.md, nil
}

func (b *builder) fail(v *Violation) {
	b.violations = append(b.violations, v)
}

package metadataresolve

// stageApollo is stage 10 of spec.md §4.1: cross-checks that every model
// marked as an Apollo Federation entity source, and every model marked as a
// global-id source, actually names a data type the object_types stage
// recorded as enabled for that feature. The object_types stage (stage 3)
// already validated the @key/global_id declarations on the type itself;
// this stage validates the model-level opt-in against that side table.
func (b *builder) stageApollo() error {
	for _, m := range b.md.ModelsWithPermissions {
		if m.ApolloEntitySource {
			if _, ok := b.md.ApolloFederationEntityEnabledTypes[m.DataType]; !ok {
				b.fail(violation(ErrInvalidApolloFederation, m.Name.Subgraph, string(m.Name.Name),
					"model %s is an apollo entity source but its data type %s declares no federation keys", m.Name, m.DataType))
			}
		}
		if m.GlobalIDSource {
			if _, ok := b.md.GlobalIDEnabledTypes[m.DataType]; !ok {
				b.fail(violation(ErrInvalidGlobalID, m.Name.Subgraph, string(m.Name.Name),
					"model %s is a global id source but its data type %s declares no global_id_fields", m.Name, m.DataType))
			}
		}
	}
	return nil
}

package metadataresolve

// stageDataConnectorScalarTypes is stage 5 of spec.md §4.1: augments each
// connector's scalar entries with the user's representation and comparison
// operators; validates each referenced scalar exists in the connector
// schema.
func (b *builder) stageDataConnectorScalarTypes() error {
	for _, entry := range b.raw.DataConnectorScalarRepresentations {
		scalar, ok := b.md.ScalarTypes[entry.ScalarType]
		if !ok {
			b.fail(violation(ErrUnknownType, entry.ScalarType.Subgraph, string(entry.ScalarType.Name),
				"scalar representation references unknown scalar type %s", entry.ScalarType))
			continue
		}
		dc, ok := b.lookupConnector(entry.DataConnector)
		if !ok {
			b.fail(violation(ErrUnknownDataConnector, entry.ScalarType.Subgraph, string(entry.ScalarType.Name),
				"scalar representation references unknown data connector %s", entry.DataConnector))
			continue
		}
		if _, exists := dc.Schema.ScalarTypes[entry.Representation.DataConnectorScalarType]; !exists {
			b.fail(violation(ErrUnknownType, entry.ScalarType.Subgraph, string(entry.ScalarType.Name),
				"connector %s has no scalar type %q", entry.DataConnector, entry.Representation.DataConnectorScalarType))
			continue
		}
		scalar.Representations[entry.DataConnector] = entry.Representation
	}
	return nil
}

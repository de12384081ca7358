package metadataresolve

// stageDataConnectors is stage 2 of spec.md §4.1: builds
// Qualified<DataConnectorName> -> {schema, capabilities, argument_presets}.
// Duplicate names fail with DuplicateDataConnectorDefinition.
func (b *builder) stageDataConnectors() error {
	for i := range b.raw.DataConnectors {
		link := b.raw.DataConnectors[i]
		if _, exists := b.md.DataConnectors[link.Name]; exists {
			b.fail(violation(ErrDuplicateDataConnectorDefinition, link.Name.Subgraph, string(link.Name.Name),
				"data connector %q is defined more than once", link.Name))
			continue
		}
		cp := link
		b.md.DataConnectors[link.Name] = &cp
	}
	return nil
}

func (b *builder) lookupConnector(name Qualified[DataConnectorName]) (*DataConnectorLink, bool) {
	dc, ok := b.md.DataConnectors[name]
	return dc, ok
}

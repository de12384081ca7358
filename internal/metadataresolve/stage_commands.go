package metadataresolve

import "github.com/opendd/ddnengine/internal/opendd"

// stageCommands is stage 9 of spec.md §4.1: resolves each Command's source
// (a connector function or procedure, argument mappings) and attaches its
// GraphQL root-field configuration. Exactly one of Function/Procedure must
// be set on the source; the referenced function or procedure must exist on
// the connector.
func (b *builder) stageCommands() error {
	for _, raw := range b.raw.Commands {
		name := raw.Name
		resolved := &Command{
			Name:        name,
			Arguments:   raw.Arguments,
			OutputType:  raw.OutputType,
			GraphQL:     raw.GraphQL,
			Permissions: map[RoleName]*CommandPermission{},
		}

		if raw.Source != nil {
			src, ok := b.resolveCommandSource(name, raw.OutputType, raw.Source)
			if ok {
				resolved.Source = src
			}
		}

		b.md.CommandsWithPermissions[name] = resolved
	}
	return nil
}

func (b *builder) resolveCommandSource(name Qualified[CommandName], outputType *opendd.TypeReference, raw *opendd.CommandSource) (*CommandSource, bool) {
	dc, ok := b.lookupConnector(raw.DataConnector)
	if !ok {
		b.fail(violation(ErrUnknownDataConnector, name.Subgraph, string(name.Name),
			"command %s source references unknown data connector %s", name, raw.DataConnector))
		return nil, false
	}

	var argDefs map[ArgumentName]opendd.NDCArgumentDefinition
	var resultType opendd.Identifier
	switch {
	case raw.Function != nil && raw.Procedure != nil:
		b.fail(violation(ErrUnsupportedFeature, name.Subgraph, string(name.Name),
			"command %s source cannot name both a function and a procedure", name))
		return nil, false
	case raw.Function != nil:
		fn, ok := dc.Schema.Functions[*raw.Function]
		if !ok {
			b.fail(violation(ErrNoSuchFunction, name.Subgraph, string(name.Name),
				"command %s source references unknown function %q on connector %s", name, *raw.Function, raw.DataConnector))
			return nil, false
		}
		argDefs, resultType = fn.Arguments, fn.ResultType
	case raw.Procedure != nil:
		proc, ok := dc.Schema.Procedures[*raw.Procedure]
		if !ok {
			b.fail(violation(ErrNoSuchProcedure, name.Subgraph, string(name.Name),
				"command %s source references unknown procedure %q on connector %s", name, *raw.Procedure, raw.DataConnector))
			return nil, false
		}
		argDefs, resultType = proc.Arguments, proc.ResultType
	default:
		b.fail(violation(ErrUnsupportedFeature, name.Subgraph, string(name.Name),
			"command %s source must name a function or a procedure", name))
		return nil, false
	}

	for arg, connectorArg := range raw.ArgumentMappings {
		if _, ok := argDefs[connectorArg]; !ok {
			b.fail(violation(ErrNoSuchArgument, name.Subgraph, string(name.Name),
				"command %s source maps argument %q to unknown connector argument %q", name, arg, connectorArg))
		}
	}

	resolved := &CommandSource{
		DataConnector:    raw.DataConnector,
		Function:         raw.Function,
		Procedure:        raw.Procedure,
		ArgumentMappings: raw.ArgumentMappings,
		TypeMappings:     map[Qualified[DataConnectorName]]*TypeMapping{},
	}

	underlying := opendd.UnderlyingName(outputType)
	if underlying.Custom != nil {
		if dataType, ok := b.md.ObjectTypesWithRelationships[*underlying.Custom]; ok {
			if ndcObjType, ok := dc.Schema.ObjectTypes[resultType]; ok {
				mapping := b.collectTypeMapping(dataType, raw.DataConnector, resultType, ndcObjType)
				resolved.TypeMappings[raw.DataConnector] = mapping
			}
		}
	}

	return resolved, true
}

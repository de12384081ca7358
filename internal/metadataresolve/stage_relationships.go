package metadataresolve

import "github.com/opendd/ddnengine/internal/opendd"

// stageRelationships is stage 11 of spec.md §4.1: attaches each
// Relationship to its source object type and classifies it Local or
// RemoteForEach — a pure function of (source connector == target
// connector) and the connector's relationships capability, computed once
// here and never revisited by the planner.
func (b *builder) stageRelationships() error {
	for _, raw := range b.raw.Relationships {
		sourceType, ok := b.md.ObjectTypesWithRelationships[raw.SourceType]
		if !ok {
			b.fail(violation(ErrUnknownType, raw.SourceType.Subgraph, string(raw.SourceType.Name),
				"relationship %q has unknown source type %s", raw.Name, raw.SourceType))
			continue
		}
		for _, mapping := range raw.Mappings {
			if _, ok := sourceType.Fields[mapping.SourceField]; !ok {
				b.fail(violation(ErrUnknownField, raw.SourceType.Subgraph, string(raw.SourceType.Name),
					"relationship %q maps unknown source field %q on %s", raw.Name, mapping.SourceField, raw.SourceType))
			}
		}

		target := RelationshipTarget{}
		category, ok := b.classifyRelationship(raw, sourceType, &target)
		if !ok {
			continue
		}

		sourceType.Relationships[raw.Name] = &Relationship{
			Name:       raw.Name,
			SourceType: raw.SourceType,
			Target:     target,
			Mappings:   raw.Mappings,
			ListType:   raw.ListType,
			Category:   category,
		}
	}
	return nil
}

func (b *builder) classifyRelationship(raw opendd.Relationship, sourceType *ObjectType, target *RelationshipTarget) (RelationshipExecutionCategory, bool) {
	sourceConnector, hasSourceConnector := firstConnector(sourceType)

	switch raw.TargetKind {
	case opendd.RelationshipTargetModel:
		if raw.TargetModel == nil {
			b.fail(violation(ErrUnsupportedFeature, raw.SourceType.Subgraph, string(raw.SourceType.Name),
				"relationship %q declares target kind Model with no target_model", raw.Name))
			return "", false
		}
		targetModel, ok := b.md.ModelsWithPermissions[*raw.TargetModel]
		if !ok {
			b.fail(violation(ErrUnknownType, raw.SourceType.Subgraph, string(raw.SourceType.Name),
				"relationship %q references unknown target model %s", raw.Name, *raw.TargetModel))
			return "", false
		}
		target.Model = raw.TargetModel
		if targetModel.Source == nil || !hasSourceConnector {
			return RemoteForEach, true
		}
		return b.relationshipCategory(sourceConnector, targetModel.Source.DataConnector), true

	case opendd.RelationshipTargetCommand:
		if raw.TargetCommand == nil {
			b.fail(violation(ErrUnsupportedFeature, raw.SourceType.Subgraph, string(raw.SourceType.Name),
				"relationship %q declares target kind Command with no target_command", raw.Name))
			return "", false
		}
		targetCommand, ok := b.md.CommandsWithPermissions[*raw.TargetCommand]
		if !ok {
			b.fail(violation(ErrUnknownType, raw.SourceType.Subgraph, string(raw.SourceType.Name),
				"relationship %q references unknown target command %s", raw.Name, *raw.TargetCommand))
			return "", false
		}
		target.Command = raw.TargetCommand
		if targetCommand.Source == nil || !hasSourceConnector {
			return RemoteForEach, true
		}
		return b.relationshipCategory(sourceConnector, targetCommand.Source.DataConnector), true

	default:
		b.fail(violation(ErrUnsupportedFeature, raw.SourceType.Subgraph, string(raw.SourceType.Name),
			"relationship %q has unrecognized target kind %q", raw.Name, raw.TargetKind))
		return "", false
	}
}

// relationshipCategory is Local only when both sides share a connector and
// that connector declares the relationships capability; otherwise the
// planner must stitch the join itself (RemoteForEach).
func (b *builder) relationshipCategory(source, target Qualified[DataConnectorName]) RelationshipExecutionCategory {
	if source != target {
		return RemoteForEach
	}
	dc, ok := b.lookupConnector(source)
	if !ok || !dc.Capabilities.Relationships {
		return RemoteForEach
	}
	return Local
}

// firstConnector returns the lexicographically-smallest connector this
// object type is mapped onto. classifyRelationship takes it as the source
// side of every relationship's Local/RemoteForEach split, whether or not
// the source type has a model source of its own. Picking deterministically (rather than ranging a map)
// keeps relationship classification a pure function of the resolved
// document, per Testable Property 1.
func firstConnector(t *ObjectType) (Qualified[DataConnectorName], bool) {
	var best Qualified[DataConnectorName]
	found := false
	for dc := range t.TypeMappings {
		if !found || dc.Less(best) {
			best, found = dc, true
		}
	}
	return best, found
}

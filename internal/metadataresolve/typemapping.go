package metadataresolve

import "github.com/opendd/ddnengine/internal/opendd"

// declaredMappingKey identifies one user-authored opendd.TypeMapping: the
// (ObjectType, DataConnector) pair it binds.
type declaredMappingKey struct {
	objectType    Qualified[CustomTypeName]
	dataConnector Qualified[DataConnectorName]
}

// indexTypeMappings indexes raw.TypeMappings by (object type, data
// connector) once up front, so collectTypeMapping can look declarations up
// instead of walking the slice on every call. Two declarations naming the
// same pair is a DuplicateDefinition.
func (b *builder) indexTypeMappings() map[declaredMappingKey]opendd.TypeMapping {
	idx := make(map[declaredMappingKey]opendd.TypeMapping, len(b.raw.TypeMappings))
	for _, tm := range b.raw.TypeMappings {
		key := declaredMappingKey{tm.ObjectType, tm.DataConnectorName}
		if _, dup := idx[key]; dup {
			b.fail(violation(ErrDuplicateDefinition, tm.ObjectType.Subgraph, string(tm.ObjectType.Name),
				"duplicate type mapping for object type %s on data connector %s", tm.ObjectType, tm.DataConnectorName))
			continue
		}
		idx[key] = tm
	}
	return idx
}

// collectTypeMapping is the OpenDD-field -> NDC-column binding of spec.md
// §3/§9: given a resolved ObjectType and a connector's own object type, it
// looks up the user-declared opendd.TypeMapping for that (ObjectType,
// connector) pair and produces (and caches on objType.TypeMappings) the
// resolved field-to-column binding — grounded on the original
// implementation's collect_type_mapping_for_source, which consults a
// pre-existing declared mapping and raises MissingFieldMapping rather than
// inferring column names from field names.
//
// Every call site that needs to expose objType through (dcName,
// dcObjectType) — a model source, a command source, a boolean expression —
// goes through this one function, so the same
// (ObjectType, connector) pair is guaranteed to resolve to exactly one
// DataConnectorObjectType; a second call naming a different
// dcObjectType for a pair already cached is the
// MappingToMultipleDataConnectorObjectType inconsistency spec.md calls out,
// and fails closed rather than silently picking one. A field with no
// declared mapping, or a declared mapping naming a column the connector
// doesn't have, also fails closed instead of being silently dropped.
func (b *builder) collectTypeMapping(
	objType *ObjectType,
	dcName Qualified[DataConnectorName],
	dcObjectType opendd.DataConnectorObjectType,
	ndcObjType opendd.NDCObjectType,
) *TypeMapping {
	if existing, ok := objType.TypeMappings[dcName]; ok {
		if existing.DataConnectorObjectType != dcObjectType {
			b.fail(violation(ErrMappingToMultipleDataConnectorObjectType, objType.Name.Subgraph, string(objType.Name.Name),
				"object type %s is mapped to both connector object type %q and %q on data connector %s",
				objType.Name, existing.DataConnectorObjectType, dcObjectType, dcName))
			return existing
		}
		return existing
	}

	mapping := &TypeMapping{
		ObjectType:              objType.Name,
		DataConnectorName:       dcName,
		DataConnectorObjectType: dcObjectType,
		FieldMappings:           map[FieldName]opendd.FieldMapping{},
	}

	declared, ok := b.declaredMappings[declaredMappingKey{objType.Name, dcName}]
	if !ok {
		b.fail(violation(ErrMappingMissing, objType.Name.Subgraph, string(objType.Name.Name),
			"object type %s has no declared type mapping for data connector %s", objType.Name, dcName))
		objType.TypeMappings[dcName] = mapping
		return mapping
	}

	for _, fname := range objType.FieldOrder {
		fm, ok := declared.FieldMappings[fname]
		if !ok {
			b.fail(violation(ErrMappingMissing, objType.Name.Subgraph, string(objType.Name.Name),
				"object type %s field %q has no mapping to data connector %s object type %q", objType.Name, fname, dcName, dcObjectType))
			continue
		}
		ndcField, ok := ndcObjType.Fields[fm.Column]
		if !ok {
			b.fail(violation(ErrNoSuchColumn, objType.Name.Subgraph, string(objType.Name.Name),
				"object type %s field %q maps to unknown column %q on data connector %s object type %q", objType.Name, fname, fm.Column, dcName, dcObjectType))
			continue
		}
		mapping.FieldMappings[fname] = opendd.FieldMapping{
			Column:     fm.Column,
			ColumnType: ndcField.Type,
		}
	}

	objType.TypeMappings[dcName] = mapping
	return mapping
}

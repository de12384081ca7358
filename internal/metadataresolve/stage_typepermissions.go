package metadataresolve

import "github.com/opendd/ddnengine/internal/opendd"

// stageTypePermissions is stage 6 of spec.md §4.1: per-role output allowed
// field lists (each field must exist) and input field presets (each preset
// value must typecheck against the field type).
func (b *builder) stageTypePermissions() error {
	for _, tp := range b.raw.TypePermissions {
		obj, ok := b.md.ObjectTypesWithRelationships[tp.ObjectType]
		if !ok {
			b.fail(violation(ErrUnknownType, tp.ObjectType.Subgraph, string(tp.ObjectType.Name),
				"type permission references unknown object type %s", tp.ObjectType))
			continue
		}
		resolved := &TypePermission{
			Role:          tp.Role,
			AllowedFields: map[FieldName]struct{}{},
			FieldPresets:  map[FieldName]opendd.FieldPreset{},
		}
		for _, f := range tp.AllowedFields {
			if _, exists := obj.Fields[f]; !exists {
				b.fail(violation(ErrUnknownField, tp.ObjectType.Subgraph, string(tp.ObjectType.Name),
					"output permission for role %q allows unknown field %q on %s", tp.Role, f, tp.ObjectType))
				continue
			}
			resolved.AllowedFields[f] = struct{}{}
		}
		for f, preset := range tp.FieldPresets {
			field, exists := obj.Fields[f]
			if !exists {
				b.fail(violation(ErrUnknownField, tp.ObjectType.Subgraph, string(tp.ObjectType.Name),
					"input preset for role %q references unknown field %q on %s", tp.Role, f, tp.ObjectType))
				continue
			}
			if preset.SessionVariable == "" {
				if err := typecheckValue(field.Type, preset.Value); err != nil {
					b.fail(violation(ErrUnsupportedFeature, tp.ObjectType.Subgraph, string(tp.ObjectType.Name),
						"input preset for field %q on %s: %s", f, tp.ObjectType, err))
					continue
				}
			}
			resolved.FieldPresets[f] = preset
		}
		if obj.Permissions == nil {
			obj.Permissions = map[RoleName]*TypePermission{}
		}
		obj.Permissions[tp.Role] = resolved
		b.md.Roles[tp.Role] = struct{}{}
	}
	return nil
}

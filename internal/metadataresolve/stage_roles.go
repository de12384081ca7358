package metadataresolve

// stageRoles is the final stage of spec.md §4.1: the role set is the union
// of every role mentioned anywhere in the document (type, model, and
// command permissions already populated b.md.Roles as they were resolved);
// this stage exists only to guarantee every model and command carries a
// Permissions entry for every known role, defaulting to no access, so
// schema building never has to special-case "role never mentioned" versus
// "role mentioned with no access".
func (b *builder) stageRoles() error {
	for _, model := range b.md.ModelsWithPermissions {
		for role := range b.md.Roles {
			if _, ok := model.Permissions[role]; !ok {
				model.Permissions[role] = &ModelPermission{Role: role}
			}
		}
	}
	for _, command := range b.md.CommandsWithPermissions {
		for role := range b.md.Roles {
			if _, ok := command.Permissions[role]; !ok {
				command.Permissions[role] = &CommandPermission{Role: role}
			}
		}
	}
	for _, obj := range b.md.ObjectTypesWithRelationships {
		for role := range b.md.Roles {
			if _, ok := obj.Permissions[role]; !ok {
				if obj.Permissions == nil {
					obj.Permissions = map[RoleName]*TypePermission{}
				}
				obj.Permissions[role] = &TypePermission{Role: role, AllowedFields: map[FieldName]struct{}{}}
			}
		}
	}
	return nil
}

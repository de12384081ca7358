package metadataresolve

// stageCommandPermissions is the command half of stage 12 of spec.md §4.1
// (stageModelPermissions is the model half): validates each
// role's execute-permission argument presets against the command's
// declared arguments.
func (b *builder) stageCommandPermissions() error {
	for _, raw := range b.raw.CommandPermissions {
		command, ok := b.md.CommandsWithPermissions[raw.Command]
		if !ok {
			b.fail(violation(ErrUnknownType, raw.Command.Subgraph, string(raw.Command.Name),
				"command permission references unknown command %s", raw.Command))
			continue
		}
		resolved := &CommandPermission{Role: raw.Role}
		if raw.Execute != nil {
			resolved.Execute = &CommandExecutePermission{ArgumentPresets: raw.Execute.ArgumentPresets}
			for arg := range raw.Execute.ArgumentPresets {
				if _, ok := command.Arguments[arg]; !ok {
					b.fail(violation(ErrUnknownField, raw.Command.Subgraph, string(raw.Command.Name),
						"role %q execute permission on %s presets unknown argument %q", raw.Role, raw.Command, arg))
				}
			}
		}
		command.Permissions[raw.Role] = resolved
		b.md.Roles[raw.Role] = struct{}{}
	}
	return nil
}

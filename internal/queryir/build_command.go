package queryir

import (
	"fmt"

	"github.com/opendd/ddnengine/internal/language"
	"github.com/opendd/ddnengine/internal/metadataresolve"
)

// buildCommandSelection builds CommandSelection for a query or mutation
// command field: argument extraction plus preset merging, then a selection
// walk if the command's output type is an object (scalar-returning commands
// carry no nested selection).
func (c *buildContext) buildCommandSelection(cmd *metadataresolve.Command, field *language.Field) (*CommandSelection, error) {
	c.usages.bumpCommand(cmd.Name)

	var exec *metadataresolve.CommandExecutePermission
	if cp := cmd.Permissions[c.role]; cp != nil {
		exec = cp.Execute
	}
	if exec == nil {
		return nil, fmt.Errorf("role %q has no execute permission on command %s", c.role, cmd.Name)
	}

	args := argumentMap(field.Arguments, c.vars)
	sel := &CommandSelection{Command: cmd, Arguments: map[metadataresolve.ArgumentName]any{}}
	for k, v := range args {
		sel.Arguments[metadataresolve.ArgumentName(k)] = v
	}
	for name, presetVal := range exec.ArgumentPresets {
		sel.Arguments[name] = resolveArgumentPreset(presetVal, c.sessionVars)
	}

	outputType := cmd.OutputType
	for outputType != nil && outputType.List != nil {
		outputType = outputType.List
	}
	if outputType == nil || outputType.Named == nil || outputType.Named.Custom == nil {
		return sel, nil
	}

	dataType, ok := c.lookupObjectType(outputType.Named.Custom.String())
	if !ok {
		return sel, nil
	}

	fields := flattenSelectionSet(c.doc, field.SelectionSet)
	selection, _, err := c.buildSelectionFields(dataType, nil, fields)
	if err != nil {
		return nil, err
	}
	sel.Selection = selection
	return sel, nil
}

// Package introspection answers GraphQL's "__schema"/"__type" meta-fields
// directly against a role's *schema.Schema, without routing through
// internal/queryir, internal/planner, or internal/executor: these fields
// describe the schema itself and never reach a data connector.
package introspection

import (
	"fmt"
	"strconv"

	language "github.com/opendd/ddnengine/internal/language"
	schema "github.com/opendd/ddnengine/internal/schema"
)

// IsMetaField reports whether a root field name is a schema-introspection
// meta-field this package resolves entirely on its own.
func IsMetaField(name string) bool {
	return name == "__schema" || name == "__type"
}

// Resolve answers a single top-level "__schema" or "__type" root field,
// recursively walking its selection set. vars holds the operation's coerced
// variable values, for arguments like __type(name: $t).
func Resolve(doc *language.QueryDocument, f *language.Field, sch *schema.Schema, vars map[string]any) (any, error) {
	extended := ExtendSchema(sch)
	args := argumentMap(f.Arguments, vars)
	switch f.Name {
	case "__schema":
		return resolveSelectionSet(doc, extended, extended, f.SelectionSet, vars), nil
	case "__type":
		name, _ := args["name"].(string)
		t := extended.Types[name]
		if t == nil {
			return nil, nil
		}
		return resolveSelectionSet(doc, extended, t, f.SelectionSet, vars), nil
	default:
		return nil, fmt.Errorf("introspection: not a meta-field: %s", f.Name)
	}
}

// resolveSelectionSet projects source's fields named by set into a
// map[string]any, recursing into sub-selections for object-valued fields.
func resolveSelectionSet(doc *language.QueryDocument, sch *schema.Schema, source any, set language.SelectionSet, vars map[string]any) map[string]any {
	out := map[string]any{}
	for _, f := range flattenSelectionSet(doc, set) {
		alias := f.Alias
		if alias == "" {
			alias = f.Name
		}
		if f.Name == "__typename" {
			out[alias] = typenameOf(source)
			continue
		}
		args := argumentMap(f.Arguments, vars)
		v, ok := resolveField(sch, source, f.Name, args)
		if !ok {
			out[alias] = nil
			continue
		}
		out[alias] = project(doc, sch, v, f.SelectionSet, vars)
	}
	return out
}

// project recurses a resolved field value against its sub-selection. Scalar
// and enum values (strings, bools, string lists) pass through unchanged;
// object and object-list values walk back into resolveSelectionSet.
func project(doc *language.QueryDocument, sch *schema.Schema, v any, set language.SelectionSet, vars map[string]any) any {
	if v == nil || len(set) == 0 {
		return v
	}
	switch vv := v.(type) {
	case []*schema.Type:
		return projectList(doc, sch, toAnySlice(vv), set, vars)
	case []*schema.Field:
		return projectList(doc, sch, toAnySlice(vv), set, vars)
	case []*schema.InputValue:
		return projectList(doc, sch, toAnySlice(vv), set, vars)
	case []*schema.EnumValue:
		return projectList(doc, sch, toAnySlice(vv), set, vars)
	case []*schema.Directive:
		return projectList(doc, sch, toAnySlice(vv), set, vars)
	case *schema.Type:
		if vv == nil {
			return nil
		}
		return resolveSelectionSet(doc, sch, vv, set, vars)
	case *schema.TypeRef:
		if vv == nil {
			return nil
		}
		return resolveSelectionSet(doc, sch, vv, set, vars)
	case *schema.Field:
		return resolveSelectionSet(doc, sch, vv, set, vars)
	case *schema.InputValue:
		return resolveSelectionSet(doc, sch, vv, set, vars)
	case *schema.EnumValue:
		return resolveSelectionSet(doc, sch, vv, set, vars)
	case *schema.Directive:
		return resolveSelectionSet(doc, sch, vv, set, vars)
	case *schema.Schema:
		return resolveSelectionSet(doc, sch, vv, set, vars)
	default:
		return v
	}
}

func toAnySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func projectList(doc *language.QueryDocument, sch *schema.Schema, items []any, set language.SelectionSet, vars map[string]any) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = project(doc, sch, it, set, vars)
	}
	return out
}

func resolveField(sch *schema.Schema, source any, field string, args map[string]any) (any, bool) {
	switch src := source.(type) {
	case *schema.Schema:
		return resolveSchemaField(src, field)
	case *schema.Type:
		return resolveTypeField(sch, src, field, args)
	case *schema.TypeRef:
		return resolveTypeRefField(sch, src, field, args)
	case *schema.Field:
		return resolveFieldField(src, field, args)
	case *schema.InputValue:
		return resolveInputValueField(src, field)
	case *schema.EnumValue:
		return resolveEnumValueField(src, field)
	case *schema.Directive:
		return resolveDirectiveField(src, field, args)
	}
	return nil, false
}

func typenameOf(source any) string {
	switch source.(type) {
	case *schema.Schema:
		return "__Schema"
	case *schema.Type:
		return "__Type"
	case *schema.TypeRef:
		return "__Type"
	case *schema.Field:
		return "__Field"
	case *schema.InputValue:
		return "__InputValue"
	case *schema.EnumValue:
		return "__EnumValue"
	case *schema.Directive:
		return "__Directive"
	default:
		return ""
	}
}

// flattenSelectionSet mirrors queryir's helper of the same name; duplicated
// rather than imported since introspection must stay free of any dependency
// on queryir (queryir depends on schema, and importing queryir here purely
// for this helper would pull in the whole IR-building package for four
// lines of fragment-flattening).
func flattenSelectionSet(doc *language.QueryDocument, set language.SelectionSet) []*language.Field {
	var out []*language.Field
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			out = append(out, s)
		case *language.InlineFragment:
			out = append(out, flattenSelectionSet(doc, s.SelectionSet)...)
		case *language.FragmentSpread:
			def := doc.Fragments.ForName(s.Name)
			if def == nil {
				continue
			}
			out = append(out, flattenSelectionSet(doc, def.SelectionSet)...)
		}
	}
	return out
}

// argumentMap and astValueToGo mirror queryir's values.go helpers of the
// same name, duplicated for the reason flattenSelectionSet is above.
func argumentMap(args language.ArgumentList, vars map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for _, a := range args {
		out[a.Name] = astValueToGo(a.Value, vars)
	}
	return out
}

func astValueToGo(value *language.Value, vars map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.Variable:
		return vars[value.Raw]
	case language.IntValue:
		iv, _ := strconv.Atoi(value.Raw)
		return iv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.NullValue:
		return nil
	case language.EnumValue:
		return value.Raw
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = astValueToGo(c.Value, vars)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any)
		for _, f := range value.Children {
			m[f.Name] = astValueToGo(f.Value, vars)
		}
		return m
	default:
		return nil
	}
}

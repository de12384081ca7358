package queryir

import (
	"strconv"

	"github.com/opendd/ddnengine/internal/language"
	"github.com/opendd/ddnengine/internal/opendd"
)

// astValueToGo converts a parsed argument/default value into a plain Go
// value, substituting `$var` references from the operation's variable
// values. It lives here since queryir must not import executor (executor
// depends on queryir/planner output).
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

// argumentMap indexes a field/directive's argument list by name, resolving
// each value against vars.
func argumentMap(args language.ArgumentList, vars map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for _, a := range args {
		out[a.Name] = astValueToGo(a.Value, vars)
	}
	return out
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// resolveArgumentPreset resolves a role's argument preset, a session
// variable reference or a literal, against the request's session variables.
func resolveArgumentPreset(v opendd.ArgumentPresetValue, sessionVars map[string]any) any {
	if v.SessionVariable != "" {
		return sessionVars[v.SessionVariable]
	}
	return v.Literal
}

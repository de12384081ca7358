package metadataresolve

import (
	"fmt"

	"github.com/opendd/ddnengine/internal/opendd"
)

// typecheckValue is a minimal structural typecheck for literal values used
// in argument/field presets, sufficient to catch the common authoring
// mistakes (wrong JSON shape for the declared type) without re-implementing
// a full GraphQL coercion pass here — that belongs to internal/queryir at
// request time, where session-variable substitution also happens.
func typecheckValue(t *opendd.TypeReference, value any) error {
	if value == nil {
		if !t.Nullable {
			return fmt.Errorf("null is not assignable to non-nullable type %s", t)
		}
		return nil
	}
	if t.List != nil {
		items, ok := value.([]any)
		if !ok {
			return fmt.Errorf("expected a list for type %s, got %T", t, value)
		}
		for _, item := range items {
			if err := typecheckValue(t.List, item); err != nil {
				return err
			}
		}
		return nil
	}
	if t.Named == nil || t.Named.Custom != nil {
		// Custom object/enum types are not literal-checked here; they are
		// validated structurally by the stage that consumes them
		// (argument presets, model predicates).
		return nil
	}
	switch t.Named.Inbuilt {
	case opendd.InbuiltString, opendd.InbuiltID:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected a string for type %s, got %T", t, value)
		}
	case opendd.InbuiltBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected a boolean for type %s, got %T", t, value)
		}
	case opendd.InbuiltInt, opendd.InbuiltFloat:
		switch value.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("expected a number for type %s, got %T", t, value)
		}
	}
	return nil
}

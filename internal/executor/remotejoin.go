package executor

import (
	"context"
	"fmt"

	"github.com/opendd/ddnengine/internal/planner"
)

// resolveJoins walks rows (the parent NDC response's rows, already
// unmarshaled) against locs, splicing in every remote join it finds. rows
// is mutated in place: a Remote node's result lands under its alias on
// every row that carried a non-null join key (null or an empty list when
// the far side returned no rows for it), and nothing is added for rows
// whose join key is missing or null (the connector-side behavior for a missing relationship
// target is "field absent", which downstream GraphQL treats as null via
// ordinary map lookup).
func (e *executor) resolveJoins(ctx context.Context, rows []map[string]any, locs *planner.JoinLocations, clients Clients, path []string) error {
	if locs == nil {
		return nil
	}
	for alias, node := range locs.Locations {
		fieldPath := append(append([]string{}, path...), alias)
		switch {
		case node.Local != nil:
			// A Local node stayed in the same NDC request: its value is
			// already present on each row under alias, as either a plain
			// nested object/array or a nested_fields column. Any further
			// remote joins nested under it are resolved against that
			// already-spliced sub-value.
			if err := e.resolveLocalNode(ctx, rows, alias, node.Local, clients, fieldPath); err != nil {
				return err
			}
		case node.Remote != nil:
			if err := e.resolveRemoteNode(ctx, rows, alias, node.Remote, clients, fieldPath); err != nil {
				return err
			}
		}
		if node.Rest != nil {
			if err := e.resolveJoins(ctx, rows, node.Rest, clients, path); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveLocalNode descends into the already-spliced local sub-value under
// alias on every row, to resolve any remote joins nested further down it.
func (e *executor) resolveLocalNode(ctx context.Context, rows []map[string]any, alias string, sub *planner.JoinLocations, clients Clients, path []string) error {
	var nested []map[string]any
	for _, row := range rows {
		switch v := row[alias].(type) {
		case map[string]any:
			nested = append(nested, v)
		case []any:
			for _, elem := range v {
				if m, ok := elem.(map[string]any); ok {
					nested = append(nested, m)
				}
			}
		}
	}
	return e.resolveJoins(ctx, nested, sub, clients, path)
}

// resolveRemoteNode is the state machine of spec.md §4.6: Pending →
// Collecting(keys) → Issued(request) → Merged → Done. The states are not
// reified as a value here; each is a phase of this function's body, in
// order, since one remote-join node never has more than one resolution in
// flight at a time.

// Collecting: pull the join-key values each row carries on its source
// field, deduplicating so the foreach variable set has one entry per
// distinct key (spec.md §8's "two movies sharing director id 7" ⇒ one
// variable set entry).
func (e *executor) resolveRemoteNode(ctx context.Context, rows []map[string]any, alias string, rj *planner.RemoteJoin, clients Clients, path []string) error {
	keyIndex := map[string]int{}
	var variables []map[string]any
	rowKeys := make([]int, len(rows))
	for i, row := range rows {
		vars, ok := joinVariables(row, rj.JoinMapping)
		if !ok {
			rowKeys[i] = -1
			continue
		}
		k := fmt.Sprint(vars)
		idx, seen := keyIndex[k]
		if !seen {
			idx = len(variables)
			keyIndex[k] = idx
			variables = append(variables, vars)
		}
		rowKeys[i] = idx
	}

	if len(variables) == 0 {
		// Done: no row carried a non-null key tuple, so the transition to
		// Issued never happens and the splice is empty everywhere.
		return nil
	}

	// Issued: send the far-side request once, with every distinct key in
	// one foreach variable set.
	client, err := clients.get(rj.TargetConnector)
	if err != nil {
		return err
	}
	req := *rj.TargetQuery
	req.Variables = variables
	resp, err := client.Query(ctx, &req)
	if err != nil {
		return userError(path, "NDCRequestFailed", "remote join %q: %v", alias, err)
	}
	if len(resp) != len(variables) {
		return internalError(path, "remote join %q: expected %d row sets, got %d", alias, len(variables), len(resp))
	}

	// Recurse into the far side's own remote joins before splicing, so
	// nested remote relationships are already resolved on each row set.
	for _, rs := range resp {
		if err := e.resolveJoins(ctx, rs.Rows, rj.SubJoins, clients, path); err != nil {
			return err
		}
	}

	// Merged: splice each row's matched result set back under alias,
	// shaped per ProcessResponseAs.
	for i, row := range rows {
		idx := rowKeys[i]
		if idx < 0 {
			continue
		}
		rowSet := resp[idx]
		if rj.ProcessResponseAs == planner.ProcessAsArray {
			values := make([]any, len(rowSet.Rows))
			for j, r := range rowSet.Rows {
				values[j] = r
			}
			row[alias] = values
			continue
		}
		if len(rowSet.Rows) == 0 {
			row[alias] = nil
			continue
		}
		row[alias] = rowSet.Rows[0]
	}

	return nil
}

// joinVariables extracts one foreach variable entry from a parent row,
// keyed by each mapping's TargetVariable; ok is false if any mapped source
// field is missing or nil, since a null join key never matches anything.
func joinVariables(row map[string]any, mapping []planner.JoinMappingEntry) (map[string]any, bool) {
	if len(mapping) == 0 {
		return nil, false
	}
	vars := make(map[string]any, len(mapping))
	for _, m := range mapping {
		v, ok := row[string(m.SourceField)]
		if !ok || v == nil {
			return nil, false
		}
		vars[m.TargetVariable] = v
	}
	return vars, true
}

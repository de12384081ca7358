// Package executor implements spec.md §4.5: it takes a planner.QueryPlan or
// planner.MutationPlan plus a set of per-connector NDC clients and produces
// a GraphQL response.
//
// Query root fields are dispatched concurrently with errgroup.Group, one
// goroutine per root field; cancellation of the request context cancels
// every in-flight NDC call, while one field's error leaves its siblings'
// requests running.
// Mutation groups, and the fields within a group, run strictly
// sequentially in document order (spec.md §4.4/§4.5).
//
// For each root field's ExecutionTree, remotejoin.go walks the planner's
// JoinLocations tree: every Local node is already embedded in the NDC
// response (a relationship the connector itself joined); every Remote node
// is resolved by extracting join-key values from the parent rows, building
// a deduplicated foreach variable set, issuing the far-side NDC query with
// that set, and splicing the result back under the field's alias. This is
// the five-state machine of spec.md §4.6, whose states are the successive
// phases of resolveRemoteNode.
//
// response.go applies the nullable/non-nullable error-containment rule: a
// failing nullable root field becomes a null value plus a located error; a
// failing non-nullable one nulls the whole response and is the sole error.
package executor

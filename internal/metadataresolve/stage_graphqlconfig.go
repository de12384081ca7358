package metadataresolve

import "github.com/opendd/ddnengine/internal/opendd"

// stageGraphQLConfig is stage 1 of spec.md §4.1: parse root-operation-type
// names and built-in operator names once per engine. Defaults match the
// OpenDD convention (query_root/mutation_root/subscription_root, and the
// canonical `_and`/`_or`/`_not`/`_is_null` operator names) when the document
// omits a graphql_config block.
func (b *builder) stageGraphQLConfig() error {
	cfg := b.raw.GraphQLConfig
	if cfg == nil {
		cfg = &opendd.GraphQLConfig{
			QueryRootTypeName:        "query_root",
			MutationRootTypeName:     "mutation_root",
			SubscriptionRootTypeName: "subscription_root",
			Operators: opendd.LogicalOperatorNames{
				And: "_and", Or: "_or", Not: "_not", IsNull: "_is_null",
			},
		}
	} else {
		copied := *cfg
		cfg = &copied
	}
	if cfg.QueryRootTypeName == "" {
		cfg.QueryRootTypeName = "query_root"
	}
	if cfg.Operators.And == "" {
		cfg.Operators = opendd.LogicalOperatorNames{And: "_and", Or: "_or", Not: "_not", IsNull: "_is_null"}
	}
	b.md.GraphQLConfig = cfg
	return nil
}

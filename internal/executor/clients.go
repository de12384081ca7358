package executor

import (
	"github.com/opendd/ddnengine/internal/metadataresolve"
	"github.com/opendd/ddnengine/internal/ndc"
)

// Clients maps every data connector the resolved metadata references to the
// NDC client built for it at link-resolution time. One Clients value is
// built once at startup and shared read-only across request goroutines,
// matching ExecutionTree.DataConnector as the lookup key (spec.md §5
// "the HTTP client is shared; it must be thread-safe").
type Clients map[metadataresolve.Qualified[metadataresolve.DataConnectorName]]*ndc.Client

func (c Clients) get(name metadataresolve.Qualified[metadataresolve.DataConnectorName]) (*ndc.Client, error) {
	client, ok := c[name]
	if !ok {
		return nil, internalError(nil, "no NDC client configured for data connector %s", name)
	}
	return client, nil
}

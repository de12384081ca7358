// Package reqid attaches a request-scoped correlation id to a
// context.Context, used to key internal/otel's span maps and as the
// externally visible "traceId" extension on internal-visibility errors.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

type key struct{}

// NewContext returns a copy of parent carrying a freshly generated request
// id, and the id itself.
func NewContext(parent context.Context) (context.Context, string) {
	id := uuid.New().String()
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the request id from ctx, if one was attached.
func FromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(key{})
	id, ok := v.(string)
	return id, ok
}

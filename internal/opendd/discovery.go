package opendd

import "context"

// Loader discovers and reads the raw metadata document. Implementations are
// grounded on the teacher's Discovery interface (internal/ir/discovery.go in
// the reference repo): one method to enumerate fragments, one to read them.
type Loader interface {
	// ListFragments returns the identifiers of every metadata fragment
	// (one per subgraph file, conventionally) this loader knows about.
	ListFragments(ctx context.Context) ([]FragmentID, error)
	// ReadFragment returns the raw JSON bytes of one fragment.
	ReadFragment(ctx context.Context, id FragmentID) ([]byte, error)
}

// FragmentID identifies one metadata fragment, e.g. "app/types.json".
type FragmentID string

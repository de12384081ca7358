package opendd

import (
	"context"
	"fmt"
)

// InMemoryLoader is a test/embedding-friendly Loader backed by an in-process
// map, grounded on the teacher's InMemoryDiscovery.
type InMemoryLoader struct {
	fragments map[FragmentID][]byte
}

func NewInMemoryLoader(fragments map[string][]byte) *InMemoryLoader {
	l := &InMemoryLoader{fragments: map[FragmentID][]byte{}}
	for name, content := range fragments {
		l.fragments[FragmentID(name)] = content
	}
	return l
}

func (l *InMemoryLoader) ListFragments(ctx context.Context) ([]FragmentID, error) {
	ids := make([]FragmentID, 0, len(l.fragments))
	for id := range l.fragments {
		ids = append(ids, id)
	}
	return ids, nil
}

func (l *InMemoryLoader) ReadFragment(ctx context.Context, id FragmentID) ([]byte, error) {
	content, ok := l.fragments[id]
	if !ok {
		return nil, fmt.Errorf("metadata fragment %q not found", id)
	}
	return content, nil
}

var _ Loader = (*InMemoryLoader)(nil)

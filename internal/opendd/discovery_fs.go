package opendd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSLoader implements Loader over a directory tree: every file with a
// ".json" extension anywhere under root is one fragment, identified by its
// path relative to root. Each fragment names its subgraph in its own
// "subgraph" field, so the file name does not matter and several fragments
// may belong to one subgraph.
type FSLoader struct {
	root      string
	fragments map[FragmentID]string
}

// NewFSLoader walks root once at construction, grounded on the teacher's
// NewFileSystemDiscovery walk-and-cache pattern.
func NewFSLoader(root string) (*FSLoader, error) {
	l := &FSLoader{root: root, fragments: map[FragmentID]string{}}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(d.Name()) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path for %q: %w", path, err)
		}
		l.fragments[FragmentID(rel)] = path
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk metadata root %q: %w", root, err)
	}
	return l, nil
}

func (l *FSLoader) ListFragments(ctx context.Context) ([]FragmentID, error) {
	ids := make([]FragmentID, 0, len(l.fragments))
	for id := range l.fragments {
		ids = append(ids, id)
	}
	return ids, nil
}

func (l *FSLoader) ReadFragment(ctx context.Context, id FragmentID) ([]byte, error) {
	path, ok := l.fragments[id]
	if !ok {
		return nil, fmt.Errorf("metadata fragment %q not found", id)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata fragment %q: %w", id, err)
	}
	return b, nil
}

var _ Loader = (*FSLoader)(nil)

// Package fsspec serves spec resources from an fs.FS: the embedded built-in
// specs or a directory of <name>.json files.
package fsspec

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/artpar/specgate/domain/spec"
	"github.com/artpar/specgate/ports"
)

// Source implements ports.SpecSource over a file system whose root holds
// the <name>.json files of the apispec namespace.
type Source struct {
	fsys  fs.FS
	label string
}

// New creates a source over fsys. The label names it in errors and logs.
func New(fsys fs.FS, label string) *Source {
	return &Source{fsys: fsys, label: label}
}

// Dir creates a source over a directory on disk.
func Dir(dir string) *Source {
	return New(os.DirFS(dir), dir)
}

// String returns the label of the source.
func (s *Source) String() string {
	return s.label
}

// ReadSpec reads apispec/<name>.json as <name>.json from the file system.
func (s *Source) ReadSpec(_ context.Context, name string) ([]byte, error) {
	file := path.Clean(strings.TrimPrefix(name, spec.Namespace))
	if !fs.ValidPath(file) {
		return nil, fmt.Errorf("%s: invalid resource name %q", s.label, name)
	}

	data, err := fs.ReadFile(s.fsys, file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %s: %w", s.label, name, ports.ErrSpecNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.label, err)
	}
	return data, nil
}

// Names returns the names of all resources in the source, without the
// namespace prefix or the .json suffix.
func (s *Source) Names() ([]string, error) {
	matches, err := fs.Glob(s.fsys, "*.json")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.label, err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(m, ".json"))
	}
	sort.Strings(names)
	return names, nil
}

var _ ports.SpecSource = (*Source)(nil)
